// Package config defines the pipeline configuration surface: the read
// structure, executor tuning, I/O paths, and logging, loadable from a
// YAML or JSON file with environment variable overrides.
package config

import (
	"fmt"
	"runtime"
)

// PipelineConfig is the full configuration of one pipeline run.
type PipelineConfig struct {
	// Name identifies the pipeline instance in logs and metrics.
	Name string `yaml:"name" json:"name" mapstructure:"name"`

	// Structure is the read-structure description compiled at startup.
	Structure string `yaml:"structure" json:"structure" mapstructure:"structure"`

	// Input settings for the FASTQ source.
	Input InputConfig `yaml:"input" json:"input" mapstructure:"input"`

	// Output settings for result sinks.
	Output OutputConfig `yaml:"output" json:"output" mapstructure:"output"`

	// Performance settings control throughput and parallelism.
	Performance PerformanceConfig `yaml:"performance" json:"performance" mapstructure:"performance"`

	// Ordering settings control result order.
	Ordering OrderingConfig `yaml:"ordering" json:"ordering" mapstructure:"ordering"`

	// Logging settings.
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// InputConfig locates the record source.
type InputConfig struct {
	// Path to the FASTQ file; "-" reads stdin. Gzip is detected from
	// the .gz suffix.
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// OutputConfig locates the result sinks.
type OutputConfig struct {
	// Path for accepted records; "-" writes stdout.
	Path string `yaml:"path" json:"path" mapstructure:"path"`

	// DiscardedPath, when set, receives discarded and errored records.
	DiscardedPath string `yaml:"discarded_path" json:"discarded_path" mapstructure:"discarded_path"`

	// Format selects the output encoding: fastq or json.
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// PerformanceConfig contains executor tuning.
type PerformanceConfig struct {
	// Workers is the fixed worker pool size.
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// BatchSize is the number of records grouped per batch.
	BatchSize int `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	// QueueDepth bounds the batch work queue.
	QueueDepth int `yaml:"queue_depth" json:"queue_depth" mapstructure:"queue_depth"`
	// EnableMetrics registers prometheus instruments.
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
}

// OrderingConfig controls result ordering.
type OrderingConfig struct {
	// Ordered re-sorts results into input order before writing.
	Ordered bool `yaml:"ordered" json:"ordered" mapstructure:"ordered"`
}

// LoggingConfig mirrors the logger package configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level" mapstructure:"level"`
	Encoding string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
}

// NewPipelineConfig returns a configuration with defaults applied.
// Callers override fields and then Validate.
func NewPipelineConfig(name string) *PipelineConfig {
	return &PipelineConfig{
		Name: name,
		Input: InputConfig{
			Path: "-",
		},
		Output: OutputConfig{
			Path:   "-",
			Format: "fastq",
		},
		Performance: PerformanceConfig{
			Workers:    runtime.NumCPU(),
			BatchSize:  256,
			QueueDepth: 8,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate checks required fields and value ranges. Call it after
// loading to catch errors before the pipeline starts.
func (c *PipelineConfig) Validate() error {
	if c.Structure == "" {
		return fmt.Errorf("structure is required")
	}
	if c.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	switch c.Output.Format {
	case "fastq", "json":
	default:
		return fmt.Errorf("output.format must be fastq or json, got %q", c.Output.Format)
	}
	if c.Performance.Workers <= 0 {
		return fmt.Errorf("performance.workers must be positive")
	}
	if c.Performance.BatchSize <= 0 {
		return fmt.Errorf("performance.batch_size must be positive")
	}
	if c.Performance.QueueDepth <= 0 {
		return fmt.Errorf("performance.queue_depth must be positive")
	}
	return nil
}
