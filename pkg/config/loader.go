package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads a pipeline configuration file into a defaulted config.
// YAML and JSON are supported; environment variables prefixed SEQWEAVE_
// override file values (SEQWEAVE_PERFORMANCE_WORKERS, and so on).
func Load(filePath string) (*PipelineConfig, error) {
	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetEnvPrefix("SEQWEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	cfg := NewPipelineConfig("")
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	return cfg, nil
}

// Save writes a configuration to a YAML file.
func Save(filePath string, cfg *PipelineConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
