package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seqweave/seqweave/pkg/config"
	"github.com/seqweave/seqweave/pkg/fastq"
	"github.com/seqweave/seqweave/pkg/graph"
	"github.com/seqweave/seqweave/pkg/logger"
	"github.com/seqweave/seqweave/pkg/metrics"
	"github.com/seqweave/seqweave/pkg/pattern"
	"github.com/seqweave/seqweave/pkg/pipeline"
	"github.com/seqweave/seqweave/pkg/seq"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "seqweave",
		Short: "Seqweave - sequencing-read structure demultiplexer",
		Long: `Seqweave decomposes high-throughput sequencing reads into named regions
(adapters, barcodes, UMIs, inserts) described by a read-structure expression,
then trims, tags, and filters them through a parallel operator pipeline.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Seqweave v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var configFile string
	var structure, input, output, discarded, format, logLevel string
	var workers, batchSize int
	var ordered, enableMetrics bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run reads through a structure pipeline",
		Long: `Run FASTQ records through a read-structure pipeline. Reads matching the
structure have their captured regions attached and the adapter trimmed;
non-matching reads go to the discarded output when one is given.

Example:
  seqweave run --structure "literal(AGCT, 1) as adapter, range(6, 6) as barcode, range(0, *) as insert" \
    --input reads.fastq.gz --output matched.fastq --discarded rejected.fastq`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, configFile, &flagValues{
				structure: structure, input: input, output: output,
				discarded: discarded, format: format, logLevel: logLevel,
				workers: workers, batchSize: batchSize,
				ordered: ordered, enableMetrics: enableMetrics,
			})
			if err != nil {
				return err
			}
			return runPipeline(cfg)
		},
	}

	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a pipeline configuration file (YAML or JSON)")
	runCmd.Flags().StringVar(&structure, "structure", "", "Read-structure description")
	runCmd.Flags().StringVarP(&input, "input", "i", "-", "Input FASTQ path ('-' for stdin, .gz for gzip)")
	runCmd.Flags().StringVarP(&output, "output", "o", "-", "Accepted-records output path ('-' for stdout)")
	runCmd.Flags().StringVar(&discarded, "discarded", "", "Optional output path for discarded and errored records")
	runCmd.Flags().StringVar(&format, "format", "fastq", "Output format (fastq, json)")
	runCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of worker threads")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 256, "Records per batch")
	runCmd.Flags().BoolVar(&ordered, "ordered", false, "Emit results in input order")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&enableMetrics, "enable-metrics", false, "Register prometheus metrics")
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flagValues struct {
	structure, input, output, discarded, format, logLevel string
	workers, batchSize                                    int
	ordered, enableMetrics                                bool
}

// buildConfig starts from the config file when given, then lets any
// explicitly set flag override it.
func buildConfig(cmd *cobra.Command, configFile string, flags *flagValues) (*config.PipelineConfig, error) {
	var cfg *config.PipelineConfig
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.NewPipelineConfig("seqweave")
	}

	set := cmd.Flags().Changed
	if set("structure") || cfg.Structure == "" {
		cfg.Structure = flags.structure
	}
	if set("input") {
		cfg.Input.Path = flags.input
	}
	if set("output") {
		cfg.Output.Path = flags.output
	}
	if set("discarded") {
		cfg.Output.DiscardedPath = flags.discarded
	}
	if set("format") {
		cfg.Output.Format = flags.format
	}
	if set("workers") {
		cfg.Performance.Workers = flags.workers
	}
	if set("batch-size") {
		cfg.Performance.BatchSize = flags.batchSize
	}
	if set("ordered") {
		cfg.Ordering.Ordered = flags.ordered
	}
	if set("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if set("enable-metrics") {
		cfg.Performance.EnableMetrics = flags.enableMetrics
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// buildGraph assembles the standard CLI pipeline: match the structure
// against the whole read, trim the adapter region off when the
// structure names one, and route non-matching reads to discarded.
func buildGraph(cfg *config.PipelineConfig) (*graph.SealedGraph, error) {
	prog, err := pattern.Compile(cfg.Structure)
	if err != nil {
		return nil, fmt.Errorf("structure error: %w", err)
	}

	b := graph.NewBuilder()
	b.AddNode(graph.NewMatchNode("structure", seq.WholeRead, prog), []string{seq.WholeRead}, nil)
	b.AddNode(graph.NewFilterNode("require-match",
		graph.TagEquals("match:"+seq.WholeRead, "true"), "read does not fit the structure"), nil, nil)
	b.Connect("structure", "require-match")

	hasAdapter := false
	for _, name := range prog.Captures() {
		if name == "adapter" {
			hasAdapter = true
		}
	}
	if hasAdapter {
		b.AddNode(graph.NewTrimNode("trim-adapter", seq.WholeRead, "adapter"), []string{"adapter"}, nil)
		b.Connect("require-match", "trim-adapter")
	}

	return b.Seal()
}

func runPipeline(cfg *config.PipelineConfig) error {
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Encoding: cfg.Logging.Encoding}); err != nil {
		return err
	}
	lctx := context.WithValue(context.Background(), logger.PipelineKey, cfg.Name)
	log := logger.WithContext(lctx, nil).With(zap.String("component", "seqweave-cli"))

	g, err := buildGraph(cfg)
	if err != nil {
		return err
	}

	reader, err := fastq.Open(cfg.Input.Path)
	if err != nil {
		return err
	}
	defer reader.Close()

	accepted, err := openSink(cfg.Output.Path, cfg.Output.Format)
	if err != nil {
		return err
	}
	defer accepted.Close()

	var rejected *sink
	if cfg.Output.DiscardedPath != "" {
		rejected, err = openSink(cfg.Output.DiscardedPath, cfg.Output.Format)
		if err != nil {
			return err
		}
		defer rejected.Close()
	}

	opts := []pipeline.Option{pipeline.WithLogger(log)}
	if cfg.Performance.EnableMetrics {
		opts = append(opts, pipeline.WithCollector(metrics.NewCollector(nil)))
	}
	exec := pipeline.New(pipeline.Config{
		Workers:    cfg.Performance.Workers,
		BatchSize:  cfg.Performance.BatchSize,
		QueueDepth: cfg.Performance.QueueDepth,
		Ordered:    cfg.Ordering.Ordered,
	}, opts...)

	ctx := context.Background()
	source := make(chan *seq.Record)
	readErr := make(chan error, 1)
	go func() {
		defer close(source)
		readErr <- feedRecords(ctx, reader, source, log)
	}()

	log.Info("pipeline starting", zap.String("input", cfg.Input.Path), zap.String("output", cfg.Output.Path))
	start := time.Now()

	for res := range exec.Run(ctx, g, source) {
		switch res.Status {
		case graph.Accepted:
			err = accepted.write(res)
		default:
			if rejected != nil {
				err = rejected.write(res)
			} else {
				log.Debug("record dropped", zap.String("id", res.Record.ID), zap.String("reason", res.Reason))
			}
		}
		if err != nil {
			return fmt.Errorf("writing result for record %s: %w", res.Record.ID, err)
		}
		res.Record.Release()
	}
	if err := <-readErr; err != nil {
		return err
	}

	stats := exec.Stats()
	log.Info("pipeline finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int64("processed", stats.Processed),
		zap.Int64("accepted", stats.Accepted),
		zap.Int64("discarded", stats.Discarded),
		zap.Int64("errored", stats.Errored),
		zap.Float64("records_per_second", float64(stats.Processed)/time.Since(start).Seconds()))
	return nil
}

// feedRecords pumps FASTQ records into the pipeline source channel.
// A malformed record aborts the run; upstream corruption is not worth
// guessing past.
func feedRecords(ctx context.Context, reader *fastq.Reader, source chan<- *seq.Record, log *zap.Logger) error {
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.Error("input aborted", zap.Error(err))
			return err
		}
		select {
		case source <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sink writes execution results as FASTQ or newline-delimited JSON.
type sink struct {
	fq  *fastq.Writer
	enc *pipeline.ResultEncoder
	out *os.File
}

func openSink(path, format string) (*sink, error) {
	if format == "json" {
		f := os.Stdout
		if path != "-" {
			var err error
			f, err = os.Create(path)
			if err != nil {
				return nil, err
			}
		}
		return &sink{enc: pipeline.NewResultEncoder(f), out: f}, nil
	}
	w, err := fastq.Create(path)
	if err != nil {
		return nil, err
	}
	return &sink{fq: w}, nil
}

func (s *sink) write(res pipeline.ExecutionResult) error {
	if s.fq != nil {
		return s.fq.Write(res.Record)
	}
	return s.enc.Encode(res)
}

func (s *sink) Close() error {
	if s.fq != nil {
		return s.fq.Close()
	}
	if err := s.enc.Flush(); err != nil {
		return err
	}
	if s.out != nil && s.out != os.Stdout {
		return s.out.Close()
	}
	return nil
}
