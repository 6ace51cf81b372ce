// Package main provides the CLI entry point for ingestbench, which
// benchmarks configurations of an ingestion command line tool.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/weiihann/ingestbench/bench"
	"github.com/weiihann/ingestbench/config"
	"github.com/weiihann/ingestbench/harness"
	"github.com/weiihann/ingestbench/logging"
	"github.com/weiihann/ingestbench/report"
	"github.com/weiihann/ingestbench/workload"
)

func main() {
	opts, err := logging.OptionsFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(opts).With(slog.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(logger)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("benchmark aborted", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ingestbench",
		Short: "Benchmark configurations of an ingestion command line tool",
		Long: `Ingestbench runs every configured test suite against an external
command for a number of iterations, flushing OS caches before each test,
and reports mean and standard deviation of run times and on-disk array
sizes per suite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd.Context(), logger, cmd.OutOrStdout(), configPath)
		},
	}

	root.Flags().StringVar(&configPath, "config", "",
		"YAML config file for the benchmark")
	_ = root.MarkFlagRequired("config")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newGenerateCmd(logger))

	return root
}

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a benchmark config and print the resolved suites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			return printPlan(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "",
		"YAML config file for the benchmark")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func newGenerateCmd(logger *slog.Logger) *cobra.Command {
	var (
		outDir  string
		samples int
		records int
		contig  string
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write deterministic synthetic VCF files to use as ingestion inputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			gen := workload.NewGenerator(workload.Config{
				NumSamples: samples,
				NumRecords: records,
				Contig:     contig,
				Seed:       seed,
			})

			summary, err := gen.Generate(outDir)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			logger.InfoContext(cmd.Context(), "workload generated",
				slog.String("dir", outDir),
				slog.Int("files", len(summary.Files)),
				slog.Int("records", summary.Records),
				slog.String("size", units.BytesSize(float64(summary.Bytes))),
				slog.Int64("seed", seed),
			)

			for _, f := range summary.Files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&outDir, "out", "workload",
		"Directory to write VCF files into")
	flags.IntVar(&samples, "samples", 10,
		"Number of single-sample VCF files")
	flags.IntVar(&records, "records", 10000,
		"Variant records per file")
	flags.StringVar(&contig, "contig", "1",
		"Contig name for every record")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed (0 = use current time)")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	stdout io.Writer,
	configPath string,
) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "loaded config",
		slog.String("path", configPath),
		slog.String("base_command", cfg.BaseCommand),
		slog.Int("iterations", cfg.Iterations),
		slog.Int("suites", len(cfg.Suites)),
		slog.Bool("drop_caches", cfg.ShouldDropCaches()),
	)

	runner := bench.NewRunner(
		cfg,
		harness.NewExecInvoker(logger),
		&harness.CacheFlusher{Logger: logger},
		logger,
	)

	outcome, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("run benchmark: %w", err)
	}

	return report.Write(ctx, logger, stdout, outcome, report.Options{
		Plain: !isTerminal(stdout),
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printPlan(w io.Writer, cfg *config.Config) error {
	fmt.Fprintf(w, "base command: %s\n", cfg.BaseCommand)
	fmt.Fprintf(w, "iterations:   %d\n", cfg.Iterations)
	fmt.Fprintf(w, "drop caches:  %t\n", cfg.ShouldDropCaches())

	for _, s := range cfg.Suites {
		fmt.Fprintf(w, "\nsuite %s (output %s)\n", s.Name, s.OutputDir())

		for _, t := range s.Tests {
			argv, err := harness.BuildArgs(cfg, s, t)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "  %-10s %s\n", t.Name, harness.FormatCommand(argv))
		}
	}

	return nil
}
