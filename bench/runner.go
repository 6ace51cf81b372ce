package bench

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/docker/go-units"

	"github.com/weiihann/ingestbench/config"
	"github.com/weiihann/ingestbench/harness"
	"github.com/weiihann/ingestbench/measure"
	"github.com/weiihann/ingestbench/stats"
)

// Runner drives every suite of a config through the benchmarked command.
type Runner struct {
	Config  *config.Config
	Invoker harness.Invoker
	Flusher harness.Flusher
	Logger  *slog.Logger
}

// NewRunner creates a Runner. Cache flushing is disabled when the
// config turns it off.
func NewRunner(
	cfg *config.Config,
	invoker harness.Invoker,
	flusher harness.Flusher,
	logger *slog.Logger,
) *Runner {
	if !cfg.ShouldDropCaches() || flusher == nil {
		flusher = harness.NopFlusher{}
	}

	return &Runner{
		Config:  cfg,
		Invoker: invoker,
		Flusher: flusher,
		Logger:  logger,
	}
}

// Run executes all suites sequentially. Test failures are recorded in
// the outcome; filesystem and input errors abort the run, as does
// cancellation of ctx, in which case no outcome is returned.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()

	ingestBytes, err := IngestionSize(r.Config.IngestionFiles)
	if err != nil {
		return nil, err
	}

	r.Logger.InfoContext(ctx, "starting benchmark",
		slog.Int("suites", len(r.Config.Suites)),
		slog.Int("iterations", r.Config.Iterations),
		slog.String("ingestion_size", units.BytesSize(float64(ingestBytes))),
	)

	names := make([]string, len(r.Config.Suites))
	for i, s := range r.Config.Suites {
		names[i] = s.Name
	}

	out := &Outcome{
		FileSizes:       newFileSizeTable(names),
		Results:         make(map[string]SuiteResults, len(names)),
		IngestionSizeMB: stats.MiB(ingestBytes),
	}

	for idx, suite := range r.Config.Suites {
		results, err := r.runSuite(ctx, suite, &out.Errors)

		// The output directory is reclaimed even when the suite aborted.
		if rmErr := os.RemoveAll(suite.OutputDir()); rmErr != nil && err == nil {
			err = fmt.Errorf("clean output dir %s: %w", suite.OutputDir(), rmErr)
		}

		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", suite.Name, err)
		}

		out.Results[suite.Name] = results
		out.summarize(idx, suite, r.Config.Iterations, results)
	}

	out.Elapsed = time.Since(start)

	return out, nil
}

func (r *Runner) runSuite(ctx context.Context, suite config.Suite, errs *Errors) (SuiteResults, error) {
	logger := r.Logger.With(slog.String("suite", suite.Name))
	results := make(SuiteResults)

	for i := 1; i <= r.Config.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := prepareDir(suite.OutputDir()); err != nil {
			return nil, err
		}

		for _, test := range suite.Tests {
			if err := r.runTest(ctx, logger, suite, test, i, results, errs); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

func (r *Runner) runTest(
	ctx context.Context,
	logger *slog.Logger,
	suite config.Suite,
	test config.Test,
	iteration int,
	results SuiteResults,
	errs *Errors,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger = logger.With(
		slog.String("test", test.Name),
		slog.Int("iteration", iteration),
	)

	if err := r.Flusher.Flush(ctx); err != nil {
		logger.DebugContext(ctx, "cache flush failed",
			slog.String("error", err.Error()),
		)
	}

	logger.InfoContext(ctx, "starting test")

	if test.Name == config.TestExport {
		if err := os.MkdirAll(harness.ExportDir(suite), 0o755); err != nil {
			return fmt.Errorf("create export dir %s: %w", harness.ExportDir(suite), err)
		}
	}

	argv, err := harness.BuildArgs(r.Config, suite, test)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "running", slog.String("cmd", harness.FormatCommand(argv)))

	inv := r.Invoker.Invoke(ctx, argv)

	// A killed child is an interrupted run, not a failed test.
	if err := ctx.Err(); err != nil {
		return err
	}

	if inv.Failed() {
		rec := ErrorRecord{Iteration: iteration, ExitCode: inv.ExitCode}
		if inv.Err != nil {
			rec.Err = inv.Err.Error()
		}

		errs.add(suite.Name, test.Name, rec)

		logger.ErrorContext(ctx, "test failed",
			slog.Int("exit_code", inv.ExitCode),
			slog.String("error", rec.Err),
		)

		return nil
	}

	var sizes *measure.Sizes
	if test.CheckArraySize {
		sizes = r.arraySizes(ctx, logger, suite.ArrayURI)
	}

	tr, ok := results[test.Name]
	if !ok {
		tr = newTestResult()
		results[test.Name] = tr
	}

	tr.add(inv.Elapsed, sizes)

	attrs := []any{slog.Duration("elapsed", inv.Elapsed)}
	if sizes != nil {
		attrs = append(attrs, slog.String("array_size", units.BytesSize(float64(sizes.Total))))
	}

	logger.InfoContext(ctx, "test finished", attrs...)

	return nil
}

// arraySizes measures the array directory. A directory the command did
// not create counts as empty.
func (r *Runner) arraySizes(ctx context.Context, logger *slog.Logger, arrayURI string) *measure.Sizes {
	sizes, err := measure.Collect(arrayURI)
	if err != nil {
		logger.WarnContext(ctx, "failed to measure array size",
			slog.String("array_uri", arrayURI),
			slog.String("error", err.Error()),
		)

		return &measure.Sizes{ByName: map[string]int64{}}
	}

	return &sizes
}

// prepareDir leaves dir present and empty.
func prepareDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clean output dir %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	return nil
}

// IngestionSize sums the byte sizes of the ingestion input files.
func IngestionSize(files []string) (int64, error) {
	var total int64

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return 0, fmt.Errorf("stat ingestion file: %w", err)
		}

		if info.IsDir() {
			return 0, fmt.Errorf("ingestion file %s is a directory", f)
		}

		total += info.Size()
	}

	return total, nil
}
