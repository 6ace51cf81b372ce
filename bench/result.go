// Package bench runs configured test suites against the benchmarked
// command and aggregates their timings and artifact sizes.
package bench

import (
	"time"

	"github.com/weiihann/ingestbench/config"
	"github.com/weiihann/ingestbench/measure"
	"github.com/weiihann/ingestbench/stats"
)

// TestResult accumulates the successful iterations of one test in one
// suite. Times and Sizes are aligned by successful iteration.
type TestResult struct {
	Times []float64 // seconds
	Sizes []int64   // bytes, 0 when the test does not check size

	// FileSizes maps artifact basename to one entry per iteration in
	// which that name was observed.
	FileSizes map[string][]int64
	// FileNames lists FileSizes keys in first-observed order.
	FileNames []string
}

func newTestResult() *TestResult {
	return &TestResult{FileSizes: make(map[string][]int64)}
}

func (tr *TestResult) add(elapsed time.Duration, sizes *measure.Sizes) {
	tr.Times = append(tr.Times, elapsed.Seconds())

	if sizes == nil {
		tr.Sizes = append(tr.Sizes, 0)

		return
	}

	tr.Sizes = append(tr.Sizes, sizes.Total)

	for _, name := range sizes.Names {
		if _, ok := tr.FileSizes[name]; !ok {
			tr.FileNames = append(tr.FileNames, name)
		}

		tr.FileSizes[name] = append(tr.FileSizes[name], sizes.ByName[name])
	}
}

// SuiteResults holds the TestResults of one suite keyed by test name.
type SuiteResults map[string]*TestResult

// ErrorRecord is one failed invocation.
type ErrorRecord struct {
	Iteration int // 1-based
	ExitCode  int
	Err       string
}

// TestErrors groups failures of one test in one suite.
type TestErrors struct {
	Suite   string
	Test    string
	Records []ErrorRecord
}

// Errors keeps failures grouped by suite then test, in the order they
// first occurred.
type Errors []*TestErrors

func (e *Errors) add(suite, test string, rec ErrorRecord) {
	for _, te := range *e {
		if te.Suite == suite && te.Test == test {
			te.Records = append(te.Records, rec)

			return
		}
	}

	*e = append(*e, &TestErrors{Suite: suite, Test: test, Records: []ErrorRecord{rec}})
}

// For returns the failures recorded for a suite and test, if any.
func (e Errors) For(suite, test string) []ErrorRecord {
	for _, te := range e {
		if te.Suite == suite && te.Test == test {
			return te.Records
		}
	}

	return nil
}

// SuiteSummary is one row of the summary report.
type SuiteSummary struct {
	Suite           string
	Iterations      int
	IngestTimeMean  stats.Value // seconds
	IngestTimeStd   stats.Value // seconds
	ArraySizeMB     stats.Value
	IngestionSizeMB float64
	ExportTimeMean  stats.Value // seconds, NA without an export test
	ExportTimeStd   stats.Value
}

// FileSizeTable holds mean artifact sizes per suite. Rows are every
// suite in declared order; an NA cell means the suite produced no data
// for that file.
type FileSizeTable struct {
	Suites []string
	Files  []string
	Cells  map[string][]stats.Value // file -> one value per suite
}

func newFileSizeTable(suites []string) *FileSizeTable {
	return &FileSizeTable{
		Suites: suites,
		Cells:  make(map[string][]stats.Value),
	}
}

func (t *FileSizeTable) set(file string, suiteIdx int, v stats.Value) {
	col, ok := t.Cells[file]
	if !ok {
		t.Files = append(t.Files, file)
		col = make([]stats.Value, len(t.Suites))
		t.Cells[file] = col
	}

	col[suiteIdx] = v
}

// Row returns the cells of one suite in column order.
func (t *FileSizeTable) Row(suiteIdx int) []stats.Value {
	row := make([]stats.Value, len(t.Files))
	for i, f := range t.Files {
		row[i] = t.Cells[f][suiteIdx]
	}

	return row
}

// Outcome is everything a run produced.
type Outcome struct {
	Summaries       []SuiteSummary
	FileSizes       *FileSizeTable
	Errors          Errors
	Results         map[string]SuiteResults
	IngestionSizeMB float64
	Elapsed         time.Duration
}

// summarize folds one finished suite into the outcome. Suites without a
// store result add no summary row.
func (o *Outcome) summarize(suiteIdx int, suite config.Suite, iterations int, results SuiteResults) {
	store, ok := results[config.TestStore]
	if !ok {
		return
	}

	row := SuiteSummary{
		Suite:           suite.Name,
		Iterations:      iterations,
		IngestTimeMean:  stats.Mean(store.Times),
		IngestTimeStd:   stats.StdDev(store.Times),
		ArraySizeMB:     stats.Mean(store.Sizes).MiB(),
		IngestionSizeMB: o.IngestionSizeMB,
		ExportTimeMean:  stats.NA,
		ExportTimeStd:   stats.NA,
	}

	if export, ok := results[config.TestExport]; ok {
		row.ExportTimeMean = stats.Mean(export.Times)
		row.ExportTimeStd = stats.StdDev(export.Times)
	}

	o.Summaries = append(o.Summaries, row)

	for _, name := range store.FileNames {
		mean := stats.Mean(store.FileSizes[name])
		o.FileSizes.set(name, suiteIdx, mean.MiB())
	}
}
