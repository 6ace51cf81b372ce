// Package report formats benchmark outcomes into comparison tables.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/weiihann/ingestbench/bench"
	"github.com/weiihann/ingestbench/stats"
)

// NoData fills file size cells for suites that produced no such file.
const NoData = "-"

// SummaryHeader names the columns of the summary table.
var SummaryHeader = []string{
	"Test",
	"Iterations",
	"Ingestion Time (seconds)",
	"Ingestion Time (seconds) STDDEV",
	"Array Size (MB)",
	"Ingestion Size (MB)",
	"Export Time (seconds)",
	"Export Time STDDEV (seconds)",
}

// Options control console rendering.
type Options struct {
	// Plain renders ASCII borders without styling, for pipes and files.
	Plain bool
}

// Write renders both tables to w, logs their CSV forms, the total run
// time and, when present, every recorded failure.
func Write(ctx context.Context, logger *slog.Logger, w io.Writer, out *bench.Outcome, opts Options) error {
	summaryCSV, err := SummaryCSV(out.Summaries)
	if err != nil {
		return fmt.Errorf("summary csv: %w", err)
	}

	logCSV(ctx, logger, "summary", summaryCSV)

	fmt.Fprintln(w)
	fmt.Fprintln(w, Summary(out.Summaries, opts))

	sizesCSV, err := FileSizesCSV(out.FileSizes)
	if err != nil {
		return fmt.Errorf("file sizes csv: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, FileSizes(out.FileSizes, opts))

	logCSV(ctx, logger, "file_sizes", sizesCSV)

	logger.InfoContext(ctx, "total time taken to run benchmark",
		slog.String("duration", Duration(out.Elapsed)),
	)

	LogErrors(ctx, logger, out.Errors)

	return nil
}

// Summary renders one row per suite that ran a store test.
func Summary(rows []bench.SuiteSummary, opts Options) string {
	t := newTable(opts).Headers(SummaryHeader...)

	for _, r := range rows {
		t.Row(
			r.Suite,
			strconv.Itoa(r.Iterations),
			r.IngestTimeMean.Format(3),
			r.IngestTimeStd.Format(3),
			r.ArraySizeMB.Format(2),
			strconv.FormatFloat(r.IngestionSizeMB, 'f', 2, 64),
			r.ExportTimeMean.Format(3),
			r.ExportTimeStd.Format(3),
		)
	}

	return t.String()
}

// SummaryCSV renders the summary rows at full precision.
func SummaryCSV(rows []bench.SuiteSummary) (string, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, SummaryHeader)

	for _, r := range rows {
		records = append(records, []string{
			r.Suite,
			strconv.Itoa(r.Iterations),
			r.IngestTimeMean.String(),
			r.IngestTimeStd.String(),
			r.ArraySizeMB.String(),
			strconv.FormatFloat(r.IngestionSizeMB, 'f', -1, 64),
			r.ExportTimeMean.String(),
			r.ExportTimeStd.String(),
		})
	}

	return writeCSV(records)
}

// FileSizes renders mean artifact size in MB per suite and file name.
func FileSizes(tbl *bench.FileSizeTable, opts Options) string {
	t := newTable(opts).Headers(append([]string{"Test"}, tbl.Files...)...)

	for i, suite := range tbl.Suites {
		t.Row(fileSizeRow(tbl, i, suite, func(v stats.Value) string { return v.Format(2) })...)
	}

	return t.String()
}

// FileSizesCSV renders the file size table at full precision.
func FileSizesCSV(tbl *bench.FileSizeTable) (string, error) {
	records := make([][]string, 0, len(tbl.Suites)+1)
	records = append(records, append([]string{"Test"}, tbl.Files...))

	for i, suite := range tbl.Suites {
		records = append(records, fileSizeRow(tbl, i, suite, stats.Value.String))
	}

	return writeCSV(records)
}

func fileSizeRow(tbl *bench.FileSizeTable, idx int, suite string, format func(stats.Value) string) []string {
	row := []string{suite}

	for _, v := range tbl.Row(idx) {
		if !v.Valid {
			row = append(row, NoData)

			continue
		}

		row = append(row, format(v))
	}

	return row
}

// LogErrors dumps failures grouped by suite and test. Nothing is logged
// for a clean run.
func LogErrors(ctx context.Context, logger *slog.Logger, errs bench.Errors) {
	if len(errs) == 0 {
		return
	}

	logger.ErrorContext(ctx, "errors detected in run, dumping details")

	for _, te := range errs {
		details := make([]string, len(te.Records))
		for i, rec := range te.Records {
			details[i] = fmt.Sprintf("iteration=%d exit_code=%d", rec.Iteration, rec.ExitCode)
			if rec.Err != "" {
				details[i] += " error=" + strconv.Quote(rec.Err)
			}
		}

		logger.ErrorContext(ctx, "failed runs",
			slog.String("suite", te.Suite),
			slog.String("test", te.Test),
			slog.Int("count", len(te.Records)),
			slog.String("details", strings.Join(details, "; ")),
		)
	}
}

func newTable(opts Options) *table.Table {
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Bold(true)
	border := lipgloss.RoundedBorder()

	if opts.Plain {
		header = cell
		border = lipgloss.ASCIIBorder()
	}

	return table.New().
		Border(border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}

			return cell
		})
}

// logCSV logs each line of a CSV block as its own record so the block
// stays readable in the console and the system log.
func logCSV(ctx context.Context, logger *slog.Logger, name, block string) {
	for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		logger.InfoContext(ctx, line, slog.String("table", name))
	}
}

func writeCSV(records [][]string) (string, error) {
	var b strings.Builder

	cw := csv.NewWriter(&b)
	if err := cw.WriteAll(records); err != nil {
		return "", err
	}

	return b.String(), nil
}
