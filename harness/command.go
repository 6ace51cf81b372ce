// Package harness builds and executes invocations of the benchmarked
// command line program.
package harness

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/weiihann/ingestbench/config"
)

// Flags appended to every invocation.
const (
	ArrayFlag = "-a"
	FilesFlag = "-f"
)

// ExportDirName is the subdirectory of a suite's output directory
// prepared for export tests.
const ExportDirName = "export"

// CommandConfig holds the resolved binary and the arguments that
// precede the per-test arguments.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
	Env       []string
}

// WrapCommand splits a base command such as "docker run --rm img
// tiledbvcf" into the binary and its leading arguments. Words follow
// shell quoting, so "'/opt/my tools/tiledbvcf'" stays one word.
// Variables and backticks are not expanded.
func WrapCommand(baseCommand string) (CommandConfig, error) {
	fields, err := shellwords.Parse(baseCommand)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("parse base command %q: %w", baseCommand, err)
	}

	if len(fields) == 0 {
		return CommandConfig{}, nil
	}

	return CommandConfig{
		Binary:    fields[0],
		ExtraArgs: fields[1:],
	}, nil
}

// ExportDir returns the export destination for a suite.
func ExportDir(suite config.Suite) string {
	return filepath.Join(suite.OutputDir(), ExportDirName)
}

// BuildArgs returns the full argv for one test of a suite:
//
//	<base_command> <test.args...> -a <array_uri> [-f <ingestion_files...>]
//
// Export tests only get their destination appended when the test sets
// an export flag.
func BuildArgs(cfg *config.Config, suite config.Suite, test config.Test) ([]string, error) {
	base, err := WrapCommand(cfg.BaseCommand)
	if err != nil {
		return nil, err
	}

	argv := make([]string, 0, 1+len(base.ExtraArgs)+len(test.Args)+4+len(cfg.IngestionFiles))
	if base.Binary != "" {
		argv = append(argv, base.Binary)
	}

	argv = append(argv, base.ExtraArgs...)
	argv = append(argv, test.Args...)
	argv = append(argv, ArrayFlag, suite.ArrayURI)

	if test.IngestsFiles() {
		argv = append(argv, FilesFlag)
		argv = append(argv, cfg.IngestionFiles...)
	}

	if test.Name == config.TestExport && test.ExportFlag != "" {
		argv = append(argv, test.ExportFlag, ExportDir(suite)+string(filepath.Separator))
	}

	return argv, nil
}

// FormatCommand renders argv as a single shell-like line for logs.
func FormatCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\$") {
			parts[i] = strconv.Quote(arg)
		} else {
			parts[i] = arg
		}
	}

	return strings.Join(parts, " ")
}
