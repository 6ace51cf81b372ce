package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/ingestbench/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
}

func TestRootRequiresConfig(t *testing.T) {
	root := newRootCmd(discardLogger())
	root.SetArgs([]string{})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestRootMalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "suites: [\n", 0o644)

	root := newRootCmd(discardLogger())
	root.SetArgs([]string{"--config", path})

	err := root.Execute()

	var perr *config.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	writeFile(t, path, `
base_command: tiledbvcf
iterations: 2
ingestion_files: [/data/a.vcf]
suites:
  baseline:
    array_uri: /tmp/out/array
    tests:
      - name: store
        args: [store]
`, 0o644)

	var out bytes.Buffer

	root := newRootCmd(discardLogger())
	root.SetArgs([]string{"validate", "--config", path})
	root.SetOut(&out)

	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "iterations:   2")
	assert.Contains(t, out.String(), "suite baseline (output /tmp/out/array)")
	assert.Contains(t, out.String(), "tiledbvcf store -a /tmp/out/array -f /data/a.vcf")
}

func TestRunBenchmarkEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()

	script := filepath.Join(dir, "fake-ingest")
	writeFile(t, script, `#!/bin/sh
while [ $# -gt 0 ]; do
  if [ "$1" = "-a" ]; then array=$2; fi
  shift
done
mkdir -p "$array"
head -c 1048576 /dev/zero > "$array/data.tdb"
`, 0o755)

	input := filepath.Join(dir, "a.vcf")
	writeFile(t, input, strings.Repeat("x", 2048), 0o644)

	out := filepath.Join(dir, "out")
	path := filepath.Join(dir, "bench.yaml")
	writeFile(t, path, `
base_command: `+script+`
iterations: 2
drop_caches: false
ingestion_files: [`+input+`]
suites:
  baseline:
    array_uri: `+filepath.Join(out, "array")+`
    group_uri: `+out+`
    tests:
      - name: store
        args: [store]
        check_array_size: true
`, 0o644)

	var stdout, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	require.NoError(t, runBenchmark(context.Background(), logger, &stdout, path))

	assert.Contains(t, stdout.String(), "baseline")
	assert.Contains(t, stdout.String(), "1.00")
	assert.Contains(t, stdout.String(), "data.tdb")
	assert.Contains(t, logs.String(), "total time taken to run benchmark")
	assert.NotContains(t, logs.String(), "errors detected")

	_, err := os.Stat(out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunBenchmarkInterrupted(t *testing.T) {
	dir := t.TempDir()

	input := filepath.Join(dir, "a.vcf")
	writeFile(t, input, "x", 0o644)

	path := filepath.Join(dir, "bench.yaml")
	writeFile(t, path, `
base_command: "true"
iterations: 3
drop_caches: false
ingestion_files: [`+input+`]
suites:
  baseline:
    array_uri: `+filepath.Join(dir, "out")+`
    tests:
      - name: store
        args: [store]
`, 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, logs bytes.Buffer
	err := runBenchmark(ctx, slog.New(slog.NewTextHandler(&logs, nil)), &stdout, path)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, stdout.String(), "no report after an interrupt")
	assert.NotContains(t, logs.String(), "errors detected")
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inputs")

	var out bytes.Buffer

	root := newRootCmd(discardLogger())
	root.SetArgs([]string{"generate", "--out", dir, "--samples", "2", "--records", "5", "--seed", "9"})
	root.SetOut(&out)

	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, filepath.Join(dir, "S0001.vcf"), lines[0])
	assert.FileExists(t, lines[1])
}
