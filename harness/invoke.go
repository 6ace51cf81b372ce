package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Invocation is the outcome of running one command to completion.
type Invocation struct {
	ExitCode int
	Elapsed  time.Duration
	// Err is set when the process could not be started or waited on.
	// A plain non-zero exit leaves it nil.
	Err error
}

// Failed reports whether the invocation counts as a failed test.
func (inv Invocation) Failed() bool {
	return inv.Err != nil || inv.ExitCode != 0
}

// Invoker runs a command synchronously.
type Invoker interface {
	Invoke(ctx context.Context, argv []string) Invocation
}

// ExecInvoker runs commands as child processes that share the
// benchmark's stdout and stderr unless overridden.
type ExecInvoker struct {
	Stdout io.Writer
	Stderr io.Writer
	Env    []string
	Logger *slog.Logger
}

// NewExecInvoker creates an ExecInvoker writing child output to the
// process' own stdout and stderr.
func NewExecInvoker(logger *slog.Logger) *ExecInvoker {
	return &ExecInvoker{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// Invoke starts argv[0] with the remaining arguments and blocks until
// it exits. Elapsed covers start to exit.
func (e *ExecInvoker) Invoke(ctx context.Context, argv []string) Invocation {
	if len(argv) == 0 {
		return Invocation{ExitCode: -1, Err: errors.New("empty command")}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err == nil {
		return Invocation{Elapsed: elapsed}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if e.Logger != nil {
			e.Logger.Debug("command exited non-zero",
				slog.String("binary", argv[0]),
				slog.Int("exit_code", exitErr.ExitCode()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return Invocation{ExitCode: exitErr.ExitCode(), Elapsed: elapsed}
	}

	return Invocation{
		ExitCode: -1,
		Elapsed:  elapsed,
		Err:      fmt.Errorf("run %s: %w", argv[0], err),
	}
}
