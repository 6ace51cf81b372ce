package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DropCachesPath is the kernel knob written to flush the page cache,
// dentries and inodes.
const DropCachesPath = "/proc/sys/vm/drop_caches"

// Flusher clears OS filesystem caches before a measured invocation.
type Flusher interface {
	Flush(ctx context.Context) error
}

// CacheFlusher syncs dirty pages and drops the Linux page cache through
// sudo. It needs passwordless sudo for tee; without it the flush fails
// and callers carry on.
type CacheFlusher struct {
	Logger *slog.Logger
}

// Flush runs sync followed by `echo 3 | sudo -n tee /proc/sys/vm/drop_caches`.
func (f *CacheFlusher) Flush(ctx context.Context) error {
	f.Logger.InfoContext(ctx, "syncing and flushing linux caches")

	if err := exec.CommandContext(ctx, "sync").Run(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	cmd := exec.CommandContext(ctx, "sudo", "-n", "tee", DropCachesPath)
	cmd.Stdin = strings.NewReader("3\n")

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("drop caches: %w: %s",
			err, strings.TrimSpace(string(out)))
	}

	return nil
}

// NopFlusher leaves caches untouched.
type NopFlusher struct{}

// Flush does nothing.
func (NopFlusher) Flush(context.Context) error { return nil }
