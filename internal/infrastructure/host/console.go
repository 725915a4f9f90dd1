// Package host provides host-surface implementations for the update
// core. The console host backs the CLI; a windowed shell supplies its
// own implementation of the same port.
package host

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/nevna/upwell/internal/application/port"
	"github.com/nevna/upwell/internal/logging"
)

// Console prints notices to a writer and restarts by re-executing the
// current binary in place.
type Console struct {
	out io.Writer
}

// NewConsole creates a console host writing notices to out.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// Notify prints a user-facing message.
func (c *Console) Notify(ctx context.Context, level port.HostNoticeLevel, message string) {
	logging.FromContext(ctx).Debug().
		Str("level", level.String()).
		Str("message", message).
		Msg("host notice")
	fmt.Fprintf(c.out, "[%s] %s\n", level, message)
}

// Restart replaces the current process with a fresh execution of the
// same binary, picking up the files the installer just applied.
func (c *Console) Restart(ctx context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve current executable: %w", err)
	}
	logging.FromContext(ctx).Info().Str("exe", exe).Msg("restarting")
	if err := unix.Exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("failed to re-exec %s: %w", exe, err)
	}
	return nil
}
