package linux

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner executes external commands. Tests replace it with a fake.
type Runner interface {
	// Run executes name and returns its standard output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start launches name without waiting for it to exit.
	Start(name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

// Run implements [Runner].
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Start implements [Runner]. The child is reaped in the background.
func (ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("linux: launched process exited", "cmd", name, "err", err)
		}
	}()
	return nil
}
