package assistant

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

// RunText reads one command per line from r instead of listening to the
// microphone. Each line goes through [Assistant.HandleText], so the wake
// phrase is still required outside a session. The session timeout is polled
// every PollInterval. RunText returns nil at end of input and ctx.Err() on
// cancellation.
func (a *Assistant) RunText(ctx context.Context, r io.Reader) error {
	defer a.c.Session.Shutdown()
	a.running.Store(true)
	defer a.running.Store(false)

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	if a.cfg.ReadyMessage != "" {
		a.say(ctx, a.cfg.ReadyMessage)
	}
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.poll()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil {
						slog.Warn("assistant: read input", "err", err)
					}
				default:
				}
				return nil
			}
			a.poll()
			if line = strings.TrimSpace(line); line != "" {
				a.HandleText(ctx, line)
			}
		}
	}
}
