// Package watch follows a session from the command line: polling until it
// reaches a status, or streaming its events as they happen.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// DefaultPollInterval matches the reconnect polling of the driver app.
const DefaultPollInterval = 200 * time.Millisecond

// PollForStatus polls a session until its status reaches want or any later
// lifecycle state. Returns the session or an error if timeout occurs.
// A session that does not exist yet is polled for like any other.
func PollForStatus(ctx context.Context, client *ledger.Client, sessionID string, want ledger.SessionStatus, interval, timeout time.Duration) (*ledger.Session, error) {
	if err := want.Validate(); err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for status %s after %v", want, timeout)

		case <-ticker.C:
			session, err := client.GetSession(ctx, sessionID)
			if err != nil {
				if ledger.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query session: %w", err)
			}

			if rank(session.Status) >= rank(want) {
				return session, nil
			}
		}
	}
}

// Stream writes a session's events to w until ctx is cancelled or the case
// closes.
func Stream(ctx context.Context, client *ledger.Client, sessionID string, format OutputFormat, w io.Writer) error {
	f, err := newFormatter(format, w)
	if err != nil {
		return err
	}

	sub, err := client.SubscribeSessionEvents(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := f.FormatEvent(ev); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
			if ev.Type == ledger.EventCaseClosed {
				return nil
			}

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			return fmt.Errorf("subscription error: %w", err)
		}
	}
}

func rank(status ledger.SessionStatus) int {
	for i, s := range ledger.AllStatuses {
		if s == status {
			return i
		}
	}
	return -1
}
