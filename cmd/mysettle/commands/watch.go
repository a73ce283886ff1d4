package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mysettle/mysettle/internal/printer"
	"github.com/mysettle/mysettle/internal/resolver"
	"github.com/mysettle/mysettle/internal/watch"
	"github.com/mysettle/mysettle/pkg/ledger"
)

func newWatchCommand(a *app) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Stream a case's events",
		Long: `Stream the events of one case as they happen: pairing, submissions,
the police meeting and every signature. Stops when the case closes.
The session may be named by a unique prefix of at least 6 characters.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  mysettle watch 3f2b8c1e
  mysettle watch 3f2b8c1e -o json > events.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := output(cmd)

			format, err := parseOutputFormat(p, outputFormat)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := a.connect(ctx, p)
			if err != nil {
				return err
			}
			defer client.Close()

			session, err := lookupSession(ctx, p, client, args[0])
			if err != nil {
				return err
			}
			if session.Status == ledger.StatusCompleted {
				p.Info("Session %s is already %s\n", session.ID, printer.Status(session.Status))
				return nil
			}

			return watch.Stream(ctx, client, session.ID, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "default", "Output format (default or json)")
	return cmd
}

func newWaitCommand(a *app) *cobra.Command {
	var (
		status   string
		timeout  time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait <session-id>",
		Short: "Wait until a case reaches a status",
		Long: `Block until a case reaches the given status or any later one, then print
it. Exits non-zero on timeout. A case that does not exist yet is waited for.

Examples:
  # Wait for both drivers to submit
  mysettle wait 3f2b8c1e --status PENDING_POLICE

  # Wait up to an hour for the case to close
  mysettle wait 3f2b8c1e --status completed --timeout 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := output(cmd)

			want := ledger.SessionStatus(strings.ToUpper(status))
			if err := want.Validate(); err != nil {
				return p.Error(
					"invalid status",
					err.Error(),
					[]string{fmt.Sprintf("Valid statuses: %s", statusList())},
				)
			}
			if timeout <= 0 {
				return p.Error(
					"invalid timeout",
					fmt.Sprintf("--timeout must be positive, got %v", timeout),
					[]string{"Pass a duration such as --timeout 30s or --timeout 1h"},
				)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := a.connect(ctx, p)
			if err != nil {
				return err
			}
			defer client.Close()

			// A full ID may name a session that does not exist yet
			sessionID := args[0]
			if !resolver.IsFullID(sessionID) {
				if sessionID, err = resolveSessionID(ctx, p, client, sessionID); err != nil {
					return err
				}
			}

			session, err := watch.PollForStatus(ctx, client, sessionID, want, interval, timeout)
			if err != nil {
				return p.ErrorWithContext(
					"wait failed",
					err.Error(),
					map[string]string{"Session": sessionID, "Status": string(want)},
					nil,
				)
			}

			p.Success("Session %s is %s\n", session.ID, printer.Status(session.Status))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(ledger.StatusPendingPolice), "Status to wait for")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Give up after this long")
	cmd.Flags().DurationVar(&interval, "interval", watch.DefaultPollInterval, "Polling interval")
	return cmd
}

func parseOutputFormat(p *printer.Printer, raw string) (watch.OutputFormat, error) {
	switch raw {
	case "default":
		return watch.OutputFormatDefault, nil
	case "json":
		return watch.OutputFormatJSON, nil
	default:
		return "", p.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", raw),
			[]string{"Valid formats: default, json"},
		)
	}
}

// lookupSession resolves a session ID or unique prefix and loads the
// session, printing a friendly error when it is missing or ambiguous.
func lookupSession(ctx context.Context, p *printer.Printer, client *ledger.Client, id string) (*ledger.Session, error) {
	sessionID, err := resolveSessionID(ctx, p, client, id)
	if err != nil {
		return nil, err
	}

	session, err := client.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

func resolveSessionID(ctx context.Context, p *printer.Printer, client *ledger.Client, id string) (string, error) {
	sessionID, err := resolver.ResolveSessionID(ctx, client, id)
	if err == nil {
		return sessionID, nil
	}

	var (
		notFound  *resolver.NotFoundError
		ambiguous *resolver.AmbiguousError
	)
	switch {
	case errors.As(err, &notFound):
		return "", p.ErrorWithContext(
			"session not found",
			fmt.Sprintf("No session matches %s in this namespace.", id),
			map[string]string{"Namespace": client.Namespace()},
			[]string{"List cases:\n  mysettle dashboard --status all"},
		)
	case errors.As(err, &ambiguous):
		return "", p.Error(
			"ambiguous session ID",
			fmt.Sprintf("'%s' matches %d sessions:\n%s", id, len(ambiguous.Matches), ambiguous.Candidates()),
			[]string{"Use a longer prefix to uniquely identify the session."},
		)
	default:
		return "", p.Error("invalid session ID", err.Error(), nil)
	}
}

func statusList() string {
	names := make([]string, len(ledger.AllStatuses))
	for i, s := range ledger.AllStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
