package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mysettle/mysettle/internal/filter"
	"github.com/mysettle/mysettle/internal/timespec"
	"github.com/mysettle/mysettle/pkg/ledger"
)

type dashboardOptions struct {
	status   string
	since    string
	until    string
	plate    string
	query    string
	sort     string
	desc     bool
	page     int
	pageSize int
	json     bool
}

// dashboardEntry is one line of --json output.
type dashboardEntry struct {
	*ledger.Session
	DriverA *ledger.User `json:"driver_a,omitempty"`
	DriverB *ledger.User `json:"driver_b,omitempty"`
}

type dashboardOutput struct {
	Total    int              `json:"total"`
	Sessions []dashboardEntry `json:"sessions"`
}

func newDashboardCommand(a *app) *cobra.Command {
	opts := &dashboardOptions{}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "List cases as the police dashboard does",
		Long: `List cases with their drivers, filtered and ordered like the police
dashboard. Without --status only cases waiting for review are shown.

Time Formats (--since/--until):
  Duration: 1h30m, 2h, 30m (relative to now)
  Absolute: 2025-10-29T13:00:00Z (RFC3339)
  Date:     2025-10-29 (MYT; --since starts at midnight, --until
            includes the whole day)

Examples:
  # Cases waiting for police review
  mysettle dashboard

  # Every closed case from the last day, as JSON
  mysettle dashboard --status completed --since 24h --json

  # Cases involving a Selangor plate
  mysettle dashboard --status all --plate 'B*'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dashboard(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.status, "status", "", "Comma-separated statuses, or 'all' (default PENDING_POLICE)")
	cmd.Flags().StringVar(&opts.since, "since", "", "Only cases created after this time")
	cmd.Flags().StringVar(&opts.until, "until", "", "Only cases created before this time")
	cmd.Flags().StringVar(&opts.plate, "plate", "", "Glob on either driver's car plate")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Search session ID, OTP, names and plates")
	cmd.Flags().StringVar(&opts.sort, "sort", "created", "Order by created, updated, status or plate")
	cmd.Flags().BoolVar(&opts.desc, "desc", false, "Reverse the order")
	cmd.Flags().IntVar(&opts.page, "page", 1, "Page number")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", filter.DefaultPageSize, "Rows per page")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON instead of a table")
	return cmd
}

func (opts *dashboardOptions) criteria(now time.Time) (filter.Criteria, error) {
	c := filter.Criteria{
		Statuses:  filter.ParseStatuses(opts.status),
		PlateGlob: opts.plate,
		Query:     opts.query,
		SortBy:    filter.SortField(strings.ToLower(opts.sort)),
		Desc:      opts.desc,
		Page:      opts.page,
		PageSize:  opts.pageSize,
	}

	since, until, err := timespec.ParseRangeAt(opts.since, opts.until, now, ledger.CaseLocation)
	if err != nil {
		return c, err
	}
	c.SinceMs, c.UntilMs = since, until

	return c, c.Validate()
}

func (a *app) dashboard(cmd *cobra.Command, opts *dashboardOptions) error {
	p := output(cmd)
	ctx := cmd.Context()

	criteria, err := opts.criteria(time.Now())
	if err != nil {
		return p.Error(
			"invalid dashboard filter",
			err.Error(),
			[]string{"Run 'mysettle dashboard --help' for the accepted formats"},
		)
	}

	client, err := a.connect(ctx, p)
	if err != nil {
		return err
	}
	defer client.Close()

	rows, total, err := a.service(client, "").Dashboard(ctx, criteria)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if !opts.json {
		return p.SessionTable(rows, total)
	}

	out := dashboardOutput{Total: total, Sessions: make([]dashboardEntry, 0, len(rows))}
	for _, row := range rows {
		out.Sessions = append(out.Sessions, dashboardEntry{Session: row.Session, DriverA: row.DriverA, DriverB: row.DriverB})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
