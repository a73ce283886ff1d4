package printer

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/mysettle/mysettle/internal/filter"
	"github.com/mysettle/mysettle/pkg/ledger"
)

var statusColors = map[ledger.SessionStatus]*color.Color{
	ledger.StatusCreated:        color.New(color.FgWhite),
	ledger.StatusHandshake:      color.New(color.FgCyan),
	ledger.StatusPendingPolice:  color.New(color.FgYellow, color.Bold),
	ledger.StatusMeetingStarted: color.New(color.FgBlue),
	ledger.StatusPoliceSigned:   color.New(color.FgMagenta),
	ledger.StatusCompleted:      color.New(color.FgGreen),
}

// Status returns the status name in its dashboard colour.
func Status(status ledger.SessionStatus) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return string(status)
}

// SessionTable prints dashboard rows with a total line.
func (p *Printer) SessionTable(rows []filter.Row, total int) error {
	if len(rows) == 0 {
		p.Info("No sessions found.\n")
		return nil
	}

	table := tablewriter.NewWriter(p.Out)
	table.Header("Session", "OTP", "Status", "Driver A", "Driver B", "Created")
	for _, row := range rows {
		s := row.Session
		err := table.Append([]string{
			short(s.ID),
			s.OTP,
			Status(s.Status),
			driver(row.DriverA, s.DriverAID),
			driver(row.DriverB, s.DriverBID),
			time.UnixMilli(s.CreatedAtMs).In(ledger.CaseLocation).Format("2006-01-02 15:04"),
		})
		if err != nil {
			return fmt.Errorf("failed to build table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	p.Info("Showing %d of %d sessions\n", len(rows), total)
	return nil
}

// driver is "Name (PLATE)", or the bare ID when the profile is unknown.
func driver(u *ledger.User, id string) string {
	if u == nil {
		if id == "" {
			return "-"
		}
		return id
	}
	if u.CarPlate == "" {
		return u.Name
	}
	return fmt.Sprintf("%s (%s)", u.Name, u.CarPlate)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
