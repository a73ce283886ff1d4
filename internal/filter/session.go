package filter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// SortField names the column the dashboard is ordered by.
type SortField string

const (
	SortCreated SortField = "created"
	SortUpdated SortField = "updated"
	SortStatus  SortField = "status"
	SortPlate   SortField = "plate"
)

// DefaultPageSize applies when Criteria.PageSize is zero.
const DefaultPageSize = 20

// MaxPageSize caps Criteria.PageSize.
const MaxPageSize = 100

// Row is one dashboard line: a session with both drivers' profiles.
// DriverA or DriverB is nil when the profile is unknown.
type Row struct {
	Session *ledger.Session
	DriverA *ledger.User
	DriverB *ledger.User
}

// ParseStatuses reads the dashboard status selector: "" selects the review
// queue (PENDING_POLICE), "all" selects every status, anything else is a
// comma-separated list matched case-insensitively.
func ParseStatuses(raw string) []ledger.SessionStatus {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return []ledger.SessionStatus{ledger.StatusPendingPolice}
	case "all":
		return nil
	}

	var statuses []ledger.SessionStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			statuses = append(statuses, ledger.SessionStatus(strings.ToUpper(part)))
		}
	}
	return statuses
}

// Criteria defines filtering, ordering and paging for dashboard rows.
// All filters are ANDed together - a row must match ALL criteria to pass.
type Criteria struct {
	Statuses  []ledger.SessionStatus // Any of, empty = no filter
	SinceMs   int64                  // Created at or after, 0 = no filter
	UntilMs   int64                  // Created at or before, 0 = no filter
	PlateGlob string                 // Glob on either driver's plate, case-insensitive, empty = no filter
	Query     string                 // Substring of session ID, OTP, driver names or plates, empty = no filter
	SortBy    SortField              // Default SortCreated
	Desc      bool
	Page      int // 1-based, 0 = first page
	PageSize  int // 0 = DefaultPageSize
}

// Validate checks enum values and applies paging defaults.
func (c *Criteria) Validate() error {
	for _, status := range c.Statuses {
		if err := status.Validate(); err != nil {
			return err
		}
	}

	switch c.SortBy {
	case "":
		c.SortBy = SortCreated
	case SortCreated, SortUpdated, SortStatus, SortPlate:
	default:
		return fmt.Errorf("invalid sort field: %s (must be 'created', 'updated', 'status', or 'plate')", c.SortBy)
	}

	if c.PlateGlob != "" {
		if _, err := filepath.Match(c.PlateGlob, ""); err != nil {
			return fmt.Errorf("invalid plate pattern %q: %w", c.PlateGlob, err)
		}
	}

	if c.Page < 0 {
		return fmt.Errorf("page must be >= 1")
	}
	if c.Page == 0 {
		c.Page = 1
	}

	if c.PageSize < 0 || c.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d", MaxPageSize)
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}

	return nil
}

// Matches returns true if the row matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(row Row) bool {
	s := row.Session

	if len(c.Statuses) > 0 {
		found := false
		for _, status := range c.Statuses {
			if s.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if c.SinceMs > 0 && s.CreatedAtMs < c.SinceMs {
		return false
	}
	if c.UntilMs > 0 && s.CreatedAtMs > c.UntilMs {
		return false
	}

	if c.PlateGlob != "" {
		pattern := strings.ToUpper(c.PlateGlob)
		if !globMatch(pattern, plate(row.DriverA)) && !globMatch(pattern, plate(row.DriverB)) {
			return false
		}
	}

	if c.Query != "" {
		needle := strings.ToLower(c.Query)
		haystack := []string{s.ID, s.OTP, name(row.DriverA), name(row.DriverB), plate(row.DriverA), plate(row.DriverB)}
		hit := false
		for _, field := range haystack {
			if strings.Contains(strings.ToLower(field), needle) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	return true
}

// Apply filters and sorts rows and returns the requested page together with
// the number of rows that matched before paging. Call Validate first.
func (c *Criteria) Apply(rows []Row) ([]Row, int) {
	matched := make([]Row, 0, len(rows))
	for _, row := range rows {
		if c.Matches(row) {
			matched = append(matched, row)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if c.Desc {
			return c.less(matched[j], matched[i])
		}
		return c.less(matched[i], matched[j])
	})

	total := len(matched)
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := c.Page
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start >= total {
		return []Row{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total
}

// less orders rows by the sort field, breaking ties by creation time then ID.
func (c *Criteria) less(a, b Row) bool {
	switch c.SortBy {
	case SortUpdated:
		if a.Session.UpdatedAtMs != b.Session.UpdatedAtMs {
			return a.Session.UpdatedAtMs < b.Session.UpdatedAtMs
		}
	case SortStatus:
		if ra, rb := statusRank(a.Session.Status), statusRank(b.Session.Status); ra != rb {
			return ra < rb
		}
	case SortPlate:
		if pa, pb := plate(a.DriverA), plate(b.DriverA); pa != pb {
			return pa < pb
		}
	}

	if a.Session.CreatedAtMs != b.Session.CreatedAtMs {
		return a.Session.CreatedAtMs < b.Session.CreatedAtMs
	}
	return a.Session.ID < b.Session.ID
}

// statusRank is the lifecycle position of a status.
func statusRank(status ledger.SessionStatus) int {
	for i, s := range ledger.AllStatuses {
		if s == status {
			return i
		}
	}
	return len(ledger.AllStatuses)
}

func globMatch(pattern, value string) bool {
	if value == "" {
		return false
	}
	matched, err := filepath.Match(pattern, value)
	return err == nil && matched
}

func plate(u *ledger.User) string {
	if u == nil {
		return ""
	}
	return strings.ToUpper(u.CarPlate)
}

func name(u *ledger.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}
