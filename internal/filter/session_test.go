package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysettle/mysettle/pkg/ledger"
)

func row(id string, status ledger.SessionStatus, createdMs int64, plateA, plateB string) Row {
	r := Row{
		Session: &ledger.Session{ID: id, OTP: "123456", Status: status, CreatedAtMs: createdMs, UpdatedAtMs: createdMs},
		DriverA: &ledger.User{ID: id + "-a", Name: "User " + id + "-a", CarPlate: plateA},
	}
	if plateB != "" {
		r.DriverB = &ledger.User{ID: id + "-b", Name: "User " + id + "-b", CarPlate: plateB}
	}
	return r
}

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Session.ID
	}
	return out
}

func sampleRows() []Row {
	return []Row{
		row("s1", ledger.StatusPendingPolice, 1000, "WABC123", "WXY9"),
		row("s2", ledger.StatusCompleted, 2000, "JKL4455", "BCD8"),
		row("s3", ledger.StatusPendingPolice, 3000, "wqq777", ""),
		row("s4", ledger.StatusMeetingStarted, 4000, "PPP1", "WZZ2"),
	}
}

func TestCriteriaValidate(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		c := &Criteria{}
		require.NoError(t, c.Validate())
		assert.Equal(t, SortCreated, c.SortBy)
		assert.Equal(t, 1, c.Page)
		assert.Equal(t, DefaultPageSize, c.PageSize)
	})

	tests := []struct {
		name     string
		criteria Criteria
	}{
		{"unknown status", Criteria{Statuses: []ledger.SessionStatus{"OPEN"}}},
		{"unknown sort", Criteria{SortBy: "name"}},
		{"bad glob", Criteria{PlateGlob: "W["}},
		{"negative page", Criteria{Page: -1}},
		{"huge page size", Criteria{PageSize: MaxPageSize + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.criteria
			assert.Error(t, c.Validate())
		})
	}
}

func TestCriteriaMatches(t *testing.T) {
	rows := sampleRows()

	tests := []struct {
		name     string
		criteria Criteria
		expected []string
	}{
		{"no filters", Criteria{}, []string{"s1", "s2", "s3", "s4"}},
		{"status", Criteria{Statuses: []ledger.SessionStatus{ledger.StatusPendingPolice}}, []string{"s1", "s3"}},
		{"two statuses", Criteria{Statuses: []ledger.SessionStatus{ledger.StatusCompleted, ledger.StatusMeetingStarted}}, []string{"s2", "s4"}},
		{"since", Criteria{SinceMs: 2000}, []string{"s2", "s3", "s4"}},
		{"until", Criteria{UntilMs: 2000}, []string{"s1", "s2"}},
		{"plate glob either driver, any case", Criteria{PlateGlob: "w*"}, []string{"s1", "s3", "s4"}},
		{"query by name", Criteria{Query: "S2-B"}, []string{"s2"}},
		{"query by plate", Criteria{Query: "qq7"}, []string{"s3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range rows {
				if tt.criteria.Matches(r) {
					got = append(got, r.Session.ID)
				}
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCriteriaApply(t *testing.T) {
	t.Run("sorts descending by creation", func(t *testing.T) {
		c := &Criteria{Desc: true}
		require.NoError(t, c.Validate())
		page, total := c.Apply(sampleRows())
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"s4", "s3", "s2", "s1"}, ids(page))
	})

	t.Run("sorts by lifecycle status", func(t *testing.T) {
		c := &Criteria{SortBy: SortStatus}
		require.NoError(t, c.Validate())
		page, _ := c.Apply(sampleRows())
		assert.Equal(t, []string{"s1", "s3", "s4", "s2"}, ids(page))
	})

	t.Run("sorts by driver A plate", func(t *testing.T) {
		c := &Criteria{SortBy: SortPlate}
		require.NoError(t, c.Validate())
		page, _ := c.Apply(sampleRows())
		assert.Equal(t, []string{"s2", "s4", "s1", "s3"}, ids(page))
	})

	t.Run("pages after filtering", func(t *testing.T) {
		c := &Criteria{PageSize: 3, Page: 2}
		require.NoError(t, c.Validate())
		page, total := c.Apply(sampleRows())
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"s4"}, ids(page))
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		c := &Criteria{PageSize: 3, Page: 5}
		require.NoError(t, c.Validate())
		page, total := c.Apply(sampleRows())
		assert.Equal(t, 4, total)
		assert.Empty(t, page)
	})

	t.Run("reports filtered total", func(t *testing.T) {
		c := &Criteria{Statuses: []ledger.SessionStatus{ledger.StatusPendingPolice}}
		require.NoError(t, c.Validate())
		_, total := c.Apply(sampleRows())
		assert.Equal(t, 2, total)
	})
}

func TestParseStatuses(t *testing.T) {
	tests := []struct {
		raw  string
		want []ledger.SessionStatus
	}{
		{"", []ledger.SessionStatus{ledger.StatusPendingPolice}},
		{"  ", []ledger.SessionStatus{ledger.StatusPendingPolice}},
		{"all", nil},
		{"ALL", nil},
		{"completed", []ledger.SessionStatus{ledger.StatusCompleted}},
		{"created, handshake,", []ledger.SessionStatus{ledger.StatusCreated, ledger.StatusHandshake}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatuses(tt.raw))
		})
	}
}
