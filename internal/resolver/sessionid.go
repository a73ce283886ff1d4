// Package resolver expands the short session IDs shown on the dashboard into
// full UUIDs.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// maxListed bounds the matches printed for an ambiguous prefix.
const maxListed = 10

// IsFullID reports whether id has the shape of a complete UUID.
func IsFullID(id string) bool {
	return len(id) == 36 && strings.Count(id, "-") == 4
}

// ResolveSessionID resolves a session ID or unique prefix to a full UUID.
// A full UUID is checked for existence; a prefix must match exactly one
// session.
func ResolveSessionID(ctx context.Context, client *ledger.Client, id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))

	if IsFullID(id) {
		_, err := client.GetSession(ctx, id)
		if ledger.IsNotFound(err) {
			return "", &NotFoundError{ShortID: id}
		}
		if err != nil {
			return "", fmt.Errorf("failed to verify session existence: %w", err)
		}
		return id, nil
	}

	if len(id) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(id))
	}

	matches, err := client.SessionIDsWithPrefix(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to search for session: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: id}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: id, Matches: matches}
	}
}

// NotFoundError indicates no session matched the ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no sessions found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple sessions matched the prefix.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d sessions", e.ShortID, len(e.Matches))
}

// Candidates lists the matching IDs for display, at most ten, then "...and N more".
func (e *AmbiguousError) Candidates() string {
	var b strings.Builder
	for i, id := range e.Matches {
		if i == maxListed {
			fmt.Fprintf(&b, "  ...and %d more\n", len(e.Matches)-maxListed)
			break
		}
		fmt.Fprintf(&b, "  %s\n", id)
	}
	return b.String()
}
