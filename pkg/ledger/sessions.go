package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CreateSession stores a new session and binds its OTP for otpTTL
// (zero means the binding never expires).
// Returns ErrOTPTaken if another session currently holds the same code.
func (c *Client) CreateSession(ctx context.Context, s *Session, otpTTL time.Duration) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	if s.CreatedAtMs == 0 {
		s.CreatedAtMs = nowMs()
	}
	if s.UpdatedAtMs == 0 {
		s.UpdatedAtMs = s.CreatedAtMs
	}

	otpKey := OTPKey(c.namespace, s.OTP)
	bound, err := c.rdb.SetNX(ctx, otpKey, s.ID, otpTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to bind otp: %w", err)
	}
	if !bound {
		return ErrOTPTaken
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, SessionKey(c.namespace, s.ID), SessionToHash(s))
		pipe.ZAdd(ctx, SessionsKey(c.namespace), redis.Z{Score: float64(s.CreatedAtMs), Member: s.ID})
		pipe.SAdd(ctx, StatusIndexKey(c.namespace, s.Status), s.ID)
		return nil
	})
	if err != nil {
		// Release the code so a retry can reuse it
		c.rdb.Del(ctx, otpKey)
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID.
// Returns (nil, redis.Nil) if the session doesn't exist.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	hashData, err := c.rdb.HGetAll(ctx, SessionKey(c.namespace, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	session, err := HashToSession(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	return session, nil
}

// FindSessionByOTP resolves a join code to its session.
// Returns (nil, redis.Nil) if no live session holds the code.
func (c *Client) FindSessionByOTP(ctx context.Context, otp string) (*Session, error) {
	sessionID, err := c.rdb.Get(ctx, OTPKey(c.namespace, otp)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to resolve otp: %w", err)
	}
	return c.GetSession(ctx, sessionID)
}

// UpdateSession applies mutate to the current session state and writes the
// result atomically. The mutation runs inside WATCH on the session key and is
// re-run from fresh state if a concurrent writer wins the race, so it must be
// free of side effects.
//
// Errors returned by mutate are passed through unchanged, except ErrUnchanged,
// which skips the write and returns the current session.
// The status index is kept in step with the session's status.
func (c *Client) UpdateSession(ctx context.Context, sessionID string, mutate func(*Session) error) (*Session, error) {
	key := SessionKey(c.namespace, sessionID)

	var updated *Session
	txf := func(tx *redis.Tx) error {
		hashData, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read session from Redis: %w", err)
		}
		if len(hashData) == 0 {
			return redis.Nil
		}

		session, err := HashToSession(hashData)
		if err != nil {
			return fmt.Errorf("failed to deserialize session: %w", err)
		}
		previous := session.Status

		if err := mutate(session); err != nil {
			if errors.Is(err, ErrUnchanged) {
				updated = session
				return nil
			}
			return err
		}

		if err := session.Validate(); err != nil {
			return fmt.Errorf("invalid session: %w", err)
		}
		session.UpdatedAtMs = nowMs()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, SessionToHash(session))
			if session.Status != previous {
				pipe.SRem(ctx, StatusIndexKey(c.namespace, previous), session.ID)
				pipe.SAdd(ctx, StatusIndexKey(c.namespace, session.Status), session.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}

		updated = session
		return nil
	}

	if err := c.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return updated, nil
}

// ListSessions returns every session ordered by creation time, oldest first.
func (c *Client) ListSessions(ctx context.Context) ([]*Session, error) {
	ids, err := c.rdb.ZRange(ctx, SessionsKey(c.namespace), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return c.loadSessions(ctx, ids)
}

// SessionIDsWithPrefix returns the IDs of sessions whose ID starts with
// prefix, oldest first.
func (c *Client) SessionIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	ids, err := c.rdb.ZRange(ctx, SessionsKey(c.namespace), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	matches := []string{}
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	return matches, nil
}

// ListSessionsByStatus returns the sessions currently in status, oldest first.
func (c *Client) ListSessionsByStatus(ctx context.Context, status SessionStatus) ([]*Session, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	ids, err := c.rdb.SMembers(ctx, StatusIndexKey(c.namespace, status)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions by status: %w", err)
	}
	return c.loadSessions(ctx, ids)
}

// loadSessions fetches session hashes in one round trip, skipping IDs whose
// hash has disappeared.
func (c *Client) loadSessions(ctx context.Context, ids []string) ([]*Session, error) {
	if len(ids) == 0 {
		return []*Session{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, SessionKey(c.namespace, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions from Redis: %w", err)
	}

	sessions := make([]*Session, 0, len(ids))
	for _, cmd := range cmds {
		hashData := cmd.Val()
		if len(hashData) == 0 {
			continue
		}
		session, err := HashToSession(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize session: %w", err)
		}
		sessions = append(sessions, session)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAtMs < sessions[j].CreatedAtMs
	})
	return sessions, nil
}
