package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxTxAttempts bounds how often an optimistic transaction is retried when a
// watched key changes underneath it.
const maxTxAttempts = 16

var (
	// ErrConflict is returned when an optimistic transaction kept losing
	// the race against concurrent writers.
	ErrConflict = errors.New("ledger: too much contention, transaction aborted")

	// ErrOTPTaken is returned by CreateSession when the join code is already
	// bound to another live session.
	ErrOTPTaken = errors.New("ledger: otp already in use")

	// ErrUnchanged may be returned by an UpdateSession or UpdateReport
	// mutation to signal that nothing needs to be written.
	ErrUnchanged = errors.New("ledger: no change")
)

// Client provides namespace-scoped Redis operations for MySettle sessions.
// All keys and channels are automatically prefixed with the namespace.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// NewClient creates a new ledger client for the specified namespace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: deployment identifier (must not be empty)
//
// Returns an error if namespace is empty.
func NewClient(redisOpts *redis.Options, namespace string) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// Namespace returns the key prefix this client writes under.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
// Returns an error if Redis is not reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PutUser creates or replaces a user profile.
func (c *Client) PutUser(ctx context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	key := UserKey(c.namespace, u.ID)
	if err := c.rdb.HSet(ctx, key, UserToHash(u)).Err(); err != nil {
		return fmt.Errorf("failed to write user to Redis: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
// Returns (nil, redis.Nil) if the user doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	hashData, err := c.rdb.HGetAll(ctx, UserKey(c.namespace, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	user, err := HashToUser(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize user: %w", err)
	}
	return user, nil
}

// watch runs fn inside WATCH on keys, retrying while another client
// modifies a watched key before EXEC.
func (c *Client) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := c.rdb.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// nowMs returns the current time as Unix milliseconds.
func nowMs() int64 {
	return time.Now().UnixMilli()
}

// IsNotFound returns true if the error indicates a key was not found in Redis.
// Use this to distinguish "not found" from other Redis errors.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
