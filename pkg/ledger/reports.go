package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EnsureReport returns the session's report, creating it with the next
// report ID if it does not exist yet. Concurrent callers always observe
// the same report.
func (c *Client) EnsureReport(ctx context.Context, sessionID string) (*Report, error) {
	key := ReportKey(c.namespace, sessionID)

	var report *Report
	txf := func(tx *redis.Tx) error {
		hashData, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read report from Redis: %w", err)
		}
		if len(hashData) > 0 {
			existing, err := HashToReport(hashData)
			if err != nil {
				return fmt.Errorf("failed to deserialize report: %w", err)
			}
			report = existing
			return nil
		}

		// A lost race only leaves a gap in the sequence
		id, err := tx.Incr(ctx, ReportSeqKey(c.namespace)).Result()
		if err != nil {
			return fmt.Errorf("failed to allocate report id: %w", err)
		}

		created := &Report{ID: id, SessionID: sessionID, CreatedAtMs: nowMs()}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, ReportToHash(created))
			return nil
		})
		if err != nil {
			return err
		}
		report = created
		return nil
	}

	if err := c.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return report, nil
}

// GetReport retrieves the report attached to a session.
// Returns (nil, redis.Nil) if no driver has submitted yet.
func (c *Client) GetReport(ctx context.Context, sessionID string) (*Report, error) {
	hashData, err := c.rdb.HGetAll(ctx, ReportKey(c.namespace, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read report from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	report, err := HashToReport(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize report: %w", err)
	}
	return report, nil
}

// UpdateReport applies mutate to the current report and writes it atomically.
// Semantics match UpdateSession.
func (c *Client) UpdateReport(ctx context.Context, sessionID string, mutate func(*Report) error) (*Report, error) {
	key := ReportKey(c.namespace, sessionID)

	var updated *Report
	txf := func(tx *redis.Tx) error {
		hashData, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read report from Redis: %w", err)
		}
		if len(hashData) == 0 {
			return redis.Nil
		}

		report, err := HashToReport(hashData)
		if err != nil {
			return fmt.Errorf("failed to deserialize report: %w", err)
		}

		if err := mutate(report); err != nil {
			if errors.Is(err, ErrUnchanged) {
				updated = report
				return nil
			}
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, ReportToHash(report))
			return nil
		})
		if err != nil {
			return err
		}
		updated = report
		return nil
	}

	if err := c.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return updated, nil
}

// AppendEvidence appends evidence items to the session's report and records
// uploaderID as a submitter, even when items is empty. Items without an ID
// get a fresh UUID; items without a timestamp are stamped now.
// Returns the number of distinct submitters after the write.
func (c *Client) AppendEvidence(ctx context.Context, sessionID, uploaderID string, items []*Evidence) (int64, error) {
	if uploaderID == "" {
		return 0, fmt.Errorf("uploader_id cannot be empty")
	}

	payloads := make([]interface{}, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.TimestampMs == 0 {
			item.TimestampMs = nowMs()
		}
		item.UploaderID = uploaderID
		if err := item.Validate(); err != nil {
			return 0, fmt.Errorf("invalid evidence: %w", err)
		}

		encoded, err := json.Marshal(item)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal evidence: %w", err)
		}
		payloads = append(payloads, string(encoded))
	}

	uploadersKey := UploadersKey(c.namespace, sessionID)
	var count *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(payloads) > 0 {
			pipe.RPush(ctx, EvidenceKey(c.namespace, sessionID), payloads...)
		}
		pipe.SAdd(ctx, uploadersKey, uploaderID)
		count = pipe.SCard(ctx, uploadersKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to write evidence to Redis: %w", err)
	}

	return count.Val(), nil
}

// Submitters returns the sorted IDs of users who have submitted to a report.
func (c *Client) Submitters(ctx context.Context, sessionID string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, UploadersKey(c.namespace, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read submitters: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

// ListEvidence returns a report's evidence in upload order.
func (c *Client) ListEvidence(ctx context.Context, sessionID string) ([]*Evidence, error) {
	raw, err := c.rdb.LRange(ctx, EvidenceKey(c.namespace, sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence from Redis: %w", err)
	}

	items := make([]*Evidence, 0, len(raw))
	for _, entry := range raw {
		var item Evidence
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
		}
		items = append(items, &item)
	}
	return items, nil
}

// PutDraft creates or replaces a driver's draft.
func (c *Client) PutDraft(ctx context.Context, d *Draft) error {
	if d.SessionID == "" || d.UserID == "" {
		return fmt.Errorf("draft requires session_id and user_id")
	}

	key := DraftKey(c.namespace, d.SessionID, d.UserID)
	if err := c.rdb.HSet(ctx, key, DraftToHash(d)).Err(); err != nil {
		return fmt.Errorf("failed to write draft to Redis: %w", err)
	}
	return nil
}

// GetDraft retrieves a driver's draft.
// Returns (nil, redis.Nil) if the driver never saved one.
func (c *Client) GetDraft(ctx context.Context, sessionID, userID string) (*Draft, error) {
	hashData, err := c.rdb.HGetAll(ctx, DraftKey(c.namespace, sessionID, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read draft from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}
	return HashToDraft(hashData), nil
}

// PutPoliceDetails stores the police report form for a session.
func (c *Client) PutPoliceDetails(ctx context.Context, d *PoliceDetails) error {
	if d.SessionID == "" {
		return fmt.Errorf("police details require session_id")
	}

	encoded, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal police details: %w", err)
	}

	if err := c.rdb.Set(ctx, PoliceDetailsKey(c.namespace, d.SessionID), encoded, 0).Err(); err != nil {
		return fmt.Errorf("failed to write police details to Redis: %w", err)
	}
	return nil
}

// GetPoliceDetails retrieves the police report form for a session.
// Returns (nil, redis.Nil) if it has not been generated yet.
func (c *Client) GetPoliceDetails(ctx context.Context, sessionID string) (*PoliceDetails, error) {
	raw, err := c.rdb.Get(ctx, PoliceDetailsKey(c.namespace, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to read police details from Redis: %w", err)
	}

	var details PoliceDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal police details: %w", err)
	}
	return &details, nil
}
