package watch

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) *ledger.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := ledger.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func createSession(t *testing.T, client *ledger.Client) *ledger.Session {
	s := &ledger.Session{
		ID:        uuid.NewString(),
		OTP:       "123456",
		DriverAID: "alice",
		Status:    ledger.StatusCreated,
	}
	require.NoError(t, client.CreateSession(context.Background(), s, time.Hour))
	return s
}

func setStatus(t *testing.T, client *ledger.Client, id string, status ledger.SessionStatus) {
	_, err := client.UpdateSession(context.Background(), id, func(s *ledger.Session) error {
		if status != ledger.StatusCreated {
			s.DriverBID = "bob"
		}
		s.Status = status
		return nil
	})
	assert.NoError(t, err)
}

func TestPollForStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("returns once status is reached", func(t *testing.T) {
		client := setupTestClient(t)
		session := createSession(t, client)

		go func() {
			time.Sleep(100 * time.Millisecond)
			setStatus(t, client, session.ID, ledger.StatusHandshake)
		}()

		got, err := PollForStatus(ctx, client, session.ID, ledger.StatusHandshake, 20*time.Millisecond, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusHandshake, got.Status)
	})

	t.Run("later status satisfies", func(t *testing.T) {
		client := setupTestClient(t)
		session := createSession(t, client)
		setStatus(t, client, session.ID, ledger.StatusPendingPolice)

		got, err := PollForStatus(ctx, client, session.ID, ledger.StatusHandshake, 20*time.Millisecond, time.Second)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPendingPolice, got.Status)
	})

	t.Run("times out", func(t *testing.T) {
		client := setupTestClient(t)
		session := createSession(t, client)

		_, err := PollForStatus(ctx, client, session.ID, ledger.StatusCompleted, 20*time.Millisecond, 100*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for status COMPLETED")
	})

	t.Run("missing session keeps polling", func(t *testing.T) {
		client := setupTestClient(t)

		_, err := PollForStatus(ctx, client, uuid.NewString(), ledger.StatusCreated, 20*time.Millisecond, 100*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("context cancellation", func(t *testing.T) {
		client := setupTestClient(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := PollForStatus(cctx, client, uuid.NewString(), ledger.StatusCreated, 20*time.Millisecond, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid status", func(t *testing.T) {
		client := setupTestClient(t)
		_, err := PollForStatus(ctx, client, uuid.NewString(), "LOST", 0, time.Second)
		assert.Error(t, err)
	})
}

// syncBuffer is a bytes.Buffer safe for a concurrent writer and reader
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStream(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	sessionID := uuid.NewString()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- Stream(ctx, client, sessionID, OutputFormatJSON, &out)
	}()

	// Publish until the subscriber is attached, then close the case
	require.Eventually(t, func() bool {
		assert.NoError(t, client.PublishEvent(ctx, &ledger.Event{
			Type:      ledger.EventUserSigned,
			SessionID: sessionID,
			Data:      map[string]any{"user_id": "alice"},
		}))
		return out.String() != ""
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, client.PublishEvent(ctx, &ledger.Event{Type: ledger.EventCaseClosed, SessionID: sessionID}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after case closed")
	}

	assert.Contains(t, out.String(), `"event":"USER_SIGNED"`)
	assert.Contains(t, out.String(), `"event":"CASE_CLOSED"`)
}

func TestStreamUnknownFormat(t *testing.T) {
	client := setupTestClient(t)
	err := Stream(context.Background(), client, uuid.NewString(), "xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	ts := time.Date(2025, 6, 14, 8, 30, 0, 0, time.Local).UnixMilli()

	t.Run("defaultFormatter formats known events", func(t *testing.T) {
		tests := []struct {
			event    *ledger.Event
			expected string
		}{
			{&ledger.Event{Type: ledger.EventHandshakeComplete, Data: map[string]any{"driver_b": "bob"}}, "🤝 Driver joined: driver_b=bob"},
			{&ledger.Event{Type: ledger.EventReportSubmitted, Data: map[string]any{"user_id": "alice"}}, "📝 Report submitted: by=alice"},
			{&ledger.Event{Type: ledger.EventMeetingStarted, Data: map[string]any{"link": "https://meet.google.com/mock-1"}}, "📹 Meeting started: https://meet.google.com/mock-1"},
			{&ledger.Event{Type: ledger.EventPoliceSigned, Data: map[string]any{"police_id": "sgt"}}, "👮 Police signed: officer=sgt"},
			{&ledger.Event{Type: ledger.EventCaseClosed, Data: map[string]any{"final_report": "/x.pdf"}}, "🎉 Case closed: report=/x.pdf"},
			{&ledger.Event{Type: "CUSTOM", Data: map[string]any{"b": 2, "a": "x"}}, "• CUSTOM a=x, b=2"},
		}

		for _, tt := range tests {
			t.Run(tt.event.Type, func(t *testing.T) {
				var buf bytes.Buffer
				tt.event.TimestampMs = ts
				require.NoError(t, (&defaultFormatter{writer: &buf}).FormatEvent(tt.event))
				assert.Equal(t, "[08:30:00] "+tt.expected+"\n", buf.String())
			})
		}
	})

	t.Run("jsonFormatter writes one line per event", func(t *testing.T) {
		var buf bytes.Buffer
		f := &jsonFormatter{writer: &buf}
		require.NoError(t, f.FormatEvent(&ledger.Event{Type: ledger.EventUserSigned, SessionID: "s1", Data: map[string]any{"user_id": "bob"}}))

		output := buf.String()
		assert.Contains(t, output, `"event":"USER_SIGNED"`)
		assert.Contains(t, output, `"session_id":"s1"`)
		assert.Contains(t, output, `"user_id":"bob"`)
		assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
	})
}
