package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func newTestSession(otp string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		OTP:       otp,
		DriverAID: "alice",
		Status:    StatusCreated,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.Equal(t, "test", client.Namespace())
	})

	t.Run("rejects empty namespace", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "namespace cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	assert.NoError(t, client.Ping(ctx))

	mr.Close()
	assert.Error(t, client.Ping(ctx))
}

func TestUsers(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("round trips a profile", func(t *testing.T) {
		user := &User{ID: "alice", Name: "User alice", ICNo: "900101-14-1234", CarPlate: "WALICE123", IsPolice: true}
		require.NoError(t, client.PutUser(ctx, user))

		got, err := client.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		_, err := client.GetUser(ctx, "nobody")
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects nameless user", func(t *testing.T) {
		err := client.PutUser(ctx, &User{ID: "bob"})
		assert.Error(t, err)
	})
}

func TestCreateSession(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("stores session and binds otp", func(t *testing.T) {
		session := newTestSession("123456")
		require.NoError(t, client.CreateSession(ctx, session, time.Hour))
		assert.NotZero(t, session.CreatedAtMs)

		got, err := client.FindSessionByOTP(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, StatusCreated, got.Status)

		assert.True(t, mr.Exists(OTPKey("test", "123456")))
		assert.Equal(t, time.Hour, mr.TTL(OTPKey("test", "123456")))
	})

	t.Run("rejects otp collision", func(t *testing.T) {
		err := client.CreateSession(ctx, newTestSession("123456"), time.Hour)
		assert.ErrorIs(t, err, ErrOTPTaken)
	})

	t.Run("expired otp is not found", func(t *testing.T) {
		require.NoError(t, client.CreateSession(ctx, newTestSession("654321"), time.Minute))
		mr.FastForward(2 * time.Minute)

		_, err := client.FindSessionByOTP(ctx, "654321")
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects invalid session", func(t *testing.T) {
		session := newTestSession("12ab56")
		err := client.CreateSession(ctx, session, time.Hour)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid OTP")
	})
}

func TestUpdateSession(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	session := newTestSession("111111")
	require.NoError(t, client.CreateSession(ctx, session, 0))

	t.Run("applies mutation and moves status index", func(t *testing.T) {
		updated, err := client.UpdateSession(ctx, session.ID, func(s *Session) error {
			s.DriverBID = "bob"
			s.Status = StatusHandshake
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", updated.DriverBID)

		created, err := client.ListSessionsByStatus(ctx, StatusCreated)
		require.NoError(t, err)
		assert.Empty(t, created)

		handshake, err := client.ListSessionsByStatus(ctx, StatusHandshake)
		require.NoError(t, err)
		require.Len(t, handshake, 1)
		assert.Equal(t, session.ID, handshake[0].ID)
	})

	t.Run("passes mutation errors through", func(t *testing.T) {
		sentinel := errors.New("not allowed")
		_, err := client.UpdateSession(ctx, session.ID, func(s *Session) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("unchanged skips the write", func(t *testing.T) {
		before, err := client.GetSession(ctx, session.ID)
		require.NoError(t, err)

		got, err := client.UpdateSession(ctx, session.ID, func(s *Session) error {
			return ErrUnchanged
		})
		require.NoError(t, err)
		assert.Equal(t, before.UpdatedAtMs, got.UpdatedAtMs)
	})

	t.Run("rejects invalid result", func(t *testing.T) {
		_, err := client.UpdateSession(ctx, session.ID, func(s *Session) error {
			s.DriverBID = s.DriverAID
			return nil
		})
		assert.Error(t, err)
	})

	t.Run("missing session is not found", func(t *testing.T) {
		_, err := client.UpdateSession(ctx, uuid.New().String(), func(s *Session) error { return nil })
		assert.True(t, IsNotFound(err))
	})

	t.Run("concurrent joins admit exactly one driver", func(t *testing.T) {
		contested := newTestSession("222222")
		require.NoError(t, client.CreateSession(ctx, contested, 0))

		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for _, driver := range []string{"bob", "carol", "dave", "erin"} {
			wg.Add(1)
			go func(driver string) {
				defer wg.Done()
				_, err := client.UpdateSession(ctx, contested.ID, func(s *Session) error {
					if s.DriverBID != "" {
						return errors.New("full")
					}
					s.DriverBID = driver
					s.Status = StatusHandshake
					return nil
				})
				if err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}(driver)
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
	})
}

func TestListSessions(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	first := newTestSession("100001")
	first.CreatedAtMs = 1000
	second := newTestSession("100002")
	second.CreatedAtMs = 2000
	require.NoError(t, client.CreateSession(ctx, second, 0))
	require.NoError(t, client.CreateSession(ctx, first, 0))

	sessions, err := client.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)

	_, err = client.ListSessionsByStatus(ctx, SessionStatus("BOGUS"))
	assert.Error(t, err)
}

func TestSessionIDsWithPrefix(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	a := newTestSession("200001")
	a.ID = "abcdef00-0000-4000-8000-000000000001"
	b := newTestSession("200002")
	b.ID = "abcdef11-0000-4000-8000-000000000002"
	require.NoError(t, client.CreateSession(ctx, a, 0))
	require.NoError(t, client.CreateSession(ctx, b, 0))

	ids, err := client.SessionIDsWithPrefix(ctx, "abcdef")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	ids, err = client.SessionIDsWithPrefix(ctx, "abcdef11")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)

	ids, err = client.SessionIDsWithPrefix(ctx, "ffffff")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReports(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	sessionID := uuid.New().String()

	t.Run("missing report is not found", func(t *testing.T) {
		_, err := client.GetReport(ctx, sessionID)
		assert.True(t, IsNotFound(err))
	})

	t.Run("ensure is idempotent", func(t *testing.T) {
		first, err := client.EnsureReport(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.ID)

		second, err := client.EnsureReport(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		other, err := client.EnsureReport(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.Equal(t, int64(2), other.ID)
	})

	t.Run("update records signatures", func(t *testing.T) {
		report, err := client.UpdateReport(ctx, sessionID, func(r *Report) error {
			r.PoliceSignature = "SIGNED_BY_POLICE"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "SIGNED_BY_POLICE", report.PoliceSignature)
		assert.False(t, report.FullySigned())

		stored, err := client.GetReport(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "SIGNED_BY_POLICE", stored.PoliceSignature)
	})
}

func TestEvidence(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	sessionID := uuid.New().String()

	count, err := client.AppendEvidence(ctx, sessionID, "bob", []*Evidence{
		{Type: EvidenceTypePhoto, Tag: TagCarFront, Content: "data:image/png;base64,AAAA"},
		{Type: EvidenceTypeText, Tag: TagOther, Content: "note"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = client.AppendEvidence(ctx, sessionID, "alice", []*Evidence{
		{Type: EvidenceTypeMapSketch, Tag: TagRoughSketch, Content: "sketch"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	t.Run("empty batch still records the submitter", func(t *testing.T) {
		other := uuid.New().String()
		count, err := client.AppendEvidence(ctx, other, "carol", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		submitters, err := client.Submitters(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, []string{"carol"}, submitters)
	})

	t.Run("repeat submission does not double count", func(t *testing.T) {
		count, err := client.AppendEvidence(ctx, sessionID, "bob", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("lists in upload order with ids assigned", func(t *testing.T) {
		items, err := client.ListEvidence(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, TagCarFront, items[0].Tag)
		assert.Equal(t, "bob", items[0].UploaderID)
		assert.Equal(t, TagRoughSketch, items[2].Tag)
		for _, item := range items {
			assert.True(t, isValidUUID(item.ID))
			assert.NotZero(t, item.TimestampMs)
		}
	})

	t.Run("rejects unknown tag", func(t *testing.T) {
		_, err := client.AppendEvidence(ctx, sessionID, "bob", []*Evidence{
			{Type: EvidenceTypePhoto, Tag: "Roof"},
		})
		assert.Error(t, err)
	})
}

func TestDraftsAndPoliceDetails(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	sessionID := uuid.New().String()

	t.Run("draft round trip", func(t *testing.T) {
		draft := &Draft{SessionID: sessionID, UserID: "alice", Location: "Jalan Ampang", Weather: "Cerah"}
		require.NoError(t, client.PutDraft(ctx, draft))

		got, err := client.GetDraft(ctx, sessionID, "alice")
		require.NoError(t, err)
		assert.Equal(t, draft, got)

		_, err = client.GetDraft(ctx, sessionID, "bob")
		assert.True(t, IsNotFound(err))
	})

	t.Run("police details round trip", func(t *testing.T) {
		_, err := client.GetPoliceDetails(ctx, sessionID)
		assert.True(t, IsNotFound(err))

		details := &PoliceDetails{
			SessionID:  sessionID,
			ReportNo:   "DRAFT/ABCDEF12/2026",
			ReportedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		require.NoError(t, client.PutPoliceDetails(ctx, details))

		got, err := client.GetPoliceDetails(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, details.ReportNo, got.ReportNo)
		assert.True(t, details.ReportedAt.Equal(got.ReportedAt))
	})
}

func TestSessionEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	sessionID := uuid.New().String()

	sub, err := client.SubscribeSessionEvents(ctx, sessionID)
	require.NoError(t, err)
	defer sub.Close()

	// Events for other sessions are not delivered
	require.NoError(t, client.PublishEvent(ctx, &Event{Type: EventUserSigned, SessionID: uuid.New().String()}))
	require.NoError(t, client.PublishEvent(ctx, &Event{
		Type:      EventHandshakeComplete,
		SessionID: sessionID,
		Data:      map[string]any{"driver_b": "bob"},
	}))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, EventHandshakeComplete, ev.Type)
		assert.Equal(t, "bob", ev.Data["driver_b"])
		assert.NotZero(t, ev.TimestampMs)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, open := <-sub.Events()
	for open {
		_, open = <-sub.Events()
	}
}

func TestPublishEventRequiresSession(t *testing.T) {
	client, _ := setupTestClient(t)
	err := client.PublishEvent(context.Background(), &Event{Type: EventCaseClosed})
	assert.Error(t, err)
}
