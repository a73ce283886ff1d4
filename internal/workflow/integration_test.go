//go:build integration

package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mysettle/mysettle/internal/testutil"
	"github.com/mysettle/mysettle/pkg/ledger"
)

func setupRedisService(t *testing.T) *Service {
	client, err := ledger.NewClient(testutil.SetupRedis(t), "integration")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewService(client, Options{OutputDir: filepath.Join(t.TempDir(), "reports")}, zaptest.NewLogger(t))
}

func TestIntegration_ConcurrentJoin(t *testing.T) {
	svc := setupRedisService(t)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.JoinSession(ctx, created.OTP, fmt.Sprintf("driver-%d", i))
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range results {
		if err == nil {
			joined++
		} else {
			assert.ErrorIs(t, err, ErrSessionFull)
		}
	}
	assert.Equal(t, 1, joined)

	session, err := svc.GetSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusHandshake, session.Status)
}

func TestIntegration_ConcurrentFinalSignatures(t *testing.T) {
	svc := setupRedisService(t)
	ctx := context.Background()

	for _, id := range []string{"alice", "bob"} {
		_, err := svc.Login(ctx, id, false)
		require.NoError(t, err)
	}

	for round := 0; round < 20; round++ {
		created, err := svc.CreateSession(ctx, "alice")
		require.NoError(t, err)
		id := created.SessionID
		_, err = svc.JoinSession(ctx, created.OTP, "bob")
		require.NoError(t, err)
		for _, user := range []string{"alice", "bob"} {
			_, err := svc.SubmitReport(ctx, &SubmitRequest{SessionID: id, UserID: user})
			require.NoError(t, err)
		}
		_, err = svc.StartMeeting(ctx, id, "officer")
		require.NoError(t, err)
		_, err = svc.DriverSign(ctx, id, "alice", "sig-a")
		require.NoError(t, err)

		// Police and the last driver sign at the same time
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.PoliceSign(ctx, id, "officer", "sig-p")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.DriverSign(ctx, id, "bob", "sig-b")
			assert.NoError(t, err)
		}()
		wg.Wait()

		session, err := svc.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusCompleted, session.Status, "round %d", round)
		assert.Equal(t, "officer", session.PoliceID)
	}
}
