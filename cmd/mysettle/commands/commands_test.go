package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mysettle/mysettle/internal/workflow"
	"github.com/mysettle/mysettle/pkg/ledger"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// setupEnv points the CLI at a fresh miniredis and returns a service
// writing to the same namespace.
func setupEnv(t *testing.T) (*miniredis.Miniredis, *workflow.Service) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	t.Setenv("REDIS_URL", "redis://"+mr.Addr()+"/0")
	t.Setenv("MYSETTLE_NAMESPACE", "test")
	t.Setenv("LOG_LEVEL", "error")

	client, err := ledger.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return mr, workflow.NewService(client, workflow.Options{}, zaptest.NewLogger(t))
}

// run executes the CLI with a config path that does not exist, so only
// defaults and the test environment apply.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "mysettle.yml")}, args...))

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// pendingCase pairs alice and bob and submits both reports.
func pendingCase(t *testing.T, svc *workflow.Service) string {
	ctx := context.Background()
	for _, id := range []string{"alice", "bob"} {
		_, err := svc.Login(ctx, id, false)
		require.NoError(t, err)
	}

	created, err := svc.CreateSession(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.JoinSession(ctx, created.OTP, "bob")
	require.NoError(t, err)

	for _, id := range []string{"alice", "bob"} {
		_, err := svc.SubmitReport(ctx, &workflow.SubmitRequest{SessionID: created.SessionID, UserID: id})
		require.NoError(t, err)
	}
	return created.SessionID
}

func TestRootCommand(t *testing.T) {
	t.Run("shows help when no subcommand", func(t *testing.T) {
		setupEnv(t)
		stdout, _, err := run(t)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Usage:")
		assert.Contains(t, stdout, "mysettle")
		assert.Contains(t, stdout, "dashboard")
	})

	t.Run("rejects unknown flags", func(t *testing.T) {
		setupEnv(t)
		_, _, err := run(t, "--unknown-flag", "value")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown flag")
	})

	t.Run("invalid configuration", func(t *testing.T) {
		setupEnv(t)
		t.Setenv("PORT", "70000")
		_, stderr, err := run(t, "dashboard")
		require.Error(t, err)
		assert.Equal(t, "invalid configuration", err.Error())
		assert.Contains(t, stderr, "server.port")
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr, _ := setupEnv(t)
		mr.Close()
		_, stderr, err := run(t, "dashboard")
		require.Error(t, err)
		assert.Equal(t, "Redis connection failed", err.Error())
		assert.Contains(t, stderr, "Namespace: test")
	})
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := run(t, "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Initialized mySettle in "+dir)
	assert.FileExists(t, filepath.Join(dir, "mysettle.yml"))
	assert.DirExists(t, filepath.Join(dir, "generated_reports"))

	_, stderr, err := run(t, "init", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, "initialization failed", err.Error())
	assert.Contains(t, stderr, "project already initialized")

	// A broken config does not stop a forced re-init
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mysettle.yml"), []byte("server: [broken"), 0644))
	root := NewRootCommand()
	root.SetArgs([]string{"--config", filepath.Join(dir, "mysettle.yml"), "init", "--dir", dir, "--force"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	require.NoError(t, root.Execute())
}

func TestDashboardCommand(t *testing.T) {
	_, svc := setupEnv(t)
	id := pendingCase(t, svc)

	_, err := svc.CreateSession(context.Background(), "carol")
	require.NoError(t, err)

	t.Run("table defaults to review queue", func(t *testing.T) {
		stdout, _, err := run(t, "dashboard")
		require.NoError(t, err)
		assert.Contains(t, stdout, id[:8])
		assert.Contains(t, stdout, "PENDING_POLICE")
		assert.Contains(t, stdout, "User alice (WALICE123)")
		assert.Contains(t, stdout, "Showing 1 of 1 sessions")
	})

	t.Run("json with all statuses", func(t *testing.T) {
		stdout, _, err := run(t, "dashboard", "--status", "all", "--json")
		require.NoError(t, err)

		var out dashboardOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, 2, out.Total)
		require.Len(t, out.Sessions, 2)
	})

	t.Run("plate filter", func(t *testing.T) {
		stdout, _, err := run(t, "dashboard", "--status", "all", "--plate", "X*", "--json")
		require.NoError(t, err)

		var out dashboardOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, 0, out.Total)
		assert.Empty(t, out.Sessions)
	})

	t.Run("empty result", func(t *testing.T) {
		stdout, _, err := run(t, "dashboard", "--status", "completed")
		require.NoError(t, err)
		assert.Equal(t, "No sessions found.\n", stdout)
	})

	t.Run("invalid filters", func(t *testing.T) {
		for _, args := range [][]string{
			{"--status", "closed"},
			{"--since", "yesterday"},
			{"--sort", "name"},
		} {
			_, stderr, err := run(t, append([]string{"dashboard"}, args...)...)
			require.Error(t, err, args)
			assert.Equal(t, "invalid dashboard filter", err.Error())
			assert.Contains(t, stderr, "invalid dashboard filter")
		}
	})
}

func TestWaitCommand(t *testing.T) {
	_, svc := setupEnv(t)
	id := pendingCase(t, svc)

	t.Run("reached", func(t *testing.T) {
		stdout, _, err := run(t, "wait", id, "--status", "handshake", "--interval", "10ms", "--timeout", "2s")
		require.NoError(t, err)
		assert.Contains(t, stdout, "✓ Session "+id+" is PENDING_POLICE")
	})

	t.Run("short prefix", func(t *testing.T) {
		stdout, _, err := run(t, "wait", id[:8], "--interval", "10ms", "--timeout", "2s")
		require.NoError(t, err)
		assert.Contains(t, stdout, "✓ Session "+id+" is PENDING_POLICE")
	})

	t.Run("unknown prefix", func(t *testing.T) {
		_, _, err := run(t, "wait", "ffffffff", "--timeout", "100ms")
		require.Error(t, err)
		assert.Equal(t, "session not found", err.Error())
	})

	t.Run("timeout", func(t *testing.T) {
		_, stderr, err := run(t, "wait", id, "--status", "completed", "--interval", "10ms", "--timeout", "100ms")
		require.Error(t, err)
		assert.Equal(t, "wait failed", err.Error())
		assert.Contains(t, stderr, "timeout waiting for status COMPLETED")
	})

	t.Run("invalid status", func(t *testing.T) {
		_, stderr, err := run(t, "wait", id, "--status", "closed")
		require.Error(t, err)
		assert.Equal(t, "invalid status", err.Error())
		assert.Contains(t, stderr, "CREATED, HANDSHAKE, PENDING_POLICE")
	})

	for _, timeout := range []string{"0", "-1s"} {
		t.Run("rejects timeout "+timeout, func(t *testing.T) {
			_, stderr, err := run(t, "wait", id, "--timeout="+timeout)
			require.Error(t, err)
			assert.Equal(t, "invalid timeout", err.Error())
			assert.Contains(t, stderr, "--timeout must be positive")
		})
	}

	t.Run("requires session argument", func(t *testing.T) {
		_, _, err := run(t, "wait")
		require.Error(t, err)
	})
}

func TestWatchCommand(t *testing.T) {
	_, svc := setupEnv(t)
	ctx := context.Background()

	t.Run("invalid output format", func(t *testing.T) {
		_, stderr, err := run(t, "watch", "some-session", "-o", "xml")
		require.Error(t, err)
		assert.Equal(t, "invalid output format", err.Error())
		assert.Contains(t, stderr, "Valid formats: default, json")
	})

	t.Run("unknown session", func(t *testing.T) {
		_, _, err := run(t, "watch", "3f2b8c1e-0000-4000-8000-000000000000")
		require.Error(t, err)
		assert.Equal(t, "session not found", err.Error())
	})

	t.Run("closed session returns immediately", func(t *testing.T) {
		id := pendingCase(t, svc)
		_, err := svc.StartMeeting(ctx, id, "officer")
		require.NoError(t, err)
		_, err = svc.PoliceSign(ctx, id, "officer", "sig-p")
		require.NoError(t, err)
		_, err = svc.DriverSign(ctx, id, "alice", "sig-a")
		require.NoError(t, err)
		_, err = svc.DriverSign(ctx, id, "bob", "sig-b")
		require.NoError(t, err)

		stdout, _, err := run(t, "watch", id)
		require.NoError(t, err)
		assert.Equal(t, "Session "+id+" is already COMPLETED\n", stdout)
	})

	t.Run("streams until case closes", func(t *testing.T) {
		id := pendingCase(t, svc)

		type result struct {
			stdout string
			err    error
		}
		done := make(chan result, 1)
		go func() {
			stdout, _, err := run(t, "watch", id, "-o", "json")
			done <- result{stdout, err}
		}()

		// Keep signing steps apart until the subscriber is attached
		time.Sleep(200 * time.Millisecond)
		_, err := svc.StartMeeting(ctx, id, "officer")
		require.NoError(t, err)
		_, err = svc.PoliceSign(ctx, id, "officer", "sig-p")
		require.NoError(t, err)
		_, err = svc.DriverSign(ctx, id, "alice", "sig-a")
		require.NoError(t, err)
		_, err = svc.DriverSign(ctx, id, "bob", "sig-b")
		require.NoError(t, err)

		select {
		case res := <-done:
			require.NoError(t, res.err)
			assert.Contains(t, res.stdout, `"event":"MEETING_STARTED"`)
			assert.Contains(t, res.stdout, `"event":"CASE_CLOSED"`)
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop after the case closed")
		}
	})
}

func TestReportsGenerateCommand(t *testing.T) {
	_, svc := setupEnv(t)
	id := pendingCase(t, svc)
	dir := filepath.Join(t.TempDir(), "out")

	t.Run("writes all documents", func(t *testing.T) {
		stdout, _, err := run(t, "reports", "generate", id, "--out", dir)
		require.NoError(t, err)
		assert.Contains(t, stdout, "→ Rendering reports for session "+id)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
		for _, e := range entries {
			assert.Contains(t, stdout, filepath.Join(dir, e.Name()))
		}
	})

	t.Run("no police details", func(t *testing.T) {
		created, err := svc.CreateSession(context.Background(), "alice")
		require.NoError(t, err)

		_, stderr, err := run(t, "reports", "generate", created.SessionID, "--out", dir)
		require.Error(t, err)
		assert.Equal(t, "report generation failed", err.Error())
		assert.Contains(t, stderr, "report details not found for this session")
	})
}
