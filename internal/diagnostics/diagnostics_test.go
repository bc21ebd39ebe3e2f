package diagnostics

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunChecks(t *testing.T) {
	t.Parallel()
	checks := []Check{
		{Name: "ok", Required: true, Run: func(context.Context) (string, error) { return "fine", nil }},
		{Name: "optional", Run: func(context.Context) (string, error) { return "", errors.New("missing") }},
		{Name: "required", Required: true, Run: func(context.Context) (string, error) { return "", errors.New("broken") }},
		{Name: "panics", Run: func(context.Context) (string, error) { panic("boom") }},
	}

	results := RunChecks(context.Background(), checks)
	require.Len(t, results, 4)

	assert.Equal(t, Result{Name: "ok", Status: StatusOK, Detail: "fine", Required: true}, withoutDuration(results[0]))
	assert.Equal(t, StatusWarn, results[1].Status)
	assert.Equal(t, "missing", results[1].Detail)
	assert.Equal(t, StatusFail, results[2].Status)
	assert.Equal(t, StatusFail, results[3].Status)
	assert.Contains(t, results[3].Detail, "boom")

	report := Report{Results: results}
	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Warnings())
	assert.True(t, Report{Results: results[:2]}.OK())
}

func TestRunChecks_Timeout(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results := RunChecks(ctx, []Check{{
		Name:     "slow",
		Required: true,
		Run: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}})
	assert.Equal(t, StatusFail, results[0].Status)
	assert.Contains(t, results[0].Detail, "deadline exceeded")
}

func TestCommandCheck(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	res := RunChecks(context.Background(), []Check{
		CommandCheck("shell", "sh -c true", true),
		CommandCheck("missing", "definitely-not-a-binary-hybridqa", false),
		CommandCheck("empty", "  ", true),
	})
	assert.Equal(t, StatusOK, res[0].Status)
	assert.Equal(t, StatusWarn, res[1].Status)
	assert.Contains(t, res[1].Detail, "not found on PATH")
	assert.Equal(t, StatusFail, res[2].Status)
}

func TestSecretCheck(t *testing.T) {
	t.Parallel()
	res := RunChecks(context.Background(), []Check{
		SecretCheck("openai key", "sk-very-secret", true),
		SecretCheck("gemini key", "", false),
	})
	assert.Equal(t, "set", res[0].Detail)
	assert.NotContains(t, res[0].Detail, "sk-")
	assert.Equal(t, StatusWarn, res[1].Status)
}

func TestCollectSystem(t *testing.T) {
	t.Parallel()
	s := CollectSystem(t.TempDir())
	assert.Greater(t, s.CPUThreads, 0)
	assert.Greater(t, s.MemTotalMB, 0.0)
	assert.Greater(t, s.DiskTotalGB, 0.0)

	res := RunChecks(context.Background(), []Check{DiskSpaceCheck(t.TempDir(), 100)})
	assert.Equal(t, StatusOK, res[0].Status)
	assert.Contains(t, res[0].Detail, "GB free")
}

func withoutDuration(r Result) Result {
	r.Duration = 0
	return r
}
