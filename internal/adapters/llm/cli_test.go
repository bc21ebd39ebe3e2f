//go:build !windows

package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

func TestCLIModel_EchoesStdin(t *testing.T) {
	t.Parallel()
	m, err := NewCLIModel(BackendConfig{Path: "cat"}, nil)
	require.NoError(t, err)
	require.NoError(t, m.CheckAvailability())

	out, err := m.Generate(context.Background(), core.ModelRequest{
		SystemPrompt: "system",
		Prompt:       "user",
	})
	require.NoError(t, err)
	assert.Equal(t, "system\n\nuser", out)
}

func TestCLIModel_MultiWordPath(t *testing.T) {
	t.Parallel()
	m, err := NewCLIModel(BackendConfig{Path: "sh -c", Args: []string{"echo SELECT 1"}}, nil)
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), core.ModelRequest{Prompt: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)
}

func TestCLIModel_ClassifiesFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		script string
		cat    core.ErrorCategory
	}{
		{"rate limit", "echo 'Error: rate limit exceeded' >&2; exit 1", core.ErrCatRateLimit},
		{"auth", "echo 'invalid api key' >&2; exit 2", core.ErrCatAuth},
		{"generic", "echo 'model not loaded' >&2; exit 3", core.ErrCatCollaborator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewCLIModel(BackendConfig{Path: "sh", Args: []string{"-c", tt.script}}, nil)
			require.NoError(t, err)
			_, err = m.Generate(context.Background(), core.ModelRequest{})
			require.Error(t, err)
			assert.Equal(t, tt.cat, core.GetCategory(err), err.Error())
		})
	}
}

func TestCLIModel_EmptyOutput(t *testing.T) {
	t.Parallel()
	m, err := NewCLIModel(BackendConfig{Path: "true"}, nil)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), core.ModelRequest{})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatCollaborator))
}

func TestCLIModel_Timeout(t *testing.T) {
	t.Parallel()
	m, err := NewCLIModel(BackendConfig{Path: "sleep", Args: []string{"5"}, Timeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = m.Generate(context.Background(), core.ModelRequest{})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatTimeout), err.Error())
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCLIModel_MissingCommand(t *testing.T) {
	t.Parallel()
	m, err := NewCLIModel(BackendConfig{Path: "hybridqa-no-such-binary"}, nil)
	require.NoError(t, err)
	assert.Error(t, m.CheckAvailability())
	_, err = m.Generate(context.Background(), core.ModelRequest{})
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestNewCLIModel_NoPath(t *testing.T) {
	t.Parallel()
	_, err := NewCLIModel(BackendConfig{}, nil)
	require.Error(t, err)
}
