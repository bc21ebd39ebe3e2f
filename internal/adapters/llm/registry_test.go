package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/testutil"
)

func TestRegistry_Builtins(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	assert.Equal(t, []string{"cli", "gemini", "heuristic", "openai"}, r.List())
	for _, name := range core.Backends {
		assert.True(t, r.Has(name), name)
	}
}

func TestRegistry_GetCaches(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	created := 0
	r.RegisterFactory("mock", func(cfg BackendConfig, _ *logging.Logger) (core.Model, error) {
		created++
		return testutil.NewMockModel(cfg.Name), nil
	})

	m1, err := r.Get("mock")
	require.NoError(t, err)
	m2, err := r.Get("mock")
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.Equal(t, 1, created)
	assert.Equal(t, "mock", m1.Name())

	r.Configure("mock", BackendConfig{Model: "other"})
	_, err = r.Get("mock")
	require.NoError(t, err)
	assert.Equal(t, 2, created, "Configure should drop the cached backend")
}

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()
	_, err := NewRegistry(nil).Get("nope")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestRegistry_CLIWithoutPath(t *testing.T) {
	t.Parallel()
	_, err := NewRegistry(nil).Get(core.BackendCLI)
	require.Error(t, err)
}

func TestRegistry_BuildChain(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	r.Configure(core.BackendOpenAI, BackendConfig{APIKey: "sk-test", Model: "gpt-4o-mini"})

	chain, err := r.BuildChain([]string{core.BackendOpenAI, core.BackendHeuristic}, ChainOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "heuristic"}, chain.Backends())

	_, err = r.BuildChain([]string{"openai", "missing"}, ChainOptions{})
	require.Error(t, err)
}
