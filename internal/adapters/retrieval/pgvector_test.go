package retrieval

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/testutil"
)

func TestDistanceScore(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.0, DistanceScore(0))
	assert.Equal(t, 0.5, DistanceScore(1))
	assert.Equal(t, 1.0, DistanceScore(-0.1))
}

func TestNewEmbedder(t *testing.T) {
	t.Parallel()
	e, err := NewEmbedder(EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, EmbedderOpenAI, e.Name())

	e, err = NewEmbedder(EmbedderConfig{Provider: EmbedderGemini})
	require.NoError(t, err)
	assert.Equal(t, EmbedderGemini, e.Name())

	_, err = NewEmbedder(EmbedderConfig{Provider: "word2vec"})
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestOpenAIEmbedder(t *testing.T) {
	t.Parallel()
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &seen)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"text-embedding-3-small",
"data":[{"object":"embedding","index":0,"embedding":[0.25,-0.5,1]}],
"usage":{"prompt_tokens":3,"total_tokens":3}}`)
	}))
	t.Cleanup(srv.Close)

	e := NewOpenAIEmbedder(EmbedderConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", Dimensions: 3})
	got, err := e.Embed(context.Background(), "average order value", PurposeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, got)
	assert.Equal(t, DefaultOpenAIEmbeddingModel, seen["model"])
	assert.Equal(t, "average order value", seen["input"])
	assert.EqualValues(t, 3, seen["dimensions"])
}

func TestNewPGVector_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, err := NewPGVector(ctx, "postgres://localhost/db", nil)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))

	_, err = NewPGVector(ctx, "postgres://localhost/db", NewOpenAIEmbedder(EmbedderConfig{APIKey: "x"}), WithTable("chunks; DROP TABLE x"))
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

type fakeEmbedder struct{}

func (fakeEmbedder) Name() string { return "fake" }

// Embed maps text onto a tiny bag-of-keywords vector.
func (fakeEmbedder) Embed(_ context.Context, text string, _ Purpose) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, 3)
	for i, kw := range []string{"order", "return", "ship"} {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func TestPGVector_Integration(t *testing.T) {
	dsn := os.Getenv("HYBRIDQA_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("HYBRIDQA_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	p, err := NewPGVector(ctx, dsn, fakeEmbedder{}, WithTable("hybridqa_test_chunks"))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	require.NoError(t, p.EnsureSchema(ctx, 3))
	chunks, err := LoadChunks(testutil.DocCorpus(t), nil)
	require.NoError(t, err)
	n, err := p.Index(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), n)

	docs, err := p.Retrieve(ctx, "shipping times", 2)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "guides/shipping.md", docs[0].Source)
	assert.Equal(t, 1.0, docs[0].Score)
}
