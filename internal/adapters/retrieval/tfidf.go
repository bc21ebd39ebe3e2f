package retrieval

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TFIDF ranks paragraph chunks by cosine similarity of TF-IDF vectors.
// The index is built on first use and only rebuilt by Reload; a failed
// first build is remembered and returned by every later call until a
// Reload succeeds.
type TFIDF struct {
	dir     string
	include []string
	logger  *logging.Logger

	once  sync.Once
	mu    sync.RWMutex
	index *tfidfIndex
	err   error
}

// TFIDFOption configures the retriever.
type TFIDFOption func(*TFIDF)

// WithInclude sets the doublestar globs selecting indexed files.
func WithInclude(globs ...string) TFIDFOption {
	return func(r *TFIDF) {
		if len(globs) > 0 {
			r.include = globs
		}
	}
}

// WithTFIDFLogger sets the retriever logger.
func WithTFIDFLogger(logger *logging.Logger) TFIDFOption {
	return func(r *TFIDF) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewTFIDF creates a retriever over dir. Nothing is read until the first
// Retrieve or Load.
func NewTFIDF(dir string, opts ...TFIDFOption) *TFIDF {
	r := &TFIDF{
		dir:     dir,
		include: DefaultInclude,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load builds the index if needed and reports the number of chunks.
func (r *TFIDF) Load() (int, error) {
	r.once.Do(func() {
		idx, err := r.build()
		r.mu.Lock()
		r.index, r.err = idx, err
		r.mu.Unlock()
	})
	idx, err := r.current()
	if err != nil {
		return 0, err
	}
	return len(idx.chunks), nil
}

// Reload rebuilds the index from disk and swaps it in. On failure the
// previous index, if any, keeps serving and the error is returned.
func (r *TFIDF) Reload() (int, error) {
	// The first build must have happened, or it would overwrite this one.
	_, _ = r.Load()
	idx, err := r.build()
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if r.index == nil {
			r.err = err
		}
		return 0, err
	}
	r.index, r.err = idx, nil
	return len(idx.chunks), nil
}

func (r *TFIDF) build() (*tfidfIndex, error) {
	chunks, err := LoadChunks(r.dir, r.include)
	if err != nil {
		r.logger.Warn("retrieval: index build failed", "dir", r.dir, "error", err)
		return nil, err
	}
	idx := buildIndex(chunks)
	r.logger.Info("retrieval: index built",
		"dir", r.dir,
		"chunks", len(chunks),
		"terms", len(idx.vocab),
	)
	return idx, nil
}

func (r *TFIDF) current() (*tfidfIndex, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index, r.err
}

// Retrieve returns the topK chunks most similar to query, best first.
// Ties keep corpus order. A non-positive topK uses the default.
func (r *TFIDF) Retrieve(ctx context.Context, query string, topK int) ([]core.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := r.Load(); err != nil {
		return nil, err
	}
	idx, err := r.current()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = core.DefaultTopK
	}
	return idx.search(query, topK), nil
}

type tfidfIndex struct {
	chunks  []Chunk
	vocab   map[string]int
	idf     []float64
	vectors []map[int]float64
}

func buildIndex(chunks []Chunk) *tfidfIndex {
	idx := &tfidfIndex{chunks: chunks, vocab: make(map[string]int)}

	counts := make([]map[string]int, len(chunks))
	df := make(map[string]int)
	for i, c := range chunks {
		counts[i] = termCounts(c.Content)
		for term := range counts[i] {
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	idx.idf = make([]float64, len(terms))
	n := float64(len(chunks))
	for i, term := range terms {
		idx.vocab[term] = i
		// Smoothed idf: every term is treated as seen in one extra document.
		idx.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	idx.vectors = make([]map[int]float64, len(chunks))
	for i := range chunks {
		idx.vectors[i] = idx.vectorize(counts[i])
	}
	return idx
}

// vectorize weights raw term counts by idf and L2-normalizes the result.
// Terms outside the vocabulary are dropped.
func (idx *tfidfIndex) vectorize(counts map[string]int) map[int]float64 {
	vec := make(map[int]float64, len(counts))
	var norm float64
	for term, tf := range counts {
		col, ok := idx.vocab[term]
		if !ok {
			continue
		}
		w := float64(tf) * idx.idf[col]
		vec[col] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for col := range vec {
			vec[col] /= norm
		}
	}
	return vec
}

func (idx *tfidfIndex) search(query string, topK int) []core.Doc {
	q := idx.vectorize(termCounts(query))

	type scored struct {
		pos   int
		score float64
	}
	ranked := make([]scored, len(idx.chunks))
	for i, vec := range idx.vectors {
		ranked[i] = scored{pos: i, score: cosine(q, vec)}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	if topK > len(ranked) {
		topK = len(ranked)
	}
	docs := make([]core.Doc, 0, topK)
	for _, s := range ranked[:topK] {
		docs = append(docs, idx.chunks[s.pos].Doc(s.score))
	}
	return docs
}

// cosine is the dot product of two unit vectors.
func cosine(a, b map[int]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for col, w := range a {
		dot += w * b[col]
	}
	return dot
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if stopWords[tok] {
			continue
		}
		counts[tok]++
	}
	return counts
}

var _ core.Retriever = (*TFIDF)(nil)
