package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// Embedding providers.
const (
	EmbedderOpenAI = "openai"
	EmbedderGemini = "gemini"
)

// Default embedding models.
const (
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

// Purpose tells the embedder whether the text is a stored chunk or a query.
type Purpose int

const (
	PurposeDocument Purpose = iota
	PurposeQuery
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error)
}

// EmbedderConfig selects and configures an embedder.
type EmbedderConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Project    string
	Location   string
	Dimensions int
}

// NewEmbedder builds the embedder named by cfg.Provider.
func NewEmbedder(cfg EmbedderConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", EmbedderOpenAI:
		return NewOpenAIEmbedder(cfg), nil
	case EmbedderGemini:
		return NewGeminiEmbedder(cfg), nil
	default:
		return nil, core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("unknown embedder %q", cfg.Provider))
	}
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint, or any compatible one.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an OpenAI embedder.
func NewOpenAIEmbedder(cfg EmbedderConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIEmbeddingModel
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}
}

// Name returns the provider name.
func (e *OpenAIEmbedder) Name() string { return EmbedderOpenAI }

// Embed returns the embedding of text. OpenAI models do not distinguish
// queries from documents.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, _ Purpose) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, core.ErrCollaborator(core.CodeEmptyOutput, "openai returned no embeddings")
	}
	values := resp.Data[0].Embedding
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

// GeminiEmbedder calls the Gemini EmbedContent API.
type GeminiEmbedder struct {
	cfg   EmbedderConfig
	model string

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiEmbedder creates a Gemini embedder. The client is created on
// first use.
func NewGeminiEmbedder(cfg EmbedderConfig) *GeminiEmbedder {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}
	return &GeminiEmbedder{cfg: cfg, model: model}
}

// Name returns the provider name.
func (e *GeminiEmbedder) Name() string { return EmbedderGemini }

func (e *GeminiEmbedder) initClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:   e.cfg.APIKey,
		Project:  e.cfg.Project,
		Location: e.cfg.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	e.client = client
	return client, nil
}

// Embed returns the embedding of text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	client, err := e.initClient(ctx)
	if err != nil {
		return nil, err
	}
	config := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	if purpose == PurposeQuery {
		config.TaskType = "RETRIEVAL_QUERY"
	}
	if e.cfg.Dimensions > 0 {
		dim := int32(e.cfg.Dimensions)
		config.OutputDimensionality = &dim
	}
	result, err := client.Models.EmbedContent(ctx, e.model, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, core.ErrCollaborator(core.CodeEmptyOutput, "gemini returned no embeddings")
	}
	return result.Embeddings[0].Values, nil
}
