package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiModel calls Google's Gemini API (or Vertex AI when a project is set)
// through the genai SDK. The client is created on first use.
type GeminiModel struct {
	name      string
	model     string
	apiKey    string
	project   string
	location  string
	maxTokens int

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiModel creates a Gemini backend.
func NewGeminiModel(cfg BackendConfig) (*GeminiModel, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	name := cfg.Name
	if name == "" {
		name = core.BackendGemini
	}
	return &GeminiModel{
		name:      name,
		model:     model,
		apiKey:    cfg.APIKey,
		project:   cfg.Project,
		location:  cfg.Location,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the backend name.
func (m *GeminiModel) Name() string { return m.name }

func (m *GeminiModel) initClient(ctx context.Context) (*genai.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:   m.apiKey,
		Project:  m.project,
		Location: m.location,
	})
	if err != nil {
		return nil, core.ErrAuth(fmt.Sprintf("creating genai client: %v", err)).WithCause(err)
	}
	m.client = client
	return m.client, nil
}

// Generate sends one prompt and returns the response text.
func (m *GeminiModel) Generate(ctx context.Context, req core.ModelRequest) (string, error) {
	client, err := m.initClient(ctx)
	if err != nil {
		return "", err
	}

	temp := float32(req.Temperature)
	config := &genai.GenerateContentConfig{Temperature: &temp}
	maxTokens := req.MaxTokens
	if m.maxTokens > 0 && (maxTokens == 0 || maxTokens > m.maxTokens) {
		maxTokens = m.maxTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.SystemPrompt)},
		}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, m.model, genai.Text(req.Prompt), config)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", classifyMessage(m.name, err.Error()).WithCause(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", core.ErrCollaborator(core.CodeEmptyOutput, fmt.Sprintf("%s returned no text", m.name))
	}
	return text, nil
}
