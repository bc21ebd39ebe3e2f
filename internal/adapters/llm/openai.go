package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIModel calls the OpenAI Responses API, or any endpoint that speaks it
// (set BaseURL, e.g. a local Ollama server at http://localhost:11434/v1).
type OpenAIModel struct {
	name      string
	client    openai.Client
	model     openai.ChatModel
	maxTokens int
}

// NewOpenAIModel creates an OpenAI backend. Retries are left to the chain's
// retry policy, so the SDK's own retries are disabled.
func NewOpenAIModel(cfg BackendConfig) (*OpenAIModel, error) {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	name := cfg.Name
	if name == "" {
		name = core.BackendOpenAI
	}

	return &OpenAIModel{
		name:      name,
		client:    openai.NewClient(opts...),
		model:     openai.ChatModel(model),
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the backend name.
func (m *OpenAIModel) Name() string { return m.name }

// Generate sends one prompt and returns the concatenated output text.
func (m *OpenAIModel) Generate(ctx context.Context, req core.ModelRequest) (string, error) {
	params := responses.ResponseNewParams{
		Model: m.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.Instructions = openai.String(req.SystemPrompt)
	}
	maxTokens := req.MaxTokens
	if m.maxTokens > 0 && (maxTokens == 0 || maxTokens > m.maxTokens) {
		maxTokens = m.maxTokens
	}
	if maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(maxTokens))
	}

	response, err := m.client.Responses.New(ctx, params)
	if err != nil {
		return "", m.classifyError(err)
	}

	text := outputText(response)
	if strings.TrimSpace(text) == "" {
		return "", core.ErrCollaborator(core.CodeEmptyOutput, fmt.Sprintf("%s returned no text", m.name))
	}
	return text, nil
}

// outputText joins the text parts of every message item.
func outputText(response *responses.Response) string {
	var sb strings.Builder
	for _, item := range response.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.AsMessage().Content {
			if content.Type == "output_text" {
				sb.WriteString(content.AsOutputText().Text)
			}
		}
	}
	return sb.String()
}

func (m *OpenAIModel) classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return core.ErrRateLimit(fmt.Sprintf("%s: %s", m.name, apiErr.Message)).WithCause(err)
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return core.ErrAuth(fmt.Sprintf("%s: %s", m.name, apiErr.Message)).WithCause(err)
		case apiErr.StatusCode >= 500:
			return core.ErrNetwork(fmt.Sprintf("%s: status %d", m.name, apiErr.StatusCode)).WithCause(err)
		}
	}
	return classifyMessage(m.name, err.Error()).WithCause(err)
}
