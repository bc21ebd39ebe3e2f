package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service"
)

// Classifier routes questions with a model.
type Classifier struct {
	model   core.Model
	prompts *service.PromptRenderer
}

// QueryGenerator writes SQL with a model.
type QueryGenerator struct {
	model   core.Model
	prompts *service.PromptRenderer
}

// Synthesizer composes answers with a model.
type Synthesizer struct {
	model   core.Model
	prompts *service.PromptRenderer
}

// NewClassifier creates a model-backed classifier.
func NewClassifier(model core.Model, prompts *service.PromptRenderer) *Classifier {
	return &Classifier{model: model, prompts: prompts}
}

// NewQueryGenerator creates a model-backed query generator.
func NewQueryGenerator(model core.Model, prompts *service.PromptRenderer) *QueryGenerator {
	return &QueryGenerator{model: model, prompts: prompts}
}

// NewSynthesizer creates a model-backed synthesizer.
func NewSynthesizer(model core.Model, prompts *service.PromptRenderer) *Synthesizer {
	return &Synthesizer{model: model, prompts: prompts}
}

// Classify returns the model's routing label.
func (c *Classifier) Classify(ctx context.Context, question string) (string, error) {
	p, err := c.prompts.RenderClassify(service.ClassifyParams{Question: question})
	if err != nil {
		return "", err
	}
	out, err := c.model.Generate(ctx, p.Request())
	if err != nil {
		return "", err
	}
	return ParseLabel(out), nil
}

// GenerateQuery returns one SQL statement, or an error when the model's
// output contains none.
func (g *QueryGenerator) GenerateQuery(ctx context.Context, req core.QueryRequest) (string, error) {
	p, err := g.prompts.RenderGenerateSQL(service.GenerateSQLParams{
		Question: req.Question,
		Schema:   req.Schema,
		Docs:     req.Docs,
	})
	if err != nil {
		return "", err
	}
	out, err := g.model.Generate(ctx, p.Request())
	if err != nil {
		return "", err
	}
	stmt := ParseSQL(out)
	if stmt == "" {
		return "", core.ErrCollaborator(core.CodeUnparseable,
			fmt.Sprintf("no SQL statement in model output: %q", truncateForLog(strings.TrimSpace(out), 200)))
	}
	return stmt, nil
}

// Synthesize returns the model's answer and explanation.
func (s *Synthesizer) Synthesize(ctx context.Context, req core.SynthesisRequest) (core.Synthesis, error) {
	p, err := s.prompts.RenderSynthesize(service.SynthesizeParams{
		Question:    req.Question,
		QueryResult: req.QueryResult,
		Docs:        req.Docs,
		FormatHint:  req.FormatHint,
	})
	if err != nil {
		return core.Synthesis{}, err
	}
	out, err := s.model.Generate(ctx, p.Request())
	if err != nil {
		return core.Synthesis{}, err
	}
	return ParseSynthesis(out, req.FormatHint)
}
