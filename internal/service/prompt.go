package service

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// Prompt ids.
const (
	PromptClassify    = "classify"
	PromptGenerateSQL = "generate-sql"
	PromptSynthesize  = "synthesize"
)

// PromptMeta is the front-matter of an embedded prompt.
type PromptMeta struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Step        string  `yaml:"step" json:"step"`
	Task        string  `yaml:"task" json:"task"`
	Status      string  `yaml:"status" json:"status"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	JSON        bool    `yaml:"json" json:"json"`
	System      string  `yaml:"system" json:"-"`
	Sha256      string  `yaml:"-" json:"sha256"`
}

// RenderedPrompt is a ready-to-send model request body.
type RenderedPrompt struct {
	Meta   PromptMeta
	System string
	User   string
}

// Request converts the rendered prompt into a model request.
func (p RenderedPrompt) Request() core.ModelRequest {
	return core.ModelRequest{
		Task:         p.Meta.Task,
		SystemPrompt: p.System,
		Prompt:       p.User,
		Temperature:  p.Meta.Temperature,
		MaxTokens:    p.Meta.MaxTokens,
		JSON:         p.Meta.JSON,
	}
}

type promptEntry struct {
	meta PromptMeta
	tmpl *template.Template
}

// PromptRenderer renders prompts from templates.
type PromptRenderer struct {
	prompts map[string]promptEntry
	mu      sync.RWMutex
}

// NewPromptRenderer creates a new prompt renderer.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{
		prompts: make(map[string]promptEntry),
	}
	if err := r.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	return r, nil
}

// loadTemplates loads all templates from the embedded filesystem.
func (r *PromptRenderer) loadTemplates() error {
	return fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		id := promptIDFromPath(path)
		entry, err := parsePrompt(id, string(content))
		if err != nil {
			return err
		}
		r.prompts[id] = entry
		return nil
	})
}

func parsePrompt(id, raw string) (promptEntry, error) {
	fmRaw, body, ok := splitFrontmatter(raw)
	if !ok {
		return promptEntry{}, fmt.Errorf("missing frontmatter (id=%s)", id)
	}

	var meta PromptMeta
	if err := yaml.Unmarshal([]byte(fmRaw), &meta); err != nil {
		return promptEntry{}, fmt.Errorf("parsing frontmatter (id=%s): %w", id, err)
	}
	if err := validatePromptMeta(meta, id); err != nil {
		return promptEntry{}, fmt.Errorf("invalid frontmatter (id=%s): %w", id, err)
	}
	meta.System = strings.TrimSpace(meta.System)
	meta.Sha256 = hashSha256(body)

	tmpl, err := template.New(id).Funcs(templateFuncs()).Parse(body)
	if err != nil {
		return promptEntry{}, fmt.Errorf("parsing template %s: %w", id, err)
	}
	return promptEntry{meta: meta, tmpl: tmpl}, nil
}

func splitFrontmatter(raw string) (frontmatter, body string, ok bool) {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return "", s, false
	}

	rest := s[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end == -1 {
		return "", s, false
	}

	frontmatter = rest[:end]
	body = strings.TrimLeft(rest[end+len("\n---\n"):], "\n")
	return frontmatter, body, true
}

func validatePromptMeta(meta PromptMeta, idFromFilename string) error {
	if strings.TrimSpace(meta.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if meta.ID != idFromFilename {
		return fmt.Errorf("id %q does not match filename %q", meta.ID, idFromFilename)
	}
	if strings.TrimSpace(meta.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if _, err := core.ParseStep(meta.Step); err != nil {
		return fmt.Errorf("invalid step %q", meta.Step)
	}
	switch meta.Task {
	case core.TaskClassify, core.TaskSQL, core.TaskSynthesize:
	default:
		return fmt.Errorf("invalid task %q", meta.Task)
	}
	switch meta.Status {
	case "active", "deprecated":
	default:
		return fmt.Errorf("invalid status %q", meta.Status)
	}
	if meta.Temperature < 0 || meta.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range", meta.Temperature)
	}
	if meta.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	return nil
}

func promptIDFromPath(path string) string {
	name := strings.TrimPrefix(path, "prompts/")
	return strings.TrimSuffix(name, ".md.tmpl")
}

func hashSha256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join":      strings.Join,
		"indent":    indent,
		"truncate":  truncate,
		"trimSpace": strings.TrimSpace,
		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"toJSON":    toJSON,
	}
}

func indent(spaces int, s string) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to at most n runes, marking the cut.
func truncate(n int, s string) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + " …"
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ClassifyParams contains parameters for the classification prompt.
type ClassifyParams struct {
	Question string
}

// GenerateSQLParams contains parameters for the SQL generation prompt.
type GenerateSQLParams struct {
	Question string
	Schema   string
	Docs     []core.Doc
}

// SynthesizeParams contains parameters for the synthesis prompt.
type SynthesizeParams struct {
	Question    string
	QueryResult *core.QueryResult
	Docs        []core.Doc
	FormatHint  string
}

// RenderClassify renders the classification prompt.
func (r *PromptRenderer) RenderClassify(params ClassifyParams) (RenderedPrompt, error) {
	return r.Render(PromptClassify, params)
}

// RenderGenerateSQL renders the SQL generation prompt.
func (r *PromptRenderer) RenderGenerateSQL(params GenerateSQLParams) (RenderedPrompt, error) {
	return r.Render(PromptGenerateSQL, params)
}

// RenderSynthesize renders the synthesis prompt.
func (r *PromptRenderer) RenderSynthesize(params SynthesizeParams) (RenderedPrompt, error) {
	return r.Render(PromptSynthesize, params)
}

// Render executes the named prompt with data.
func (r *PromptRenderer) Render(id string, data any) (RenderedPrompt, error) {
	r.mu.RLock()
	entry, ok := r.prompts[id]
	r.mu.RUnlock()

	if !ok {
		return RenderedPrompt{}, fmt.Errorf("template %q not found", id)
	}

	var buf bytes.Buffer
	if err := entry.tmpl.Execute(&buf, data); err != nil {
		return RenderedPrompt{}, fmt.Errorf("executing template %s: %w", id, err)
	}

	return RenderedPrompt{
		Meta:   entry.meta,
		System: entry.meta.System,
		User:   strings.TrimSpace(buf.String()),
	}, nil
}

// ListPrompts returns metadata for all prompts in workflow order.
func (r *PromptRenderer) ListPrompts() []PromptMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order := make(map[core.Step]int)
	for i, s := range core.AllSteps() {
		order[s] = i
	}

	metas := make([]PromptMeta, 0, len(r.prompts))
	for _, e := range r.prompts {
		metas = append(metas, e.meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		oi, oj := order[core.Step(metas[i].Step)], order[core.Step(metas[j].Step)]
		if oi != oj {
			return oi < oj
		}
		return metas[i].ID < metas[j].ID
	})
	return metas
}

// HasTemplate checks if a prompt exists.
func (r *PromptRenderer) HasTemplate(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.prompts[id]
	return ok
}
