package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration. File existence is not
// checked here; `hybridqa doctor` reports missing data.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateData(&cfg.Data)
	v.validateRetrieval(&cfg.Retrieval)
	v.validateCollaborators(&cfg.Collaborators, &cfg.Backends)
	v.validateBackends(&cfg.Backends)
	v.validateWorkflow(&cfg.Workflow)
	v.validateServer(&cfg.Server)
	v.validateTracing(&cfg.Tracing)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateDuration(field, value string) {
	d, err := time.ParseDuration(value)
	if err != nil {
		v.addError(field, value, "invalid duration format")
		return
	}
	if d <= 0 {
		v.addError(field, value, "must be positive")
	}
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}

	if cfg.File != "" && !isValidPath(cfg.File) {
		v.addError("log.file", cfg.File, "invalid file path")
	}
}

func (v *Validator) validateData(cfg *DataConfig) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		v.addError("data.db_path", cfg.DBPath, "path required")
	}
	if strings.TrimSpace(cfg.DocsDir) == "" {
		v.addError("data.docs_dir", cfg.DocsDir, "directory required")
	}
	for _, pattern := range cfg.Include {
		if strings.TrimSpace(pattern) == "" {
			v.addError("data.include", pattern, "pattern cannot be empty")
		}
	}
	if cfg.TopK < 1 || cfg.TopK > 100 {
		v.addError("data.top_k", cfg.TopK, "must be between 1 and 100")
	}
}

func (v *Validator) validateRetrieval(cfg *RetrievalConfig) {
	switch cfg.Backend {
	case "tfidf":
	case "pgvector":
		if cfg.PGVector.DSN == "" {
			v.addError("retrieval.pgvector.dsn", cfg.PGVector.DSN, "dsn required for the pgvector backend")
		}
		if cfg.PGVector.Dimensions <= 0 {
			v.addError("retrieval.pgvector.dimensions", cfg.PGVector.Dimensions, "must be positive")
		}
		switch cfg.PGVector.Embedder.Provider {
		case "openai", "gemini":
		default:
			v.addError("retrieval.pgvector.embedder.provider", cfg.PGVector.Embedder.Provider, "must be one of: openai, gemini")
		}
	default:
		v.addError("retrieval.backend", cfg.Backend, "must be one of: tfidf, pgvector")
	}
}

func (v *Validator) validateCollaborators(cfg *CollaboratorsConfig, backends *BackendsConfig) {
	if len(cfg.Chain) == 0 {
		v.addError("collaborators.chain", cfg.Chain, "at least one backend required")
	}
	seen := make(map[string]bool)
	for _, name := range cfg.Chain {
		if !core.ValidBackends[name] {
			v.addError("collaborators.chain", name, "unknown backend")
			continue
		}
		if seen[name] {
			v.addError("collaborators.chain", name, "listed more than once")
		}
		seen[name] = true
	}
	if seen[core.BackendCLI] && strings.TrimSpace(backends.CLI.Path) == "" {
		v.addError("backends.cli.path", backends.CLI.Path, "path required when cli is in the chain")
	}

	v.validateDuration("collaborators.timeout", cfg.Timeout)
	if cfg.RetryAttempts < 1 || cfg.RetryAttempts > 10 {
		v.addError("collaborators.retry_attempts", cfg.RetryAttempts, "must be between 1 and 10")
	}
	if cfg.RateLimit.PerSecond < 0 {
		v.addError("collaborators.rate_limit.per_second", cfg.RateLimit.PerSecond, "must be non-negative")
	}
	if cfg.RateLimit.PerSecond > 0 && cfg.RateLimit.Burst < 1 {
		v.addError("collaborators.rate_limit.burst", cfg.RateLimit.Burst, "must be at least 1 when limiting")
	}
	if cfg.Breaker.Threshold < 0 {
		v.addError("collaborators.breaker.threshold", cfg.Breaker.Threshold, "must be non-negative")
	}
	if cfg.Breaker.Threshold > 0 {
		v.validateDuration("collaborators.breaker.cooldown", cfg.Breaker.Cooldown)
	}
}

func (v *Validator) validateBackends(cfg *BackendsConfig) {
	if cfg.OpenAI.MaxTokens < 0 || cfg.OpenAI.MaxTokens > 200000 {
		v.addError("backends.openai.max_tokens", cfg.OpenAI.MaxTokens, "must be between 0 and 200000")
	}
	if cfg.Gemini.MaxTokens < 0 || cfg.Gemini.MaxTokens > 200000 {
		v.addError("backends.gemini.max_tokens", cfg.Gemini.MaxTokens, "must be between 0 and 200000")
	}
	if cfg.CLI.Timeout != "" {
		v.validateDuration("backends.cli.timeout", cfg.CLI.Timeout)
	}
}

func (v *Validator) validateWorkflow(cfg *WorkflowConfig) {
	if cfg.Workers < 1 || cfg.Workers > 256 {
		v.addError("workflow.workers", cfg.Workers, "must be between 1 and 256")
	}
	v.validateDuration("workflow.question_timeout", cfg.QuestionTimeout)
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if strings.TrimSpace(cfg.Addr) == "" {
		v.addError("server.addr", cfg.Addr, "address required")
	}
	v.validateDuration("server.read_timeout", cfg.ReadTimeout)
	v.validateDuration("server.write_timeout", cfg.WriteTimeout)
	if cfg.MaxBatch < 1 {
		v.addError("server.max_batch", cfg.MaxBatch, "must be positive")
	}
}

func (v *Validator) validateTracing(cfg *TracingConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.Endpoint == "" {
		v.addError("tracing.endpoint", cfg.Endpoint, "endpoint required when tracing is enabled")
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		v.addError("tracing.sample_ratio", cfg.SampleRatio, "must be between 0 and 1")
	}
}

func isValidPath(path string) bool {
	dir := filepath.Dir(path)
	_, err := os.Stat(dir)
	return err == nil || os.IsNotExist(err)
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}

// Durations are pre-validated by ValidateConfig; these helpers fall back to
// zero on malformed input.

// CollaboratorTimeout parses collaborators.timeout.
func (c *Config) CollaboratorTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Collaborators.Timeout)
	return d
}

// BreakerCooldown parses collaborators.breaker.cooldown.
func (c *Config) BreakerCooldown() time.Duration {
	d, _ := time.ParseDuration(c.Collaborators.Breaker.Cooldown)
	return d
}

// QuestionTimeout parses workflow.question_timeout.
func (c *Config) QuestionTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Workflow.QuestionTimeout)
	return d
}

// CLITimeout parses backends.cli.timeout.
func (c *Config) CLITimeout() time.Duration {
	d, _ := time.ParseDuration(c.Backends.CLI.Timeout)
	return d
}
