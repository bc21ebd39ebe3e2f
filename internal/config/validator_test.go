package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// validConfig returns the default configuration.
func validConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatal(err)
	}
	return &cfg
}

func TestValidator_ValidConfig(t *testing.T) {
	t.Parallel()
	if err := ValidateConfig(validConfig(t)); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidator_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"db path", func(c *Config) { c.Data.DBPath = " " }, "data.db_path"},
		{"docs dir", func(c *Config) { c.Data.DocsDir = "" }, "data.docs_dir"},
		{"top k", func(c *Config) { c.Data.TopK = 0 }, "data.top_k"},
		{"retrieval backend", func(c *Config) { c.Retrieval.Backend = "bm25" }, "retrieval.backend"},
		{"pgvector dsn", func(c *Config) { c.Retrieval.Backend = "pgvector" }, "retrieval.pgvector.dsn"},
		{"empty chain", func(c *Config) { c.Collaborators.Chain = nil }, "collaborators.chain"},
		{"unknown backend", func(c *Config) { c.Collaborators.Chain = []string{"claude"} }, "collaborators.chain"},
		{"duplicate backend", func(c *Config) { c.Collaborators.Chain = []string{"heuristic", "heuristic"} }, "collaborators.chain"},
		{"cli without path", func(c *Config) { c.Collaborators.Chain = []string{"cli"} }, "backends.cli.path"},
		{"timeout", func(c *Config) { c.Collaborators.Timeout = "soon" }, "collaborators.timeout"},
		{"negative timeout", func(c *Config) { c.Collaborators.Timeout = "-1s" }, "collaborators.timeout"},
		{"retries", func(c *Config) { c.Collaborators.RetryAttempts = 0 }, "collaborators.retry_attempts"},
		{"burst", func(c *Config) { c.Collaborators.RateLimit = RateLimitConfig{PerSecond: 2} }, "collaborators.rate_limit.burst"},
		{"breaker threshold", func(c *Config) { c.Collaborators.Breaker.Threshold = -1 }, "collaborators.breaker.threshold"},
		{"breaker cooldown", func(c *Config) { c.Collaborators.Breaker.Cooldown = "later" }, "collaborators.breaker.cooldown"},
		{"max tokens", func(c *Config) { c.Backends.OpenAI.MaxTokens = -1 }, "backends.openai.max_tokens"},
		{"workers", func(c *Config) { c.Workflow.Workers = 0 }, "workflow.workers"},
		{"question timeout", func(c *Config) { c.Workflow.QuestionTimeout = "" }, "workflow.question_timeout"},
		{"server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"sample ratio", func(c *Config) { c.Tracing = TracingConfig{Enabled: true, Endpoint: "x", SampleRatio: 2} }, "tracing.sample_ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			v := NewValidator()
			err := v.Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %s", err, tt.field)
			}
			if !v.Errors().HasErrors() {
				t.Error("Errors() should be populated")
			}
		})
	}
}

func TestValidator_CollectsAll(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	cfg.Log.Level = "loud"
	cfg.Workflow.Workers = -1
	cfg.Data.TopK = 1000

	err := ValidateConfig(cfg)
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(verrs), verrs)
	}
}

func TestConfig_Durations(t *testing.T) {
	t.Parallel()
	cfg := validConfig(t)
	if cfg.CollaboratorTimeout() != time.Minute {
		t.Errorf("CollaboratorTimeout() = %v, want 1m", cfg.CollaboratorTimeout())
	}
	if cfg.QuestionTimeout() != 5*time.Minute {
		t.Errorf("QuestionTimeout() = %v, want 5m", cfg.QuestionTimeout())
	}
	if cfg.CLITimeout() != 2*time.Minute {
		t.Errorf("CLITimeout() = %v, want 2m", cfg.CLITimeout())
	}
	if cfg.BreakerCooldown() != 30*time.Second {
		t.Errorf("BreakerCooldown() = %v, want 30s", cfg.BreakerCooldown())
	}
	cfg.Collaborators.Timeout = "bogus"
	if cfg.CollaboratorTimeout() != 0 {
		t.Error("malformed duration should parse as zero")
	}
}
