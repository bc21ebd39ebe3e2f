package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader().WithConfigFile(writeConfig(t, "{}\n"))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Data.TopK != 3 {
		t.Errorf("Data.TopK = %d, want 3", cfg.Data.TopK)
	}
	if len(cfg.Data.Include) != 1 || cfg.Data.Include[0] != "**/*.md" {
		t.Errorf("Data.Include = %v, want [**/*.md]", cfg.Data.Include)
	}
	if got := cfg.Collaborators.Chain; len(got) != 2 || got[0] != "openai" || got[1] != "heuristic" {
		t.Errorf("Collaborators.Chain = %v, want [openai heuristic]", got)
	}
	if cfg.Retrieval.Backend != "tfidf" {
		t.Errorf("Retrieval.Backend = %q, want tfidf", cfg.Retrieval.Backend)
	}
	if cfg.Workflow.Workers != 4 {
		t.Errorf("Workflow.Workers = %d, want 4", cfg.Workflow.Workers)
	}
	if cfg.Output.IncludeDebug {
		t.Error("Output.IncludeDebug should default to false")
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoader_File(t *testing.T) {
	path := writeConfig(t, `
data:
  db_path: /srv/sales.sqlite
  top_k: 5
collaborators:
  chain: [cli, heuristic]
backends:
  cli:
    path: ollama run phi3.5
output:
  include_debug: true
`)
	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loader.ConfigFile() != path {
		t.Errorf("ConfigFile() = %q, want %q", loader.ConfigFile(), path)
	}
	if cfg.Data.DBPath != "/srv/sales.sqlite" || cfg.Data.TopK != 5 {
		t.Errorf("Data = %+v", cfg.Data)
	}
	if cfg.Data.DocsDir != "docs" {
		t.Errorf("unset keys should keep defaults, DocsDir = %q", cfg.Data.DocsDir)
	}
	if cfg.Backends.CLI.Path != "ollama run phi3.5" {
		t.Errorf("Backends.CLI.Path = %q", cfg.Backends.CLI.Path)
	}
	if !cfg.Output.IncludeDebug {
		t.Error("Output.IncludeDebug should be true")
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("HYBRIDQA_DATA_TOP_K", "7")
	t.Setenv("HYBRIDQA_COLLABORATORS_CHAIN", "gemini, heuristic")
	t.Setenv("HYBRIDQA_BACKENDS_OPENAI_API_KEY", "sk-env")

	cfg, err := NewLoader().WithConfigFile(writeConfig(t, "data:\n  top_k: 2\n")).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Data.TopK != 7 {
		t.Errorf("Data.TopK = %d, want env value 7", cfg.Data.TopK)
	}
	if got := cfg.Collaborators.Chain; len(got) != 2 || got[0] != "gemini" || got[1] != "heuristic" {
		t.Errorf("Collaborators.Chain = %v, want [gemini heuristic]", got)
	}
	if cfg.Backends.OpenAI.APIKey != "sk-env" {
		t.Errorf("Backends.OpenAI.APIKey = %q", cfg.Backends.OpenAI.APIKey)
	}
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("HQTEST_WORKFLOW_WORKERS", "9")
	cfg, err := NewLoader().WithEnvPrefix("HQTEST").WithConfigFile(writeConfig(t, "{}\n")).Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workflow.Workers != 9 {
		t.Errorf("Workflow.Workers = %d, want 9", cfg.Workflow.Workers)
	}
}

func TestLoader_InvalidFile(t *testing.T) {
	_, err := NewLoader().WithConfigFile(writeConfig(t, "data: [unclosed\n")).Load()
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoader_SetAndGet(t *testing.T) {
	loader := NewLoader().WithConfigFile(writeConfig(t, "{}\n"))
	loader.Set("workflow.workers", 2)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workflow.Workers != 2 {
		t.Errorf("Workflow.Workers = %d, want 2", cfg.Workflow.Workers)
	}
	if !loader.IsSet("workflow.workers") || loader.Get("workflow.workers") != 2 {
		t.Error("Set value should be visible through Get/IsSet")
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".hybridqa", "config.yaml")

	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if err := WriteDefault(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second WriteDefault() error = %v, want ErrConfigExists", err)
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("forced WriteDefault() error = %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("loading written default: %v", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("written default should validate: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
