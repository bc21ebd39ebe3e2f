package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/fsutil"
)

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.file", "")

	v.SetDefault("data.db_path", "data/northwind.sqlite")
	v.SetDefault("data.docs_dir", "docs")
	v.SetDefault("data.include", []string{"**/*.md"})
	v.SetDefault("data.top_k", 3)
	v.SetDefault("data.watch", false)

	v.SetDefault("retrieval.backend", "tfidf")
	v.SetDefault("retrieval.pgvector.dsn", "")
	v.SetDefault("retrieval.pgvector.table", "hybridqa_chunks")
	v.SetDefault("retrieval.pgvector.dimensions", 1536)
	v.SetDefault("retrieval.pgvector.embedder.provider", "openai")
	v.SetDefault("retrieval.pgvector.embedder.model", "")
	v.SetDefault("retrieval.pgvector.embedder.api_key", "")
	v.SetDefault("retrieval.pgvector.embedder.base_url", "")

	v.SetDefault("collaborators.chain", []string{"openai", "heuristic"})
	v.SetDefault("collaborators.timeout", "60s")
	v.SetDefault("collaborators.retry_attempts", 2)
	v.SetDefault("collaborators.rate_limit.per_second", 0.0)
	v.SetDefault("collaborators.rate_limit.burst", 5)
	v.SetDefault("collaborators.breaker.threshold", 3)
	v.SetDefault("collaborators.breaker.cooldown", "30s")

	v.SetDefault("backends.openai.model", "gpt-4o-mini")
	v.SetDefault("backends.openai.api_key", "")
	v.SetDefault("backends.openai.base_url", "")
	v.SetDefault("backends.openai.max_tokens", 1024)
	v.SetDefault("backends.gemini.model", "gemini-2.5-flash")
	v.SetDefault("backends.gemini.api_key", "")
	v.SetDefault("backends.gemini.project", "")
	v.SetDefault("backends.gemini.location", "")
	v.SetDefault("backends.gemini.max_tokens", 1024)
	v.SetDefault("backends.cli.path", "")
	v.SetDefault("backends.cli.args", []string{})
	v.SetDefault("backends.cli.timeout", "2m")

	v.SetDefault("workflow.workers", 4)
	v.SetDefault("workflow.question_timeout", "5m")

	v.SetDefault("output.include_debug", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.max_batch", 100)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.service_name", "hybridqa")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// DefaultConfigYAML is written by `hybridqa init`.
const DefaultConfigYAML = `# hybridqa configuration
# Every key can be overridden with HYBRIDQA_<SECTION>_<KEY>, e.g.
# HYBRIDQA_DATA_DB_PATH or HYBRIDQA_BACKENDS_OPENAI_API_KEY.

log:
  level: info      # debug | info | warn | error
  format: auto     # auto | text | json

data:
  db_path: data/northwind.sqlite
  docs_dir: docs
  include:
    - "**/*.md"
  top_k: 3
  watch: false     # serve: rebuild the tfidf index when docs change

retrieval:
  backend: tfidf   # tfidf | pgvector
  pgvector:
    dsn: ""
    table: hybridqa_chunks
    dimensions: 1536
    embedder:
      provider: openai   # openai | gemini
      model: ""

# Backends are tried in order; the first one that answers wins.
# heuristic is an offline stub and makes a safe last resort.
collaborators:
  chain: [openai, heuristic]
  timeout: 60s
  retry_attempts: 2
  rate_limit:
    per_second: 0   # 0 disables limiting
    burst: 5
  breaker:
    threshold: 3    # consecutive failures before a backend is skipped; 0 disables
    cooldown: 30s

backends:
  openai:
    model: gpt-4o-mini
    # base_url: http://localhost:11434/v1   # any OpenAI-compatible endpoint
    max_tokens: 1024
  gemini:
    model: gemini-2.5-flash
    max_tokens: 1024
  cli:
    # path: ollama run phi3.5
    timeout: 2m

workflow:
  workers: 4
  question_timeout: 5m

output:
  include_debug: false

server:
  addr: ":8080"
  cors_origins: []
  max_batch: 100

tracing:
  enabled: false
  endpoint: localhost:4318
  insecure: true
  service_name: hybridqa
  sample_ratio: 1.0
`

// ErrConfigExists is returned by WriteDefault when the file is present and
// overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes DefaultConfigYAML to path, creating parent
// directories. The file is replaced atomically.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checking config: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, []byte(DefaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
