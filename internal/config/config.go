package config

// Config holds all application configuration.
type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	Data          DataConfig          `mapstructure:"data"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Backends      BackendsConfig      `mapstructure:"backends"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Output        OutputConfig        `mapstructure:"output"`
	Server        ServerConfig        `mapstructure:"server"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DataConfig locates the relational store and the document library.
type DataConfig struct {
	DBPath  string   `mapstructure:"db_path"`
	DocsDir string   `mapstructure:"docs_dir"`
	Include []string `mapstructure:"include"`
	TopK    int      `mapstructure:"top_k"`
	Watch   bool     `mapstructure:"watch"`
}

// RetrievalConfig selects the retrieval backend.
type RetrievalConfig struct {
	Backend  string         `mapstructure:"backend"`
	PGVector PGVectorConfig `mapstructure:"pgvector"`
}

// PGVectorConfig configures the Postgres vector store.
type PGVectorConfig struct {
	DSN        string         `mapstructure:"dsn"`
	Table      string         `mapstructure:"table"`
	Dimensions int            `mapstructure:"dimensions"`
	Embedder   EmbedderConfig `mapstructure:"embedder"`
}

// EmbedderConfig configures the embedding provider.
type EmbedderConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

// CollaboratorsConfig configures how model-backed collaborators are called.
type CollaboratorsConfig struct {
	// Chain lists backends in fallback order.
	Chain         []string        `mapstructure:"chain"`
	Timeout       string          `mapstructure:"timeout"`
	RetryAttempts int             `mapstructure:"retry_attempts"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
	Breaker       BreakerConfig   `mapstructure:"breaker"`
}

// BreakerConfig skips a backend after Threshold consecutive failures until
// Cooldown has passed. A zero threshold disables it.
type BreakerConfig struct {
	Threshold int    `mapstructure:"threshold"`
	Cooldown  string `mapstructure:"cooldown"`
}

// RateLimitConfig configures the per-backend token bucket. A zero rate
// disables limiting.
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

// BackendsConfig configures each model backend.
type BackendsConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Gemini GeminiConfig `mapstructure:"gemini"`
	CLI    CLIConfig    `mapstructure:"cli"`
}

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	Project   string `mapstructure:"project"`
	Location  string `mapstructure:"location"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// CLIConfig configures the local command backend.
type CLIConfig struct {
	Path    string   `mapstructure:"path"`
	Args    []string `mapstructure:"args"`
	Timeout string   `mapstructure:"timeout"`
}

// WorkflowConfig configures question processing.
type WorkflowConfig struct {
	Workers         int    `mapstructure:"workers"`
	QuestionTimeout string `mapstructure:"question_timeout"`
}

// OutputConfig configures result records.
type OutputConfig struct {
	IncludeDebug bool `mapstructure:"include_debug"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `mapstructure:"addr"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	ReadTimeout  string   `mapstructure:"read_timeout"`
	WriteTimeout string   `mapstructure:"write_timeout"`
	MaxBatch     int      `mapstructure:"max_batch"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
