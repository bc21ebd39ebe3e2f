package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/llm"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/retrieval"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/sqlstore"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/config"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service/workflow"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/telemetry"
)

// App holds everything a command needs to answer questions.
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Store     *sqlstore.Store
	Retriever core.Retriever
	Chain     *llm.Chain
	Runner    *workflow.Runner
	Batch     *workflow.BatchRunner
	Metrics   *telemetry.Metrics
	closers   []func(context.Context) error
	logClose  func() error
}

// loadConfig loads and validates configuration through the global viper
// instance, so bound flags take part.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger from config. The returned func closes the
// log file, if one is configured.
func newLogger(cfg *config.Config) (*logging.Logger, func() error, error) {
	var out io.Writer = os.Stderr
	closeFn := func() error { return nil }
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
		Secrets: []string{
			cfg.Backends.OpenAI.APIKey,
			cfg.Backends.Gemini.APIKey,
			cfg.Retrieval.PGVector.Embedder.APIKey,
		},
	}), closeFn, nil
}

// newApp loads configuration and wires the store, retriever, model chain
// and runner. overrides are applied to the loaded config before wiring.
// Callers must Close the app.
func newApp(ctx context.Context, overrides ...func(*config.Config)) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	for _, apply := range overrides {
		apply(cfg)
	}
	logger, logClose, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		_ = logClose()
		return nil, err
	}
	app.logClose = logClose
	return app, nil
}

// buildApp wires an App from an already validated config.
func buildApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (app *App, err error) {
	app = &App{Config: cfg, Logger: logger, Metrics: telemetry.NewMetrics()}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	tracer, shutdown, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return app, fmt.Errorf("setting up tracing: %w", err)
	}
	app.closers = append(app.closers, shutdown)

	store, err := sqlstore.Open(ctx, cfg.Data.DBPath,
		sqlstore.WithMaxOpenConns(cfg.Workflow.Workers),
		sqlstore.WithLogger(logger),
	)
	if err != nil {
		return app, fmt.Errorf("opening database: %w", err)
	}
	app.Store = store
	app.closers = append(app.closers, func(context.Context) error { return store.Close() })

	retriever, closeRetriever, err := newRetriever(ctx, cfg, logger)
	if err != nil {
		return app, err
	}
	app.Retriever = retriever
	app.closers = append(app.closers, closeRetriever)

	chain, err := newChain(cfg, logger, app.Metrics)
	if err != nil {
		return app, err
	}
	app.Chain = chain

	prompts, err := service.NewPromptRenderer()
	if err != nil {
		return app, fmt.Errorf("creating prompt renderer: %w", err)
	}

	runner, err := workflow.NewRunner(workflow.RunnerDeps{
		Config: workflow.RunnerConfig{
			TopK:            cfg.Data.TopK,
			QuestionTimeout: cfg.QuestionTimeout(),
			IncludeDebug:    cfg.Output.IncludeDebug,
		},
		Collaborators: core.Collaborators{
			Classifier:     llm.NewClassifier(chain, prompts),
			QueryGenerator: llm.NewQueryGenerator(chain, prompts),
			Synthesizer:    llm.NewSynthesizer(chain, prompts),
			Retriever:      retriever,
			Executor:       store,
			Schema:         store,
		},
		Logger:        logger,
		Observer:      app.Metrics,
		EngineOptions: []workflow.EngineOption{workflow.WithTracer(tracer)},
	})
	if err != nil {
		return app, fmt.Errorf("creating runner: %w", err)
	}
	app.Runner = runner
	app.Batch = workflow.NewBatchRunner(runner, cfg.Workflow.Workers, logger)

	logger.Debug("application ready",
		"db", store.Path(),
		"retrieval", cfg.Retrieval.Backend,
		"chain", chain.Name(),
		"workers", cfg.Workflow.Workers,
	)
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.logClose != nil {
		errs = append(errs, a.logClose())
		a.logClose = nil
	}
	return errors.Join(errs...)
}

func newRetriever(ctx context.Context, cfg *config.Config, logger *logging.Logger) (core.Retriever, func(context.Context) error, error) {
	nop := func(context.Context) error { return nil }

	switch cfg.Retrieval.Backend {
	case "pgvector":
		embedder, err := retrieval.NewEmbedder(embedderConfig(cfg))
		if err != nil {
			return nil, nop, err
		}
		pg, err := retrieval.NewPGVector(ctx, cfg.Retrieval.PGVector.DSN, embedder,
			retrieval.WithTable(cfg.Retrieval.PGVector.Table),
			retrieval.WithPGVectorLogger(logger),
		)
		if err != nil {
			return nil, nop, fmt.Errorf("connecting to pgvector: %w", err)
		}
		return pg, func(context.Context) error { pg.Close(); return nil }, nil
	default:
		tfidf := retrieval.NewTFIDF(cfg.Data.DocsDir,
			retrieval.WithInclude(cfg.Data.Include...),
			retrieval.WithTFIDFLogger(logger),
		)
		// A broken corpus degrades retrieval instead of failing startup.
		if n, err := tfidf.Load(); err != nil {
			logger.Warn("document index unavailable", "dir", cfg.Data.DocsDir, "error", err)
		} else {
			logger.Debug("document index built", "dir", cfg.Data.DocsDir, "chunks", n)
		}
		return tfidf, nop, nil
	}
}

func embedderConfig(cfg *config.Config) retrieval.EmbedderConfig {
	e := cfg.Retrieval.PGVector.Embedder
	out := retrieval.EmbedderConfig{
		Provider:   e.Provider,
		Model:      e.Model,
		APIKey:     e.APIKey,
		BaseURL:    e.BaseURL,
		Dimensions: cfg.Retrieval.PGVector.Dimensions,
	}
	switch e.Provider {
	case retrieval.EmbedderGemini:
		if out.APIKey == "" {
			out.APIKey = cfg.Backends.Gemini.APIKey
		}
		out.Project = cfg.Backends.Gemini.Project
		out.Location = cfg.Backends.Gemini.Location
	default:
		if out.APIKey == "" {
			out.APIKey = cfg.Backends.OpenAI.APIKey
		}
		if out.BaseURL == "" {
			out.BaseURL = cfg.Backends.OpenAI.BaseURL
		}
	}
	return out
}

func newChain(cfg *config.Config, logger *logging.Logger, observer llm.BackendObserver) (*llm.Chain, error) {
	registry := llm.NewRegistry(logger)
	timeout := cfg.CollaboratorTimeout()

	registry.Configure(core.BackendOpenAI, llm.BackendConfig{
		Model:     cfg.Backends.OpenAI.Model,
		APIKey:    cfg.Backends.OpenAI.APIKey,
		BaseURL:   cfg.Backends.OpenAI.BaseURL,
		Timeout:   timeout,
		MaxTokens: cfg.Backends.OpenAI.MaxTokens,
	})
	registry.Configure(core.BackendGemini, llm.BackendConfig{
		Model:     cfg.Backends.Gemini.Model,
		APIKey:    cfg.Backends.Gemini.APIKey,
		Project:   cfg.Backends.Gemini.Project,
		Location:  cfg.Backends.Gemini.Location,
		Timeout:   timeout,
		MaxTokens: cfg.Backends.Gemini.MaxTokens,
	})
	registry.Configure(core.BackendCLI, llm.BackendConfig{
		Path:    cfg.Backends.CLI.Path,
		Args:    cfg.Backends.CLI.Args,
		Timeout: cfg.CLITimeout(),
	})

	limits := service.NewRateLimiterRegistry(service.RateLimiterConfig{
		MaxTokens:  float64(cfg.Collaborators.RateLimit.Burst),
		RefillRate: cfg.Collaborators.RateLimit.PerSecond,
	})
	retry := service.NewRetryPolicy(
		service.WithMaxAttempts(cfg.Collaborators.RetryAttempts),
		service.WithAttemptTimeout(timeout),
	)

	chain, err := registry.BuildChain(cfg.Collaborators.Chain, llm.ChainOptions{
		Retry:    retry,
		Limits:   limits,
		Logger:   logger,
		Observer: observer,
		Breaker: llm.BreakerConfig{
			Threshold: cfg.Collaborators.Breaker.Threshold,
			Cooldown:  cfg.BreakerCooldown(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("building model chain: %w", err)
	}
	return chain, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
