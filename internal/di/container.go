package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vipra/internal/application/port/input"
	"vipra/internal/application/port/output"
	"vipra/internal/infrastructure/config"
	"vipra/internal/infrastructure/hierarchy"
	"vipra/internal/infrastructure/llm/langchain"
	"vipra/internal/infrastructure/llm/openrouter"
	"vipra/internal/infrastructure/logger"
	"vipra/internal/infrastructure/metrics"
	"vipra/internal/infrastructure/nlp"
	"vipra/internal/infrastructure/prompts"
	"vipra/internal/infrastructure/render"
	"vipra/internal/usecase/analysis"
	"vipra/internal/usecase/grounding"
	"vipra/internal/usecase/verdict"
)

type Container struct {
	Config   *config.Config
	Logger   output.LoggerPort
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder
	Reasoner output.ReasonerPort
	Analyzer input.MismatchAnalyzer

	metricsServer *metrics.Server
	MetricsAddr   string
}

type Options struct {
	Config *config.Config
	APIKey string
	// LogName names the log file; defaults to "analysis".
	LogName string
	// Offline builds the pipeline without a reasoning backend. Analyze then
	// fails for grounded inputs; Prepare and Replay still work.
	Offline bool
	// Logger replaces the configured zap logger, mainly for tests.
	Logger output.LoggerPort
	// Reasoner replaces the configured backend, mainly for tests.
	Reasoner output.ReasonerPort
}

func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := opts.Logger
	if log == nil {
		name := opts.LogName
		if name == "" {
			name = "analysis"
		}
		l, err := logger.NewLoggerAdapter(name, cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		log = l
	}

	c := &Container{Config: cfg, Logger: log, Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(collectors.NewGoCollector())
	c.Metrics = metrics.NewRecorder(c.Registry)

	reasoner := opts.Reasoner
	if reasoner == nil && !opts.Offline {
		r, err := newReasoner(cfg.Reasoning, opts.APIKey, log)
		if err != nil {
			c.Close()
			return nil, err
		}
		reasoner = r
	}
	c.Reasoner = reasoner

	analyzer, err := newAnalyzer(cfg, reasoner, c.Metrics, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Analyzer = analyzer

	if cfg.Metrics.Addr != "" {
		c.metricsServer = metrics.NewServer(cfg.Metrics.Addr, c.Registry, log)
		addr, err := c.metricsServer.Start()
		if err != nil {
			c.metricsServer = nil
			c.Close()
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
		c.MetricsAddr = addr
	}

	log.Info("Container ready",
		"provider", cfg.Reasoning.Provider,
		"model", cfg.Reasoning.Model,
		"offline", reasoner == nil,
		"metrics_addr", c.MetricsAddr,
	)
	return c, nil
}

func newReasoner(cfg config.ReasoningConfig, apiKey string, log output.LoggerPort) (output.ReasonerPort, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, cfg.APIKeyEnv)
	}
	switch cfg.Provider {
	case config.ProviderLangchain:
		r, err := langchain.NewOpenAI(langchain.Config{
			APIKey:        apiKey,
			Model:         cfg.Model,
			BaseURL:       cfg.BaseURL,
			MaxTokens:     cfg.MaxTokens,
			Temperature:   cfg.Temperature,
			MaxImageWidth: cfg.MaxImageWidth,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create reasoner: %w", err)
		}
		return r, nil
	default:
		rc := openrouter.DefaultConfig(apiKey, cfg.Model)
		if cfg.BaseURL != "" {
			rc.BaseURL = cfg.BaseURL
		}
		rc.MaxTokens = cfg.MaxTokens
		rc.Temperature = float32(cfg.Temperature)
		rc.MaxImageWidth = cfg.MaxImageWidth
		rc.LogHTTP = cfg.LogHTTP
		rc.Logger = log
		return openrouter.NewOpenRouterAdapter(rc), nil
	}
}

// ErrMissingAPIKey is returned when an online container is built without a key.
var ErrMissingAPIKey = errors.New("missing API key")

func newAnalyzer(cfg *config.Config, reasoner output.ReasonerPort, rec output.MetricsPort, log output.LoggerPort) (*analysis.UseCase, error) {
	engine, err := grounding.New(cfg.Grounding, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create grounding engine: %w", err)
	}
	composer, err := prompts.NewComposer()
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt composer: %w", err)
	}
	interpreter, err := verdict.New(cfg.Verdict, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create verdict interpreter: %w", err)
	}

	deps := analysis.Deps{
		Parser:      hierarchy.NewParser(log),
		Normalizer:  nlp.Normalizer{},
		Extractor:   nlp.NewExtractor(cfg.ExtractorConfig()),
		Grounder:    engine,
		Annotator:   render.NewAnnotator(cfg.Annotate, log),
		Composer:    composer,
		Reasoner:    reasoner,
		Interpreter: interpreter,
		Metrics:     rec,
		Logger:      log,
	}
	uc, err := analysis.New(cfg.AnalysisConfig(), deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis pipeline: %w", err)
	}
	return uc, nil
}

// Close stops the metrics server and flushes the logger. It is safe to call
// on a partially built container.
func (c *Container) Close() {
	if c.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.metricsServer.Shutdown(ctx); err != nil && c.Logger != nil {
			c.Logger.Warn("Metrics server shutdown failed", "error", err)
		}
		cancel()
		c.metricsServer = nil
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
