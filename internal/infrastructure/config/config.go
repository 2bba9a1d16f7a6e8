package config

import (
	"fmt"
	"time"

	"vipra/internal/infrastructure/logger"
	"vipra/internal/infrastructure/nlp"
	"vipra/internal/infrastructure/render"
	"vipra/internal/usecase/analysis"
	"vipra/internal/usecase/grounding"
	"vipra/internal/usecase/verdict"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderLangchain  = "langchain"
)

type Config struct {
	Reasoning ReasoningConfig  `mapstructure:"reasoning"`
	Grounding grounding.Config `mapstructure:"grounding"`
	Annotate  render.Config    `mapstructure:"annotate"`
	Analysis  AnalysisConfig   `mapstructure:"analysis"`
	Verdict   verdict.Config   `mapstructure:"verdict"`
	Log       logger.Options   `mapstructure:"log"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
}

type ReasoningConfig struct {
	Provider      string        `mapstructure:"provider"`
	Model         string        `mapstructure:"model"`
	BaseURL       string        `mapstructure:"base_url"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Temperature   float64       `mapstructure:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxImageWidth int           `mapstructure:"max_image_width"`
	LogHTTP       bool          `mapstructure:"log_http"`
	// APIKeyEnv names the environment variable holding the API key. Keys are
	// never read from config files.
	APIKeyEnv string `mapstructure:"api_key_env"`
}

type AnalysisConfig struct {
	MinPhraseLen int `mapstructure:"min_phrase_len"`
}

type MetricsConfig struct {
	// Addr enables the /metrics endpoint when non-empty.
	Addr string `mapstructure:"addr"`
}

func Default() Config {
	return Config{
		Reasoning: ReasoningConfig{
			Provider:      ProviderOpenRouter,
			Model:         "qwen/qwen2.5-vl-72b-instruct",
			BaseURL:       "https://openrouter.ai/api/v1",
			MaxTokens:     512,
			Temperature:   0,
			Timeout:       analysis.DefaultConfig().ReasonTimeout,
			MaxImageWidth: 1024,
			APIKeyEnv:     "OPENROUTER_API_KEY",
		},
		Grounding: grounding.DefaultConfig(),
		Annotate:  render.DefaultConfig(),
		Analysis:  AnalysisConfig{MinPhraseLen: nlp.DefaultConfig().MinPhraseLen},
		Verdict:   verdict.DefaultConfig(),
		Log:       logger.DefaultOptions(),
	}
}

func (c *Config) Validate() error {
	switch c.Reasoning.Provider {
	case ProviderOpenRouter, ProviderLangchain:
	default:
		return fmt.Errorf("reasoning.provider must be %q or %q, got %q", ProviderOpenRouter, ProviderLangchain, c.Reasoning.Provider)
	}
	if c.Reasoning.Model == "" {
		return fmt.Errorf("reasoning.model is required")
	}
	if c.Reasoning.Timeout <= 0 {
		return fmt.Errorf("reasoning.timeout must be positive, got %s", c.Reasoning.Timeout)
	}
	if c.Reasoning.MaxTokens < 0 {
		return fmt.Errorf("reasoning.max_tokens must not be negative, got %d", c.Reasoning.MaxTokens)
	}
	if c.Reasoning.MaxImageWidth < 0 {
		return fmt.Errorf("reasoning.max_image_width must not be negative, got %d", c.Reasoning.MaxImageWidth)
	}
	if c.Analysis.MinPhraseLen < 1 {
		return fmt.Errorf("analysis.min_phrase_len must be at least 1, got %d", c.Analysis.MinPhraseLen)
	}
	if c.Annotate.StrokeWidth < 1 {
		return fmt.Errorf("annotate.stroke_width must be at least 1, got %d", c.Annotate.StrokeWidth)
	}
	if err := c.Grounding.Validate(); err != nil {
		return err
	}
	if c.Verdict.DegradedConfidence < 0 || c.Verdict.DegradedConfidence > 1 {
		return fmt.Errorf("verdict.degraded_confidence must be in [0,1], got %v", c.Verdict.DegradedConfidence)
	}
	return nil
}

func (c *Config) AnalysisConfig() analysis.Config {
	return analysis.Config{ReasonTimeout: c.Reasoning.Timeout}
}

func (c *Config) ExtractorConfig() nlp.Config {
	return nlp.Config{MinPhraseLen: c.Analysis.MinPhraseLen}
}
