package langchain

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"vipra/internal/application/port/output"
	"vipra/internal/infrastructure/llm"
)

var _ output.ReasonerPort = (*Adapter)(nil)

type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	MaxTokens     int
	Temperature   float64
	MaxImageWidth int
}

// Adapter reasons through any langchaingo model that accepts image parts.
type Adapter struct {
	model  llms.Model
	cfg    Config
	logger output.LoggerPort
}

func New(model llms.Model, cfg Config, logger output.LoggerPort) *Adapter {
	return &Adapter{model: model, cfg: cfg, logger: logger}
}

// NewOpenAI builds the adapter on langchaingo's OpenAI-compatible provider.
func NewOpenAI(cfg Config, logger output.LoggerPort) (*Adapter, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai model: %w", err)
	}
	return New(model, cfg, logger), nil
}

func (a *Adapter) Reason(ctx context.Context, req output.ReasoningRequest) (string, error) {
	imageURL, err := llm.PNGDataURL(req.Image, a.cfg.MaxImageWidth)
	if err != nil {
		return "", err
	}

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(req.Prompt),
				llms.ImageURLPart(imageURL),
			},
		},
	}

	opts := []llms.CallOption{llms.WithTemperature(a.cfg.Temperature)}
	if a.cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(a.cfg.MaxTokens))
	}

	if a.logger != nil {
		a.logger.Debug("Generating content", "model", a.cfg.Model, "template", req.TemplateVersion, "promptLen", len(req.Prompt))
	}

	resp, err := a.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	if a.logger != nil {
		a.logger.Debug("Content generated", "stopReason", choice.StopReason, "contentLen", len(choice.Content))
	}
	return choice.Content, nil
}
