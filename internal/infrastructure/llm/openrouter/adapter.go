package openrouter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"

	"vipra/internal/application/port/output"
	"vipra/internal/infrastructure/llm"
)

var _ output.ReasonerPort = (*OpenRouterAdapter)(nil)

type OpenRouterAdapter struct {
	client *openai.Client
	cfg    Config
	logger output.LoggerPort
}

type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	MaxTokens     int
	Temperature   float32
	MaxImageWidth int
	// LogHTTP logs request and response metadata with image payloads redacted.
	LogHTTP    bool
	Logger     output.LoggerPort
	HTTPClient *http.Client
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:        apiKey,
		Model:         model,
		BaseURL:       "https://openrouter.ai/api/v1",
		MaxTokens:     512,
		MaxImageWidth: 1024,
	}
}

var dataURLRe = regexp.MustCompile(`data:image/[a-zA-Z+.-]+;base64,[A-Za-z0-9+/=]+`)

const maxLoggedBody = 4096

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", redact(body),
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "url", req.URL.String(), "error", err)
		return nil, err
	}

	t.logger.Debug("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
	)
	return resp, nil
}

// redact replaces inline images with their size so logs stay readable.
func redact(body []byte) string {
	s := dataURLRe.ReplaceAllStringFunc(string(body), func(m string) string {
		return fmt.Sprintf("data:image;base64,<%d bytes redacted>", len(m))
	})
	if len(s) > maxLoggedBody {
		s = s[:maxLoggedBody] + "...(truncated)"
	}
	return s
}

func NewOpenRouterAdapter(cfg Config) *OpenRouterAdapter {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if cfg.LogHTTP && cfg.Logger != nil {
		base := client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		client = &http.Client{
			Transport: &loggingTransport{base: base, logger: cfg.Logger},
			Timeout:   client.Timeout,
		}
	}
	config.HTTPClient = client

	return &OpenRouterAdapter{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Reason sends the annotated screenshot and the prompt as one user message
// and returns the first choice's text.
func (a *OpenRouterAdapter) Reason(ctx context.Context, req output.ReasoningRequest) (string, error) {
	imageURL, err := llm.PNGDataURL(req.Image, a.cfg.MaxImageWidth)
	if err != nil {
		return "", err
	}

	if a.logger != nil {
		a.logger.Debug("Creating chat completion",
			"model", a.cfg.Model,
			"template", req.TemplateVersion,
			"promptLen", len(req.Prompt),
			"imageBytes", len(imageURL),
			"maxTokens", a.cfg.MaxTokens)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if a.logger != nil {
		a.logger.Debug("Chat completion received",
			"finishReason", string(resp.Choices[0].FinishReason),
			"contentLen", len(content),
			"promptTokens", resp.Usage.PromptTokens,
			"completionTokens", resp.Usage.CompletionTokens)
	}
	return content, nil
}
