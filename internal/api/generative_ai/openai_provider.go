package generativeAI

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-assistant/config"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider talks to any OpenAI-compatible chat-completion endpoint
// (OpenAI, OpenRouter, Perplexity, a local gateway) through go-openai.
type OpenAIProvider struct {
	name   string
	cfg    config.ProviderConfig
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAIProvider builds the client eagerly when the key is present. A missing
// key is reported on the first Complete call instead.
func NewOpenAIProvider(name string, cfg config.ProviderConfig, apiKey string, httpClient *http.Client, logger *slog.Logger) *OpenAIProvider {
	p := &OpenAIProvider{name: name, cfg: cfg, logger: logger}
	if apiKey == "" {
		return p
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	p.client = openai.NewClientWithConfig(clientCfg)
	return p
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "OpenAIProvider.Complete", trace.WithAttributes(
		attribute.String("provider", p.name),
		attribute.String("model", model),
		attribute.Int("prompt.length", len(req.Prompt)),
	))
	defer span.End()

	if p.client == nil {
		err := &types.ConfigurationError{Setting: p.cfg.APIKeyEnv}
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return "", err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.turns() {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	ccr := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: p.cfg.Temperature,
	}
	if req.Temperature != nil {
		ccr.Temperature = *req.Temperature
	}
	if req.JSONMode && p.cfg.JSONMode {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		p.logger.WarnContext(ctx, "Chat completion failed",
			slog.String("provider", p.name), slog.String("model", model), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		span.SetStatus(codes.Error, "empty completion")
		return "", types.NewMalformedOutputError("", errEmptyCompletion)
	}

	text := resp.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "completion received")
	return text, nil
}
