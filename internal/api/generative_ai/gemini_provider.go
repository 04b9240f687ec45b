package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-trip-assistant/config"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

var _ Provider = (*GeminiProvider)(nil)

// GeminiProvider calls the Gemini API. With WebSearch enabled every request is
// grounded with the Google Search tool, which is what discovery needs.
type GeminiProvider struct {
	name   string
	cfg    config.ProviderConfig
	client *genai.Client
	logger *slog.Logger
}

func NewGeminiProvider(ctx context.Context, name string, cfg config.ProviderConfig, apiKey string, httpClient *http.Client, logger *slog.Logger) (*GeminiProvider, error) {
	p := &GeminiProvider{name: name, cfg: cfg, logger: logger}
	if apiKey == "" {
		return p, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client for %s: %w", name, err)
	}
	p.client = client
	return p, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GeminiProvider.Complete", trace.WithAttributes(
		attribute.String("provider", p.name),
		attribute.String("model", model),
		attribute.Bool("web_search", p.cfg.WebSearch),
	))
	defer span.End()

	if p.client == nil {
		err := &types.ConfigurationError{Setting: p.cfg.APIKeyEnv}
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return "", err
	}

	temperature := p.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	gcc := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](temperature)}
	if req.System != "" {
		gcc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if p.cfg.WebSearch {
		gcc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if req.JSONMode && p.cfg.JSONMode {
		// Search grounding rejects a forced MIME type, so JSON mode only applies without it.
		gcc.ResponseMIMEType = "application/json"
	}

	turns := req.turns()
	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}

	result, err := p.client.Models.GenerateContent(ctx, model, contents, gcc)
	if err != nil {
		p.logger.WarnContext(ctx, "Gemini generation failed",
			slog.String("provider", p.name), slog.String("model", model), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", err
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		span.SetStatus(codes.Error, "empty completion")
		return "", types.NewMalformedOutputError("", errEmptyCompletion)
	}
	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return text, nil
}
