package generativeAI

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

// Well-known provider names.
const (
	ProviderChat   = "chat"
	ProviderSearch = "search"
)

const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is the provider-neutral shape of one completion call. Prompt, when set,
// is sent as the final user turn after Messages.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Prompt      string
	Temperature *float32
	JSONMode    bool
}

func (r Request) turns() []Message {
	out := make([]Message, 0, len(r.Messages)+1)
	for _, m := range r.Messages {
		if m.Content != "" {
			out = append(out, m)
		}
	}
	if r.Prompt != "" {
		out = append(out, Message{Role: RoleUser, Content: r.Prompt})
	}
	return out
}

// Provider turns a Request into the model's text reply.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var errEmptyCompletion = errors.New("model returned no content")

// classifyError maps SDK and transport failures onto the error taxonomy.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var (
		cfgErr     *types.ConfigurationError
		netErr     *types.NetworkError
		malformed  *types.MalformedOutputError
		apiErr     *openai.APIError
		reqErr     *openai.RequestError
		geminiErr  genai.APIError
		geminiPErr *genai.APIError
		urlErr     *url.Error
	)

	switch {
	case errors.As(err, &cfgErr), errors.As(err, &malformed):
		return err
	case errors.As(err, &netErr):
		return netErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &apiErr):
		return fromStatus(provider, apiErr.HTTPStatusCode, err)
	case errors.As(err, &reqErr):
		return fromStatus(provider, reqErr.HTTPStatusCode, err)
	case errors.As(err, &geminiErr):
		return fromStatus(provider, geminiErr.Code, err)
	case errors.As(err, &geminiPErr):
		return fromStatus(provider, geminiPErr.Code, err)
	case errors.As(err, &urlErr):
		return &types.NetworkError{Attempts: 1, Err: err}
	default:
		return &types.ProviderError{Provider: provider, Err: err}
	}
}

func fromStatus(provider string, status int, err error) error {
	switch status {
	case http.StatusTooManyRequests:
		return &types.RateLimitedError{Provider: provider}
	case http.StatusPaymentRequired:
		return &types.InsufficientCreditsError{Provider: provider}
	default:
		return &types.ProviderError{Provider: provider, Status: status, Err: err}
	}
}
