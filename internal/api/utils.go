package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

const maxBodyBytes = 1_048_576

var validate = newValidator()

// newValidator reports fields by their JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrorResponse writes the {"error": message} body every client expects.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSONResponse(w, r, status, map[string]string{"error": message})
}

// WriteJSONResponse encodes the data to JSON and writes the response header and body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		http.Error(w, `{"error":"Erro interno."}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely. Failures wrap
// types.ErrValidation so HandleServiceError answers 400.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("%w: body contains badly-formed JSON (at character %d)", types.ErrValidation, syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return fmt.Errorf("%w: body contains badly-formed JSON", types.ErrValidation)
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("%w: body contains incorrect JSON type for field %q", types.ErrValidation, unmarshalTypeError.Field)
			}
			return fmt.Errorf("%w: body contains incorrect JSON type (at character %d)", types.ErrValidation, unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: body must not be empty", types.ErrValidation)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return fmt.Errorf("%w: body contains unknown key %q", types.ErrValidation, fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("%w: body must not be larger than %d bytes", types.ErrValidation, maxBytesError.Limit)
		default:
			return fmt.Errorf("%w: error decoding JSON body: %v", types.ErrValidation, err)
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must only contain a single JSON value", types.ErrValidation)
	}
	return nil
}

// DecodeAndValidate decodes the body into dst and checks its validate tags.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := DecodeJSONBody(w, r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", types.ErrValidation, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	return nil
}

// StatusFor maps the error taxonomy onto an HTTP status and a short user-facing
// message. Internal detail never reaches the message except for validation errors,
// whose text is produced by this service.
func StatusFor(err error) (int, string) {
	var (
		rateLimited *types.RateLimitedError
		credits     *types.InsufficientCreditsError
		cfgErr      *types.ConfigurationError
		malformed   *types.MalformedOutputError
		providerErr *types.ProviderError
		netErr      *types.NetworkError
		unsupported *types.UnsupportedProviderError
	)

	switch {
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized, "Autenticação necessária."
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, "Requisição inválida: " + strings.TrimPrefix(err.Error(), types.ErrValidation.Error()+": ")
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, "Registro não encontrado."
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict, "O registro foi alterado por outra requisição. Tente novamente."
	case errors.As(err, &rateLimited):
		return http.StatusTooManyRequests, "Muitas requisições ao serviço de IA. Aguarde alguns instantes e tente novamente."
	case errors.As(err, &credits):
		return http.StatusPaymentRequired, "Os créditos de IA acabaram. Entre em contato com o suporte para adicionar créditos."
	case errors.As(err, &cfgErr), errors.As(err, &unsupported):
		return http.StatusInternalServerError, "O serviço de IA não está configurado corretamente."
	case errors.As(err, &malformed):
		return http.StatusInternalServerError, "A IA retornou uma resposta inválida. Tente novamente."
	case errors.As(err, &providerErr), errors.As(err, &netErr):
		return http.StatusInternalServerError, "Não foi possível falar com o serviço de IA. Tente novamente em instantes."
	default:
		return http.StatusInternalServerError, "Erro interno. Tente novamente mais tarde."
	}
}

// HandleServiceError logs err with its diagnostic detail and answers with the
// mapped status and message.
func HandleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, msg := StatusFor(err)
	attrs := []any{slog.Any("error", err), slog.Int("status", status), slog.String("request_id", middleware.GetReqID(r.Context()))}

	var malformed *types.MalformedOutputError
	if errors.As(err, &malformed) {
		attrs = append(attrs, slog.String("excerpt", malformed.Excerpt))
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", attrs...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", attrs...)
	}
	ErrorResponse(w, r, status, msg)
}

// VerifyAudience reports whether expectedAudience is listed in the token audience.
// An empty expectation always passes.
func VerifyAudience(claimsAudience jwt.ClaimStrings, expectedAudience string) bool {
	if expectedAudience == "" {
		return true
	}
	for _, aud := range claimsAudience {
		if aud == expectedAudience {
			return true
		}
	}
	return false
}
