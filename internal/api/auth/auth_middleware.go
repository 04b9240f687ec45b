package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-trip-assistant/config"
	"github.com/FACorreiaa/go-trip-assistant/internal/api"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

type contextKey string

const UserIDKey contextKey = "userID"

// Claims are the access-token claims issued by the identity provider. UserID
// falls back to the registered subject when absent.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier turns a bearer token into the caller's user id.
type Verifier interface {
	Verify(token string) (uuid.UUID, error)
}

var _ Verifier = (*JWTVerifier)(nil)

// JWTVerifier validates HMAC-signed access tokens.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
	cfg    config.JWTConfig
}

func NewJWTVerifier(cfg config.JWTConfig) (*JWTVerifier, error) {
	if cfg.SecretKey == "" {
		return nil, &types.ConfigurationError{Setting: "jwt.secretKey"}
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTVerifier{secret: []byte(cfg.SecretKey), parser: jwt.NewParser(opts...), cfg: cfg}, nil
}

func (v *JWTVerifier) Verify(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", types.ErrUnauthorized, err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", types.ErrUnauthorized)
	}
	if !api.VerifyAudience(claims.Audience, v.cfg.Audience) {
		return uuid.Nil, fmt.Errorf("%w: audience mismatch", types.ErrUnauthorized)
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", types.ErrUnauthorized)
	}
	return userID, nil
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(logger *slog.Logger, verifier Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			token, ok := bearerToken(r)
			if !ok {
				l.WarnContext(ctx, "Missing or malformed Authorization header")
				api.HandleServiceError(w, r, l, fmt.Errorf("%w: bearer token required", types.ErrUnauthorized))
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				l.WarnContext(ctx, "Token validation failed", slog.Any("error", err))
				api.HandleServiceError(w, r, l, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(ctx, userID)))
		})
	}
}

// OptionalAuthenticate attaches the user id when a valid token is present and
// lets anonymous requests through. A present but invalid token is still rejected.
func OptionalAuthenticate(logger *slog.Logger, verifier Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "Optional token validation failed", slog.Any("error", err))
				api.HandleServiceError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// RequireUserID is GetUserIDFromContext for handlers behind Authenticate.
func RequireUserID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: user id missing from context", types.ErrUnauthorized)
	}
	return userID, nil
}
