package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"yesod/internal/domain"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

var ErrNoUser = errors.New("userID not found in context")

// TokenFinder resolves a Sanctum bearer token.
type TokenFinder interface {
	FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error)
}

// bearer returns the token of the request: the Authorization header first,
// then the token query parameter websocket clients use.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

type authenticator struct {
	tokens TokenFinder
	logger *zap.Logger
	now    func() time.Time
}

func (a *authenticator) resolve(r *http.Request, token string) (*domain.PersonalAccessToken, string) {
	pat, err := a.tokens.FindTokenByPlainToken(r.Context(), token)
	if err != nil {
		a.logger.Debug("token lookup failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		return nil, "Unauthorized"
	}
	if pat.Expired(a.now()) {
		a.logger.Debug("token expired", zap.Int64("token_id", pat.ID), zap.Timep("expires_at", pat.ExpiresAt))
		return nil, "Token expired"
	}
	return pat, ""
}

func (a *authenticator) middleware(optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			pat, reason := a.resolve(r, token)
			if pat == nil {
				http.Error(w, reason, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), pat.UserID)))
		})
	}
}

// SanctumMiddleware rejects requests without a valid personal access token.
func SanctumMiddleware(tokens TokenFinder, logger *zap.Logger) func(http.Handler) http.Handler {
	a := &authenticator{tokens: tokens, logger: logger, now: time.Now}
	return a.middleware(false)
}

// OptionalSanctumMiddleware lets anonymous requests through but still
// rejects a token that is present and invalid.
func OptionalSanctumMiddleware(tokens TokenFinder, logger *zap.Logger) func(http.Handler) http.Handler {
	a := &authenticator{tokens: tokens, logger: logger, now: time.Now}
	return a.middleware(true)
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return 0, ErrNoUser
	}
	return userID, nil
}

// UserIDPtr returns the authenticated user, or nil for anonymous requests.
func UserIDPtr(ctx context.Context) *int64 {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil
	}
	return &userID
}
