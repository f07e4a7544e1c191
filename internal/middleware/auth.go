package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/handler/dto"
	"github.com/capecontrol/backend/internal/metrics"
)

type contextKey string

const (
	// ContextKeyUser is the key for storing the authenticated user in request context.
	ContextKeyUser contextKey = "user"

	// authScheme is advertised in WWW-Authenticate on 401 responses.
	authScheme = "Token"
)

// Authenticator resolves an API token to its owner.
type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*domain.User, error)
}

// AuthMiddleware handles token authentication.
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate validates "Token <key>" (or "Bearer <key>") and adds the user to request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Fields(r.Header.Get("Authorization"))
		if len(parts) == 0 {
			unauthorized(w, "missing", dto.MsgNotAuthenticated)
			return
		}

		scheme := strings.ToLower(parts[0])
		if scheme != "token" && scheme != "bearer" {
			unauthorized(w, "missing", dto.MsgNotAuthenticated)
			return
		}

		switch {
		case len(parts) == 1:
			unauthorized(w, "invalid_header", "Invalid token header. No credentials provided.")
			return
		case len(parts) > 2:
			unauthorized(w, "invalid_header", "Invalid token header. Token string should not contain spaces.")
			return
		}

		user, err := m.auth.Authenticate(r.Context(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidToken):
				unauthorized(w, "invalid_token", dto.MsgInvalidToken)
			case errors.Is(err, domain.ErrUserInactive):
				unauthorized(w, "inactive", dto.MsgUserInactive)
			default:
				slog.Error("token authentication failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, dto.NewErrorResponse(dto.MsgInternalServerError))
			}
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(ctx context.Context) (*domain.User, error) {
	user, ok := ctx.Value(ContextKeyUser).(*domain.User)
	if !ok || user == nil {
		return nil, domain.ErrInvalidToken
	}
	return user, nil
}

func unauthorized(w http.ResponseWriter, reason, detail string) {
	metrics.AuthFailures.WithLabelValues(reason).Inc()
	w.Header().Set("WWW-Authenticate", authScheme)
	writeJSON(w, http.StatusUnauthorized, dto.NewErrorResponse(detail))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
