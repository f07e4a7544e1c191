package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/handler/dto"
	"github.com/capecontrol/backend/internal/middleware"
)

type stubAuthenticator struct {
	users map[string]*domain.User
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, key string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[key]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

func newProtected(auth middleware.Authenticator) http.Handler {
	m := middleware.NewAuthMiddleware(auth)
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := middleware.GetUserFromContext(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(user.Username))
	}))
}

func TestAuthenticate(t *testing.T) {
	auth := stubAuthenticator{users: map[string]*domain.User{
		"good": {ID: 1, Username: "ada", IsActive: true},
		"gone": {ID: 2, Username: "bob", IsActive: false},
	}}

	tests := []struct {
		name   string
		header string
		status int
		detail string
	}{
		{"token scheme", "Token good", http.StatusOK, ""},
		{"bearer scheme", "Bearer good", http.StatusOK, ""},
		{"lowercase scheme", "token good", http.StatusOK, ""},
		{"no header", "", http.StatusUnauthorized, dto.MsgNotAuthenticated},
		{"blank header", "   ", http.StatusUnauthorized, dto.MsgNotAuthenticated},
		{"basic scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, dto.MsgNotAuthenticated},
		{"scheme only", "Token", http.StatusUnauthorized, "Invalid token header. No credentials provided."},
		{"spaces in key", "Token a b", http.StatusUnauthorized, "Invalid token header. Token string should not contain spaces."},
		{"unknown key", "Token nope", http.StatusUnauthorized, dto.MsgInvalidToken},
		{"inactive user", "Token gone", http.StatusUnauthorized, dto.MsgUserInactive},
	}

	h := newProtected(auth)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/agents/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "ada", w.Body.String())
				return
			}

			assert.Equal(t, "Token", w.Header().Get("WWW-Authenticate"))
			var body dto.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.detail, body.Detail)
		})
	}
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	h := newProtected(stubAuthenticator{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/api/agents/", nil)
	req.Header.Set("Authorization", "Token good")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetUserFromContext_Missing(t *testing.T) {
	_, err := middleware.GetUserFromContext(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
