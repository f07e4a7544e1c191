package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/capecontrol/backend/docs" // registers the OpenAPI document
	"github.com/capecontrol/backend/internal/config"
	"github.com/capecontrol/backend/internal/handler/dto"
	"github.com/capecontrol/backend/internal/middleware"
	"github.com/capecontrol/backend/internal/repository"
	"github.com/capecontrol/backend/internal/service"
	"github.com/capecontrol/backend/internal/static"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	db             Pinger
	agentService   *service.AgentService
	authService    *service.AuthService
	authMiddleware *middleware.AuthMiddleware
}

// New creates a Handler backed by Postgres repositories.
func New(pool *pgxpool.Pool) *Handler {
	// Create repositories
	agentRepo := repository.NewAgentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)

	// Create services
	random := service.SystemRandom()
	agentService := service.NewAgentService(agentRepo, service.NewSimulator(random))
	authService := service.NewAuthService(userRepo, tokenRepo, random, 0)

	return NewWithServices(pool, agentService, authService)
}

// NewWithServices creates a Handler from already-built services.
func NewWithServices(db Pinger, agentService *service.AgentService, authService *service.AuthService) *Handler {
	return &Handler{
		db:             db,
		agentService:   agentService,
		authService:    authService,
		authMiddleware: middleware.NewAuthMiddleware(authService),
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	protected := func(fn http.HandlerFunc) http.Handler {
		return h.authMiddleware.Authenticate(fn)
	}

	// Landing page, health, metrics and docs
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /swagger/", httpSwagger.Handler())

	// API root
	mux.HandleFunc("GET /api/{$}", h.handleAPIRoot)

	// Agent catalog
	mux.Handle("GET /api/agents/{$}", protected(h.handleListAgents))
	mux.Handle("GET /api/agents/{id}/{$}", protected(h.handleGetAgent))
	mux.Handle("POST /api/agents/{id}/invoke/{$}", protected(h.handleInvokeAgent))

	// Accounts and tokens
	mux.HandleFunc("POST /api/auth/users/{$}", h.handleRegister)
	mux.Handle("GET /api/auth/users/me/{$}", protected(h.handleMe))
	mux.HandleFunc("POST /api/auth/token/login/{$}", h.handleLogin)
	mux.Handle("POST /api/auth/token/logout/{$}", protected(h.handleLogout))
}

// Router returns the routes wrapped in the shared middleware stack.
func (h *Handler) Router(corsCfg config.CORS) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Logger and Metrics read the Pattern the mux sets on the shared request.
	root := middleware.Observe(mux)

	// No configured origins means no cross-origin access at all.
	if len(corsCfg.AllowedOrigins) > 0 {
		root = cors.Handler(cors.Options{
			AllowedOrigins:   corsCfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: corsCfg.AllowCredentials,
			MaxAge:           300,
		})(root)
	}

	return root
}

// handleIndex serves the embedded landing page.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(static.IndexHTML))
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleAPIRoot lists the browsable collections.
// @Summary API root
// @Tags meta
// @Produce json
// @Success 200 {object} dto.APIRootResponse
// @Router / [get]
func (h *Handler) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}

	respondJSON(w, http.StatusOK, dto.APIRootResponse{
		Agents: scheme + "://" + r.Host + "/api/agents/",
	})
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a {"detail": ...} error response.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, dto.NewErrorResponse(detail))
}

// respondDomainError maps a service error onto the wire.
func respondDomainError(w http.ResponseWriter, err error) {
	status, body := dto.MapDomainError(err)
	respondJSON(w, status, body)
}
