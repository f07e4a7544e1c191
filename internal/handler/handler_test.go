package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/capecontrol/backend/internal/config"
	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/handler"
	"github.com/capecontrol/backend/internal/handler/dto"
	"github.com/capecontrol/backend/internal/service"
	"github.com/capecontrol/backend/internal/testutil"
)

var simulatedIDSuffix = regexp.MustCompile(`Simulated ID: [0-9a-f]{32}\)$`)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type HandlerTestSuite struct {
	suite.Suite
	agents *testutil.AgentStore
	users  *testutil.UserStore
	tokens *testutil.TokenStore
	db     *pinger
	router http.Handler

	token string
}

func (s *HandlerTestSuite) SetupTest() {
	s.agents = testutil.NewAgentStore()
	s.users = testutil.NewUserStore()
	s.tokens = testutil.NewTokenStore()
	s.db = &pinger{}

	s.agents.Seed(
		domain.Agent{ID: 1, Name: "Insight Bot", Description: "Forecasts", IsActive: true},
		domain.Agent{ID: 2, Name: "Retired Bot", Description: "Old", IsActive: false},
		domain.Agent{ID: 3, Name: "Copy Bot", Description: "Writes", IsActive: true},
	)

	agentService := service.NewAgentService(s.agents, service.NewSimulator(nil))
	authService := service.NewAuthService(s.users, s.tokens, nil, bcrypt.MinCost)
	h := handler.NewWithServices(s.db, agentService, authService)
	s.router = h.Router(config.CORS{
		AllowedOrigins:   []string{"https://app.example.com"},
		AllowCredentials: true,
	})

	s.token = s.registerAndLogin("ada@example.com", "ada", "s3cretPass")
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

// makeRequest sends body (a string is sent verbatim, anything else as JSON).
func (s *HandlerTestSuite) makeRequest(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) registerAndLogin(email, username, password string) string {
	w := s.makeRequest(http.MethodPost, "/api/auth/users/", "", dto.RegisterRequest{
		Email: email, Username: username, Password: password,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.makeRequest(http.MethodPost, "/api/auth/token/login/", "", dto.LoginRequest{
		Email: email, Password: password,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.TokenResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Require().Len(resp.AuthToken, 40)
	return resp.AuthToken
}

func (s *HandlerTestSuite) decodeDetail(w *httptest.ResponseRecorder) string {
	var resp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	return resp.Detail
}

func (s *HandlerTestSuite) TestListAgents_OnlyActive() {
	w := s.makeRequest(http.MethodGet, "/api/agents/", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var agents []dto.AgentResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&agents))
	s.Len(agents, 2)
	for _, agent := range agents {
		s.True(agent.IsActive)
		s.NotEqual("Retired Bot", agent.Name)
	}
}

func (s *HandlerTestSuite) TestListAgents_EmptyIsArray() {
	s.agents = testutil.NewAgentStore()
	agentService := service.NewAgentService(s.agents, service.NewSimulator(nil))
	authService := service.NewAuthService(s.users, s.tokens, nil, bcrypt.MinCost)
	s.router = handler.NewWithServices(s.db, agentService, authService).Router(config.CORS{})

	w := s.makeRequest(http.MethodGet, "/api/agents/", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("[]", strings.TrimSpace(w.Body.String()))
}

func (s *HandlerTestSuite) TestListAgents_Unauthenticated() {
	w := s.makeRequest(http.MethodGet, "/api/agents/", "", nil)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(dto.MsgNotAuthenticated, s.decodeDetail(w))
}

func (s *HandlerTestSuite) TestGetAgent() {
	w := s.makeRequest(http.MethodGet, "/api/agents/1/", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var raw map[string]any
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&raw))
	s.EqualValues(1, raw["id"])
	s.Equal("Insight Bot", raw["name"])
	s.Equal("Forecasts", raw["description"])
	s.Equal(true, raw["is_active"])
	s.Contains(raw, "created_at")
	s.Contains(raw, "updated_at")
}

func (s *HandlerTestSuite) TestGetAgent_NotFound() {
	for _, path := range []string{"/api/agents/2/", "/api/agents/999/", "/api/agents/abc/", "/api/agents/0/"} {
		w := s.makeRequest(http.MethodGet, path, s.token, nil)
		s.Equal(http.StatusNotFound, w.Code, path)
		s.Equal("Agent not found.", s.decodeDetail(w), path)
	}
}

func (s *HandlerTestSuite) TestInvokeAgent_Success() {
	w := s.makeRequest(http.MethodPost, "/api/agents/1/invoke/", s.token, dto.InvokeAgentRequest{Input: "forecast Q3"})
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.InvocationResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal(int64(1), resp.AgentID)
	s.Equal("Insight Bot", resp.AgentName)
	s.Equal("forecast Q3", resp.UserInput)
	s.Equal("success", resp.Status)
	s.Contains(resp.AIResponse, "Insight Bot")
	s.Contains(resp.AIResponse, "forecast Q3")
	s.Regexp(simulatedIDSuffix, resp.AIResponse)
}

func (s *HandlerTestSuite) TestInvokeAgent_EmptyBodyMeansEmptyInput() {
	for _, body := range []any{nil, "{}", `{"input": null}`} {
		w := s.makeRequest(http.MethodPost, "/api/agents/3/invoke/", s.token, body)
		s.Require().Equal(http.StatusOK, w.Code)

		var resp dto.InvocationResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
		s.Equal("", resp.UserInput)
		s.Contains(resp.AIResponse, "Copy Bot")
	}
}

func (s *HandlerTestSuite) TestInvokeAgent_RepeatedCallsDiffer() {
	invoke := func() dto.InvocationResponse {
		w := s.makeRequest(http.MethodPost, "/api/agents/1/invoke/", s.token, dto.InvokeAgentRequest{Input: "same"})
		s.Require().Equal(http.StatusOK, w.Code)
		var resp dto.InvocationResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
		return resp
	}

	first, second := invoke(), invoke()
	s.NotEqual(first.AIResponse, second.AIResponse)
	s.Equal(first.AgentID, second.AgentID)
	s.Equal(first.AgentName, second.AgentName)
	s.Equal(first.UserInput, second.UserInput)
}

func (s *HandlerTestSuite) TestInvokeAgent_NotFound() {
	for _, path := range []string{"/api/agents/999/invoke/", "/api/agents/2/invoke/"} {
		w := s.makeRequest(http.MethodPost, path, s.token, dto.InvokeAgentRequest{Input: "x"})
		s.Equal(http.StatusNotFound, w.Code, path)
		s.Equal("Agent not found.", s.decodeDetail(w), path)
	}
}

func (s *HandlerTestSuite) TestInvokeAgent_MalformedBody() {
	for _, body := range []string{
		"{not json",
		`{"input":"a"} trailing junk`,
		`{"input":"a"}{"input":"b"}`,
		`{"input": 5}`,
	} {
		w := s.makeRequest(http.MethodPost, "/api/agents/1/invoke/", s.token, body)
		s.Equal(http.StatusBadRequest, w.Code, body)
		s.Equal(dto.MsgMalformedJSON, s.decodeDetail(w), body)
	}

	// Trailing whitespace is not extra data.
	w := s.makeRequest(http.MethodPost, "/api/agents/1/invoke/", s.token, "{\"input\":\"a\"}\n  ")
	s.Equal(http.StatusOK, w.Code)

	// Missing agent wins over a malformed body.
	w = s.makeRequest(http.MethodPost, "/api/agents/999/invoke/", s.token, "{not json")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestInvokeAgent_Unauthenticated() {
	w := s.makeRequest(http.MethodPost, "/api/agents/1/invoke/", "bogus", dto.InvokeAgentRequest{Input: "x"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(dto.MsgInvalidToken, s.decodeDetail(w))
}

func (s *HandlerTestSuite) TestInvokeAgent_Concurrent() {
	const workers = 16
	var wg sync.WaitGroup
	codes := make(chan int, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := s.makeRequest(http.MethodPost, "/api/agents/1/invoke/", s.token, dto.InvokeAgentRequest{Input: "load"})
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		s.Equal(http.StatusOK, code)
	}
}

func (s *HandlerTestSuite) TestRegister_ValidationErrors() {
	w := s.makeRequest(http.MethodPost, "/api/auth/users/", "", dto.RegisterRequest{
		Email: "ada@example.com", Username: "ada", Password: "s3cretPass",
	})
	s.Require().Equal(http.StatusBadRequest, w.Code)

	var resp dto.ValidationErrorResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Contains(resp, "email")
	s.Contains(resp, "username")
}

func (s *HandlerTestSuite) TestAuthEndpoints_RejectTrailingData() {
	for _, path := range []string{"/api/auth/users/", "/api/auth/token/login/"} {
		body := `{"email":"ada@example.com","username":"ada2","password":"s3cretPass"} junk`
		w := s.makeRequest(http.MethodPost, path, "", body)
		s.Equal(http.StatusBadRequest, w.Code, path)
		s.Equal(dto.MsgMalformedJSON, s.decodeDetail(w), path)
	}
}

func (s *HandlerTestSuite) TestLogin_BadCredentials() {
	w := s.makeRequest(http.MethodPost, "/api/auth/token/login/", "", dto.LoginRequest{
		Email: "ada@example.com", Password: "wrongPass1",
	})
	s.Require().Equal(http.StatusBadRequest, w.Code)

	var resp dto.ValidationErrorResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal([]string{dto.MsgInvalidCredentials}, resp["non_field_errors"])
}

func (s *HandlerTestSuite) TestMe() {
	w := s.makeRequest(http.MethodGet, "/api/auth/users/me/", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.UserResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal("ada", resp.Username)
	s.Equal("ada@example.com", resp.Email)
	s.NotContains(w.Body.String(), "password")
}

func (s *HandlerTestSuite) TestLogout_RevokesToken() {
	w := s.makeRequest(http.MethodPost, "/api/auth/token/logout/", s.token, nil)
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.makeRequest(http.MethodGet, "/api/agents/", s.token, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestHealthz() {
	w := s.makeRequest(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)

	s.db.err = errors.New("connection refused")
	w = s.makeRequest(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *HandlerTestSuite) TestAPIRoot() {
	w := s.makeRequest(http.MethodGet, "/api/", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.APIRootResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal("http://example.com/api/agents/", resp.Agents)
}

func (s *HandlerTestSuite) TestCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/api/agents/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal("https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}

func (s *HandlerTestSuite) TestMetricsEndpoint() {
	s.makeRequest(http.MethodPost, "/api/agents/1/invoke/", s.token, dto.InvokeAgentRequest{Input: "x"})

	w := s.makeRequest(http.MethodGet, "/metrics", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "capecontrol_agent_invocations_total")
	s.Contains(w.Body.String(), "capecontrol_http_requests_total")
}

func (s *HandlerTestSuite) TestIndex() {
	w := s.makeRequest(http.MethodGet, "/", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Cape Control API")

	w = s.makeRequest(http.MethodGet, "/nope", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}
