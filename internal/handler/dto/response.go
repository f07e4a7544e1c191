package dto

import (
	"time"

	"github.com/capecontrol/backend/internal/domain"
)

// AgentResponse is the serialized form of a catalog entry.
type AgentResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InvocationResponse is returned by POST /agents/{id}/invoke/.
type InvocationResponse struct {
	AgentID    int64  `json:"agent_id"`
	AgentName  string `json:"agent_name"`
	UserInput  string `json:"user_input"`
	AIResponse string `json:"ai_response"`
	Status     string `json:"status"`
}

// UserResponse exposes the public fields of an account.
type UserResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// TokenResponse is returned by POST /auth/token/login/.
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

// APIRootResponse links to the browsable collections.
type APIRootResponse struct {
	Agents string `json:"agents"`
}

// ToAgentResponse converts domain.Agent to AgentResponse.
func ToAgentResponse(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:          agent.ID,
		Name:        agent.Name,
		Description: agent.Description,
		IsActive:    agent.IsActive,
		CreatedAt:   agent.CreatedAt,
		UpdatedAt:   agent.UpdatedAt,
	}
}

// ToAgentsResponse converts a slice, never returning nil so the body is [] rather than null.
func ToAgentsResponse(agents []*domain.Agent) []AgentResponse {
	out := make([]AgentResponse, 0, len(agents))
	for _, agent := range agents {
		out = append(out, ToAgentResponse(agent))
	}
	return out
}

// ToInvocationResponse converts domain.Invocation to InvocationResponse.
func ToInvocationResponse(inv *domain.Invocation) InvocationResponse {
	return InvocationResponse{
		AgentID:    inv.AgentID,
		AgentName:  inv.AgentName,
		UserInput:  inv.UserInput,
		AIResponse: inv.AIResponse,
		Status:     inv.Status,
	}
}

// ToUserResponse converts domain.User to UserResponse.
func ToUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
	}
}
