package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/metrics"
)

const maxAgentNameLength = 100

// AgentStore is the persistence the agent service needs.
type AgentStore interface {
	ListActive(ctx context.Context) ([]*domain.Agent, error)
	ListAll(ctx context.Context) ([]*domain.Agent, error)
	GetByID(ctx context.Context, agentID int64) (*domain.Agent, error)
	GetActiveByID(ctx context.Context, agentID int64) (*domain.Agent, error)
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agentID int64, update domain.AgentUpdate) (*domain.Agent, error)
}

// AgentService serves the catalog and runs simulated invocations.
type AgentService struct {
	agents    AgentStore
	simulator *Simulator
}

// NewAgentService creates a new AgentService.
func NewAgentService(agents AgentStore, simulator *Simulator) *AgentService {
	return &AgentService{
		agents:    agents,
		simulator: simulator,
	}
}

// ListActive returns the agents visible through the API.
func (s *AgentService) ListActive(ctx context.Context) ([]*domain.Agent, error) {
	return s.agents.ListActive(ctx)
}

// GetActive returns the agent if it exists and is active, otherwise domain.ErrAgentNotFound.
func (s *AgentService) GetActive(ctx context.Context, agentID int64) (*domain.Agent, error) {
	return s.agents.GetActiveByID(ctx, agentID)
}

// Invoke resolves an active agent and simulates a run against userInput.
func (s *AgentService) Invoke(ctx context.Context, agentID int64, userInput string) (*domain.Invocation, error) {
	agent, err := s.agents.GetActiveByID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	invocation := s.simulator.Invoke(agent, userInput)
	metrics.AgentInvocations.Inc()

	slog.Debug("agent invoked", "agent_id", agent.ID, "input_length", len(userInput))

	return invocation, nil
}

// CreateAgentParams holds the fields of a new catalog entry.
type CreateAgentParams struct {
	Name        string
	Description string
	IsActive    bool
}

// Create adds an agent to the catalog.
func (s *AgentService) Create(ctx context.Context, params CreateAgentParams) (*domain.Agent, error) {
	name := strings.TrimSpace(params.Name)

	verr := domain.NewValidationError()
	validateAgentName(verr, name)
	if strings.TrimSpace(params.Description) == "" {
		verr.Add("description", "This field may not be blank.")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	agent := &domain.Agent{
		Name:        name,
		Description: params.Description,
		IsActive:    params.IsActive,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}

	slog.Info("agent created", "agent_id", agent.ID, "name", agent.Name, "is_active", agent.IsActive)
	return agent, nil
}

// Update edits an agent's name or description.
func (s *AgentService) Update(ctx context.Context, agentID int64, update domain.AgentUpdate) (*domain.Agent, error) {
	if update.IsEmpty() {
		return s.agents.GetByID(ctx, agentID)
	}

	verr := domain.NewValidationError()
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
		validateAgentName(verr, name)
	}
	if update.Description != nil && strings.TrimSpace(*update.Description) == "" {
		verr.Add("description", "This field may not be blank.")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	agent, err := s.agents.Update(ctx, agentID, update)
	if err != nil {
		return nil, fmt.Errorf("update agent %d: %w", agentID, err)
	}

	slog.Info("agent updated", "agent_id", agent.ID)
	return agent, nil
}

// SetActive soft-enables or soft-disables an agent.
func (s *AgentService) SetActive(ctx context.Context, agentID int64, active bool) (*domain.Agent, error) {
	agent, err := s.agents.Update(ctx, agentID, domain.AgentUpdate{IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("set agent %d active=%t: %w", agentID, active, err)
	}

	slog.Info("agent status changed", "agent_id", agent.ID, "is_active", agent.IsActive)
	return agent, nil
}

// ListAll returns every agent, including inactive ones.
func (s *AgentService) ListAll(ctx context.Context) ([]*domain.Agent, error) {
	return s.agents.ListAll(ctx)
}

func validateAgentName(verr *domain.ValidationError, name string) {
	switch {
	case name == "":
		verr.Add("name", "This field may not be blank.")
	case utf8.RuneCountInString(name) > maxAgentNameLength:
		verr.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxAgentNameLength))
	}
}
