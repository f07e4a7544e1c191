package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capecontrol/backend/internal/domain"
)

// agentColumns is the shared list of columns for agent queries.
var agentColumns = []string{
	"id", "name", "description", "is_active", "created_at", "updated_at",
}

// AgentRepository handles database operations for agents.
type AgentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(pool *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{pool: pool}
}

// scanAgent scans a single row into an Agent struct.
func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Description,
		&agent.IsActive,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAgentNotFound
		}
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	return &agent, nil
}

func (r *AgentRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]*domain.Agent, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	agents := make([]*domain.Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return agents, nil
}

// ListActive returns every agent with is_active set.
func (r *AgentRepository) ListActive(ctx context.Context) ([]*domain.Agent, error) {
	return r.list(ctx, psql.
		Select(agentColumns...).
		From("agents").
		Where(sq.Eq{"is_active": true}).
		OrderBy("id"))
}

// ListAll returns every agent regardless of status.
func (r *AgentRepository) ListAll(ctx context.Context) ([]*domain.Agent, error) {
	return r.list(ctx, psql.
		Select(agentColumns...).
		From("agents").
		OrderBy("id"))
}

// GetByID retrieves an agent by ID regardless of status.
func (r *AgentRepository) GetByID(ctx context.Context, agentID int64) (*domain.Agent, error) {
	query, args, err := psql.
		Select(agentColumns...).
		From("agents").
		Where(sq.Eq{"id": agentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for agent %d: %w", agentID, err)
	}

	return scanAgent(r.pool.QueryRow(ctx, query, args...))
}

// GetActiveByID retrieves an agent by ID only if it is active.
// Missing and inactive agents both yield domain.ErrAgentNotFound.
func (r *AgentRepository) GetActiveByID(ctx context.Context, agentID int64) (*domain.Agent, error) {
	query, args, err := psql.
		Select(agentColumns...).
		From("agents").
		Where(sq.Eq{"id": agentID, "is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetActiveByID query for agent %d: %w", agentID, err)
	}

	return scanAgent(r.pool.QueryRow(ctx, query, args...))
}

// Create inserts a new agent and fills in its generated fields.
func (r *AgentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	query, args, err := psql.
		Insert("agents").
		Columns("name", "description", "is_active").
		Values(agent.Name, agent.Description, agent.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		if _, ok := violatedConstraint(err); ok {
			return fmt.Errorf("%w: %q", domain.ErrAgentNameTaken, agent.Name)
		}
		return fmt.Errorf("insert agent: %w", err)
	}

	return nil
}

// Update applies the given changes and refreshes updated_at.
func (r *AgentRepository) Update(ctx context.Context, agentID int64, update domain.AgentUpdate) (*domain.Agent, error) {
	builder := psql.
		Update("agents").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": agentID}).
		Suffix("RETURNING " + strings.Join(agentColumns, ", "))

	if update.Name != nil {
		builder = builder.Set("name", *update.Name)
	}
	if update.Description != nil {
		builder = builder.Set("description", *update.Description)
	}
	if update.IsActive != nil {
		builder = builder.Set("is_active", *update.IsActive)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update query for agent %d: %w", agentID, err)
	}

	agent, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if _, ok := violatedConstraint(err); ok && update.Name != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrAgentNameTaken, *update.Name)
		}
		return nil, err
	}
	return agent, nil
}

