// Package testutil provides in-memory stand-ins for the Postgres repositories.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/capecontrol/backend/internal/domain"
)

// AgentStore is an in-memory agent table.
type AgentStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Agent

	// Err, when set, is returned by every method.
	Err error
}

// NewAgentStore returns an empty store.
func NewAgentStore() *AgentStore {
	return &AgentStore{rows: make(map[int64]domain.Agent)}
}

// Seed inserts agents as given, keeping their IDs.
func (s *AgentStore) Seed(agents ...domain.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, agent := range agents {
		if agent.CreatedAt.IsZero() {
			agent.CreatedAt = time.Now().UTC()
			agent.UpdatedAt = agent.CreatedAt
		}
		s.rows[agent.ID] = agent
		if agent.ID > s.nextID {
			s.nextID = agent.ID
		}
	}
}

func (s *AgentStore) sorted(filter func(domain.Agent) bool) []*domain.Agent {
	out := make([]*domain.Agent, 0, len(s.rows))
	for _, row := range s.rows {
		if filter(row) {
			agent := row
			out = append(out, &agent)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *AgentStore) ListActive(_ context.Context) ([]*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.sorted(func(a domain.Agent) bool { return a.IsActive }), nil
}

func (s *AgentStore) ListAll(_ context.Context) ([]*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.sorted(func(domain.Agent) bool { return true }), nil
}

func (s *AgentStore) GetByID(_ context.Context, agentID int64) (*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	row, ok := s.rows[agentID]
	if !ok {
		return nil, domain.ErrAgentNotFound
	}
	return &row, nil
}

func (s *AgentStore) GetActiveByID(ctx context.Context, agentID int64) (*domain.Agent, error) {
	agent, err := s.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !agent.IsActive {
		return nil, domain.ErrAgentNotFound
	}
	return agent, nil
}

func (s *AgentStore) nameTaken(name string, except int64) bool {
	for id, row := range s.rows {
		if id != except && row.Name == name {
			return true
		}
	}
	return false
}

func (s *AgentStore) Create(_ context.Context, agent *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.nameTaken(agent.Name, 0) {
		return domain.ErrAgentNameTaken
	}
	s.nextID++
	now := time.Now().UTC()
	agent.ID = s.nextID
	agent.CreatedAt = now
	agent.UpdatedAt = now
	s.rows[agent.ID] = *agent
	return nil
}

func (s *AgentStore) Update(_ context.Context, agentID int64, update domain.AgentUpdate) (*domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	row, ok := s.rows[agentID]
	if !ok {
		return nil, domain.ErrAgentNotFound
	}
	if update.Name != nil {
		if s.nameTaken(*update.Name, agentID) {
			return nil, domain.ErrAgentNameTaken
		}
		row.Name = *update.Name
	}
	if update.Description != nil {
		row.Description = *update.Description
	}
	if update.IsActive != nil {
		row.IsActive = *update.IsActive
	}
	row.UpdatedAt = time.Now().UTC()
	if !row.UpdatedAt.After(row.CreatedAt) {
		row.UpdatedAt = row.CreatedAt.Add(time.Microsecond)
	}
	s.rows[agentID] = row
	return &row, nil
}

// UserStore is an in-memory users table.
type UserStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.User
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{rows: make(map[int64]domain.User)}
}

func (s *UserStore) find(match func(domain.User) bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if match(row) {
			user := row
			return &user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *UserStore) GetByID(_ context.Context, userID int64) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.ID == userID })
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Username == username })
}

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if strings.EqualFold(row.Email, user.Email) {
			return domain.ErrEmailTaken
		}
		if row.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.DateJoined = time.Now().UTC()
	s.rows[user.ID] = *user
	return nil
}

// SetActive flips a stored user's flag.
func (s *UserStore) SetActive(userID int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[userID]
	row.IsActive = active
	s.rows[userID] = row
}

// TokenStore is an in-memory auth_tokens table.
type TokenStore struct {
	mu     sync.Mutex
	byUser map[int64]domain.Token
}

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{byUser: make(map[int64]domain.Token)}
}

func (s *TokenStore) GetByKey(_ context.Context, key string) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.byUser {
		if token.Key == key {
			found := token
			return &found, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (s *TokenStore) CreateForUser(_ context.Context, userID int64, key string) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.byUser[userID]; ok {
		return &token, nil
	}
	token := domain.Token{Key: key, UserID: userID, CreatedAt: time.Now().UTC()}
	s.byUser[userID] = token
	return &token, nil
}

func (s *TokenStore) DeleteForUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
	return nil
}

// Len reports how many tokens are stored.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}
