package domain

import "time"

// Agent represents a simulated AI assistant listed in the catalog.
type Agent struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AgentUpdate lists the fields to change; nil fields are left as they are.
type AgentUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// IsEmpty reports whether the update changes nothing.
func (u AgentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.IsActive == nil
}
