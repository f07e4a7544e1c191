package domain

import (
	"errors"
	"sort"
	"strings"
)

// Domain-specific errors for business logic validation.
var (
	// Agent errors
	ErrAgentNotFound  = errors.New("agent not found")
	ErrAgentNameTaken = errors.New("agent name already exists")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user is inactive")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token errors
	ErrTokenNotFound = errors.New("token not found")
	ErrInvalidToken  = errors.New("invalid authentication token")
)

// ValidationError collects per-field input problems.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message against a field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e.Fields[field], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
