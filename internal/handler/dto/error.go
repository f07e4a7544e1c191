package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/capecontrol/backend/internal/domain"
)

// Client-facing messages.
const (
	MsgAgentNotFound       = "Agent not found."
	MsgNotAuthenticated    = "Authentication credentials were not provided."
	MsgInvalidToken        = "Invalid token."
	MsgUserInactive        = "User inactive or deleted."
	MsgInvalidCredentials  = "Unable to log in with provided credentials."
	MsgMalformedJSON       = "JSON parse error."
	MsgInternalServerError = "Internal server error."
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(detail string) ErrorResponse {
	return ErrorResponse{Detail: detail}
}

// ValidationErrorResponse maps each rejected field to its messages.
type ValidationErrorResponse map[string][]string

// MapDomainError maps domain errors to an HTTP status and response body.
func MapDomainError(err error) (status int, body any) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, ValidationErrorResponse(verr.Fields)
	}

	switch {
	// Agent errors
	case errors.Is(err, domain.ErrAgentNotFound):
		return http.StatusNotFound, NewErrorResponse(MsgAgentNotFound)
	case errors.Is(err, domain.ErrAgentNameTaken):
		return http.StatusBadRequest, ValidationErrorResponse{"name": {"agent with this name already exists."}}

	// Auth errors
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, ValidationErrorResponse{"non_field_errors": {MsgInvalidCredentials}}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, NewErrorResponse(MsgInvalidToken)
	case errors.Is(err, domain.ErrUserInactive):
		return http.StatusUnauthorized, NewErrorResponse(MsgUserInactive)

	// Default: internal server error
	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, NewErrorResponse(MsgInternalServerError)
	}
}
