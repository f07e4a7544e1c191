package dto_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/handler/dto"
)

func TestMapDomainError(t *testing.T) {
	verr := domain.NewValidationError()
	verr.Add("email", "Enter a valid email address.")

	tests := []struct {
		name   string
		err    error
		status int
		body   any
	}{
		{"agent not found", domain.ErrAgentNotFound, http.StatusNotFound, dto.NewErrorResponse("Agent not found.")},
		{"wrapped agent not found", fmt.Errorf("lookup: %w", domain.ErrAgentNotFound), http.StatusNotFound, dto.NewErrorResponse("Agent not found.")},
		{"validation", verr, http.StatusBadRequest, dto.ValidationErrorResponse{"email": {"Enter a valid email address."}}},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusBadRequest, dto.ValidationErrorResponse{"non_field_errors": {dto.MsgInvalidCredentials}}},
		{"invalid token", domain.ErrInvalidToken, http.StatusUnauthorized, dto.NewErrorResponse(dto.MsgInvalidToken)},
		{"inactive user", domain.ErrUserInactive, http.StatusUnauthorized, dto.NewErrorResponse(dto.MsgUserInactive)},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, dto.NewErrorResponse(dto.MsgInternalServerError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := dto.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, body)
		})
	}
}
