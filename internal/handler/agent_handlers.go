package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/handler/dto"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// handleListAgents lists active agents.
// @Summary List agents
// @Description Returns every active agent. Order is not guaranteed.
// @Tags agents
// @Produce json
// @Success 200 {array} dto.AgentResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security TokenAuth
// @Router /agents/ [get]
func (h *Handler) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agentService.ListActive(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToAgentsResponse(agents))
}

// handleGetAgent retrieves one active agent.
// @Summary Get agent
// @Tags agents
// @Produce json
// @Param id path int true "Agent ID"
// @Success 200 {object} dto.AgentResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security TokenAuth
// @Router /agents/{id}/ [get]
func (h *Handler) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agentID, ok := extractAgentID(w, r)
	if !ok {
		return
	}

	agent, err := h.agentService.GetActive(r.Context(), agentID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToAgentResponse(agent))
}

// handleInvokeAgent runs a simulated invocation.
// @Summary Invoke agent
// @Description Returns a canned response built from the agent name and input, suffixed with a random simulated ID.
// @Tags agents
// @Accept json
// @Produce json
// @Param id path int true "Agent ID"
// @Param request body dto.InvokeAgentRequest false "Invocation input"
// @Success 200 {object} dto.InvocationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security TokenAuth
// @Router /agents/{id}/invoke/ [post]
func (h *Handler) handleInvokeAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agentID, ok := extractAgentID(w, r)
	if !ok {
		return
	}

	req, parseErr := decodeOptionalJSON[dto.InvokeAgentRequest](r)
	if parseErr != nil {
		// A missing agent takes precedence over a malformed body.
		if _, err := h.agentService.GetActive(ctx, agentID); err != nil {
			respondDomainError(w, err)
			return
		}
		respondError(w, http.StatusBadRequest, dto.MsgMalformedJSON)
		return
	}

	invocation, err := h.agentService.Invoke(ctx, agentID, req.Input)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToInvocationResponse(invocation))
}

// extractAgentID parses the {id} path value.
// Returns (agentID, true) if valid, (0, false) if not (404 already sent to client).
func extractAgentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	agentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || agentID <= 0 {
		respondDomainError(w, domain.ErrAgentNotFound)
		return 0, false
	}
	return agentID, true
}

// decodeOptionalJSON decodes the request body into T; an empty body yields the zero value.
func decodeOptionalJSON[T any](r *http.Request) (T, error) {
	return decodeBody[T](r, true)
}

// decodeJSON decodes a required request body into T.
func decodeJSON[T any](r *http.Request) (T, error) {
	return decodeBody[T](r, false)
}

// decodeBody accepts exactly one JSON value, optionally surrounded by whitespace.
func decodeBody[T any](r *http.Request, optional bool) (T, error) {
	var req T
	if r.Body == nil {
		if optional {
			return req, nil
		}
		return req, io.ErrUnexpectedEOF
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, errTrailingData
	}
	return req, nil
}
