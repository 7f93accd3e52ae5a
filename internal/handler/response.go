package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/efreitasn/orderdesk/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // the status line is already out
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v, rejecting unknown
// fields.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("request body must be JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %v", err)
	}
	return nil
}

// pathID reads a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalidf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// writeServiceError maps domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		limit    *domain.ProfitLimitError
		inactive *domain.InactiveParticipantError
	)

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrClientNotFound):
		WriteError(w, http.StatusNotFound, "client_not_found", err.Error())
	case errors.Is(err, domain.ErrTradeNotFound):
		WriteError(w, http.StatusNotFound, "trade_not_found", err.Error())
	case errors.As(err, &inactive):
		WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "inactive_participant",
			Message: err.Error(),
			Details: map[string]string{
				"role":      string(inactive.Role),
				"client_id": strconv.FormatInt(inactive.ClientID, 10),
			},
		})
	case errors.As(err, &limit):
		WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "profit_limit_exceeded",
			Message: err.Error(),
			Details: map[string]string{
				"consumer_id": strconv.FormatInt(limit.ConsumerID, 10),
				"balance":     limit.Balance.String(),
				"amount":      limit.Amount.String(),
				"resulting":   limit.Resulting.String(),
				"floor":       limit.Floor.String(),
			},
		})
	case errors.Is(err, domain.ErrDuplicateTrade):
		WriteError(w, http.StatusConflict, "duplicate_trade", "a trade with this label already exists for this supplier and consumer")
	case errors.Is(err, domain.ErrAlreadyInactive):
		WriteError(w, http.StatusConflict, "already_inactive", "client is already inactive")
	case errors.Is(err, domain.ErrDuplicateResource):
		WriteError(w, http.StatusConflict, "duplicate_resource", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusServiceUnavailable, "timeout", "timed out waiting for a client lock")
	case errors.Is(err, context.Canceled):
		WriteError(w, http.StatusServiceUnavailable, "cancelled", "request cancelled before it completed")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
