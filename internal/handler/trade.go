package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
	"github.com/efreitasn/orderdesk/internal/engine"
	"github.com/efreitasn/orderdesk/internal/service"
)

// TradeHandler handles HTTP requests for the /orders endpoints.
type TradeHandler struct {
	svc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(svc *service.TradeService) *TradeHandler {
	return &TradeHandler{svc: svc}
}

// submitTradeRequest is the JSON body for POST /orders. Amount accepts a
// JSON string or number.
type submitTradeRequest struct {
	Label      string          `json:"label"`
	SupplierID int64           `json:"supplier_id"`
	ConsumerID int64           `json:"consumer_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type tradeResponse struct {
	ID                  int64           `json:"id"`
	Label               string          `json:"label"`
	SupplierID          int64           `json:"supplier_id"`
	ConsumerID          int64           `json:"consumer_id"`
	Amount              decimal.Decimal `json:"amount"`
	CreatedAt           string          `json:"created_at"`
	ProcessingStartedAt string          `json:"processing_started_at"`
	ProcessingEndedAt   string          `json:"processing_ended_at"`
	Supplier            *clientResponse `json:"supplier,omitempty"`
	Consumer            *clientResponse `json:"consumer,omitempty"`
}

func buildTradeResponse(t *domain.Trade) *tradeResponse {
	return &tradeResponse{
		ID:                  t.ID,
		Label:               t.Label,
		SupplierID:          t.SupplierID,
		ConsumerID:          t.ConsumerID,
		Amount:              t.Amount,
		CreatedAt:           formatTime(t.CreatedAt),
		ProcessingStartedAt: formatTime(t.ProcessingStartedAt),
		ProcessingEndedAt:   formatTime(t.ProcessingEndedAt),
	}
}

func buildTradeResponses(trades []*domain.Trade) []*tradeResponse {
	result := make([]*tradeResponse, len(trades))
	for i, t := range trades {
		result[i] = buildTradeResponse(t)
	}
	return result
}

// Submit handles POST /orders.
func (h *TradeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.svc.Submit(r.Context(), engine.TradeRequest{
		Label:      req.Label,
		SupplierID: req.SupplierID,
		ConsumerID: req.ConsumerID,
		Amount:     req.Amount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := buildTradeResponse(res.Trade)
	resp.Supplier = buildClientResponse(res.Supplier)
	resp.Consumer = buildClientResponse(res.Consumer)
	WriteJSON(w, http.StatusCreated, resp)
}

// Get handles GET /orders/{id}.
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildTradeResponse(t))
}

// List handles GET /orders.
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	trades, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildTradeResponses(trades))
}

// ListByClient handles GET /orders/client/{id}.
func (h *TradeHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, h.svc.ListByClient)
}

// ListSupplied handles GET /orders/supplier/{id}.
func (h *TradeHandler) ListSupplied(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, h.svc.ListSupplied)
}

// ListConsumed handles GET /orders/consumer/{id}.
func (h *TradeHandler) ListConsumed(w http.ResponseWriter, r *http.Request) {
	h.listFor(w, r, h.svc.ListConsumed)
}

func (h *TradeHandler) listFor(w http.ResponseWriter, r *http.Request, list func(context.Context, int64) ([]*domain.Trade, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	trades, err := list(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildTradeResponses(trades))
}
