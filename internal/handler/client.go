package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
	"github.com/efreitasn/orderdesk/internal/service"
)

// ClientHandler handles HTTP requests for client endpoints.
type ClientHandler struct {
	svc *service.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(svc *service.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

// clientRequest is the JSON body for POST /clients and PUT /clients/{id}.
type clientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (r clientRequest) toService() service.ClientRequest {
	return service.ClientRequest{Name: r.Name, Email: r.Email, Address: r.Address, Phone: r.Phone}
}

type clientResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone"`
	Profit        decimal.Decimal `json:"profit"`
	Active        bool            `json:"active"`
	DeactivatedAt *string         `json:"deactivated_at"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type profitResponse struct {
	ClientID int64           `json:"client_id"`
	Profit   decimal.Decimal `json:"profit"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func buildClientResponse(c *domain.Client) *clientResponse {
	resp := &clientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Address:   c.Address,
		Phone:     c.Phone,
		Profit:    c.Balance,
		Active:    c.Active,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
	if c.DeactivatedAt != nil {
		at := formatTime(*c.DeactivatedAt)
		resp.DeactivatedAt = &at
	}
	return resp
}

func buildClientResponses(clients []*domain.Client) []*clientResponse {
	result := make([]*clientResponse, len(clients))
	for i, c := range clients {
		result[i] = buildClientResponse(c)
	}
	return result
}

// Create handles POST /clients.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	c, err := h.svc.Create(r.Context(), req.toService())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildClientResponse(c))
}

// List handles GET /clients.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildClientResponses(clients))
}

// Search handles GET /clients/search?keyword=.
func (h *ClientHandler) Search(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.Search(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildClientResponses(clients))
}

// ListByProfitRange handles GET /clients/profit-range?min=&max=.
func (h *ClientHandler) ListByProfitRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	min, err := domain.ParseAmount(q.Get("min"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "min: "+err.Error())
		return
	}
	max, err := domain.ParseAmount(q.Get("max"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "max: "+err.Error())
		return
	}

	clients, err := h.svc.ListByBalanceRange(r.Context(), min, max)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildClientResponses(clients))
}

// Get handles GET /clients/{id}.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildClientResponse(c))
}

// Update handles PUT /clients/{id}.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req clientRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	c, err := h.svc.Update(r.Context(), id, req.toService())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildClientResponse(c))
}

// Deactivate handles POST /clients/{id}/deactivate.
func (h *ClientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	c, err := h.svc.Deactivate(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildClientResponse(c))
}

// Profit handles GET /clients/{id}/profit.
func (h *ClientHandler) Profit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	balance, err := h.svc.Balance(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, profitResponse{ClientID: id, Profit: balance})
}
