package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security/audit"
	"github.com/yourorg/storefront/internal/security/middleware"
	"github.com/yourorg/storefront/internal/service"
)

// OrderHandler handles order endpoints; everything here requires the auth gate
type OrderHandler struct {
	orders   *service.OrderService
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, auditLog *audit.Logger, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OrderHandler{
		orders:   orders,
		auditLog: auditLog,
		logger:   logger,
	}
}

// CreateOrderRequest represents an order placement request
type CreateOrderRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		ProductID:  o.ProductID,
		Quantity:   o.Quantity,
		TotalPrice: o.TotalPrice,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
	}
}

// Create handles POST /orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	order, err := h.orders.Place(r.Context(), user, req.ProductID, req.Quantity)
	if err != nil {
		h.auditLog.LogOrderPlaced(r.Context(), user.Username, 0, "rejected", err.Error())
		writeDomainError(w, err)
		return
	}

	h.auditLog.LogOrderPlaced(r.Context(), user.Username, order.ID, "ok", "")
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List handles GET /orders and returns only the caller's orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orders.ListForUser(user)
	if err != nil {
		h.logger.Error("failed to list orders",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}
