package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security/audit"
	"github.com/yourorg/storefront/internal/security/middleware"
	"github.com/yourorg/storefront/internal/service"
)

// ProductHandler handles catalog endpoints. List and Get are public;
// Create, Update and Delete sit behind the auth gate.
type ProductHandler struct {
	catalog  *service.CatalogService
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog *service.CatalogService, auditLog *audit.Logger, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProductHandler{
		catalog:  catalog,
		auditLog: auditLog,
		logger:   logger,
	}
}

// CreateProductRequest represents a product creation request
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// UpdateProductRequest is a sparse patch; absent fields stay unchanged
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// List handles GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", queryInt(r, "skip", 0))
	limit := queryInt(r, "limit", 10)

	products, err := h.catalog.List(r.Context(), offset, limit)
	if err != nil {
		h.logger.Error("failed to list products", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}

	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Create handles POST /products (authenticated)
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	product := &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}

	if err := h.catalog.Create(r.Context(), product); err != nil {
		h.logger.Info("product creation rejected", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.auditLog.LogProductMutation(r.Context(), user.Username, "create_product", product.ID, "ok")
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update handles PUT /products/{id} (authenticated, sparse patch)
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	product, err := h.catalog.Update(r.Context(), id, domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.auditLog.LogProductMutation(r.Context(), user.Username, "update_product", id, "ok")
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete handles DELETE /products/{id} (authenticated)
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	h.auditLog.LogProductMutation(r.Context(), user.Username, "delete_product", id, "ok")
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted successfully"})
}

// pathID parses the {id} path segment, answering 400 on garbage
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
