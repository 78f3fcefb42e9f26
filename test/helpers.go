package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/events"
	"github.com/yourorg/storefront/internal/handler"
	"github.com/yourorg/storefront/internal/infrastructure/logger"
	"github.com/yourorg/storefront/internal/security/audit"
	"github.com/yourorg/storefront/internal/security/auth"
	"github.com/yourorg/storefront/internal/security/middleware"
	"github.com/yourorg/storefront/internal/security/ratelimit"
	"github.com/yourorg/storefront/internal/service"
	"github.com/yourorg/storefront/pkg/cache"
)

// memStore is an in-memory stand-in for the Postgres repositories. Place
// performs the conditional stock decrement and order insert under one lock,
// matching the transactional semantics of the real repository.
type memStore struct {
	mu          sync.Mutex
	nextUser    int64
	nextProduct int64
	nextOrder   int64
	users       map[int64]*domain.User
	products    map[int64]*domain.Product
	orders      []*domain.Order
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*domain.User{},
		products: map[int64]*domain.Product{},
	}
}

// UserRepository

func (m *memStore) Create(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return domain.ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	m.nextUser++
	u.ID = m.nextUser
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetByID(id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memStore) GetByUsername(username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memStore) GetByEmail(email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memStore) Update(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// productStore implements domain.ProductRepository on top of memStore. The
// split exists because both repositories have a method named Create.
type productStore struct{ *memStore }

func (m productStore) Create(p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProduct++
	p.ID = m.nextProduct
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m productStore) GetByID(id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrProductNotFound
}

func (m productStore) List(offset, limit int) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Product
	for id := int64(1); id <= m.nextProduct; id++ {
		if p, ok := m.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m productStore) Update(id int64, patch domain.ProductPatch) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (m productStore) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m productStore) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

// orderStore implements domain.OrderRepository on top of memStore.
type orderStore struct{ *memStore }

func (m orderStore) Place(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[order.ProductID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Quantity < order.Quantity {
		return domain.ErrInsufficientStock
	}
	p.Quantity -= order.Quantity
	m.nextOrder++
	order.ID = m.nextOrder
	order.TotalPrice = p.Price * float64(order.Quantity)
	order.Status = domain.OrderStatusPending
	order.CreatedAt = time.Now()
	cp := *order
	m.orders = append(m.orders, &cp)
	return nil
}

func (m orderStore) ListByUser(userID int64) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			cp := *m.orders[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m orderStore) CountPending() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		if o.Status == domain.OrderStatusPending {
			n++
		}
	}
	return n, nil
}

// TestServerHelper runs the full HTTP surface against in-memory storage
type TestServerHelper struct {
	Server      *httptest.Server
	Broadcaster *events.Broadcaster
	store       *memStore
	t           *testing.T
}

// NewTestServer assembles the real services, middleware and routes the way
// the server binary does, minus Postgres, Redis and the tracing exporter.
func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := logger.NewLogger("error")
	store := newMemStore()

	tokenManager := auth.NewTokenManager("integration-test-secret", "storefront", 30*time.Minute)
	gate := middleware.NewAuthGate(tokenManager, store, log)
	limiter := ratelimit.NewLimiter(10000, time.Minute)
	t.Cleanup(limiter.Stop)
	auditLogger := audit.NewLogger(log)
	broadcaster := events.NewBroadcaster()

	authService := service.NewAuthService(store, tokenManager, log)
	catalogService := service.NewCatalogService(productStore{store}, cache.New(), nil, 100, log)
	orderService := service.NewOrderService(orderStore{store}, catalogService, broadcaster, log)

	authHandler := handler.NewAuthHandler(authService, log)
	productHandler := handler.NewProductHandler(catalogService, auditLogger, log)
	orderHandler := handler.NewOrderHandler(orderService, auditLogger, log)
	feedHandler := handler.NewOrderFeedHandler(broadcaster, gate, nil, log)

	limited := middleware.RateLimit(limiter, log)
	protected := func(h http.Handler) http.Handler { return gate.Require(limited(h)) }

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.Handle("POST /auth/change-password", protected(http.HandlerFunc(authHandler.ChangePassword)))
	mux.HandleFunc("GET /products", productHandler.List)
	mux.HandleFunc("GET /products/{id}", productHandler.Get)
	mux.Handle("POST /products", protected(http.HandlerFunc(productHandler.Create)))
	mux.Handle("PUT /products/{id}", protected(http.HandlerFunc(productHandler.Update)))
	mux.Handle("DELETE /products/{id}", protected(http.HandlerFunc(productHandler.Delete)))
	mux.Handle("GET /orders", protected(http.HandlerFunc(orderHandler.List)))
	mux.Handle("POST /orders", protected(http.HandlerFunc(orderHandler.Create)))
	mux.Handle("GET /ws/orders", feedHandler)

	server := httptest.NewServer(middleware.RequireJSON(log)(mux))

	return &TestServerHelper{
		Server:      server,
		Broadcaster: broadcaster,
		store:       store,
		t:           t,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Do sends a JSON request, with a bearer token when one is given
func (h *TestServerHelper) Do(method, path, token string, body any) *http.Response {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reader)
	if err != nil {
		h.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.Server.Client().Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// RegisterAndLogin creates a user and returns a bearer token for it
func (h *TestServerHelper) RegisterAndLogin(username, email, password string) string {
	h.t.Helper()

	resp := h.Do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	AssertStatusCode(h.t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = h.Do(http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	AssertStatusCode(h.t, resp, http.StatusOK)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	DecodeJSON(h.t, resp, &login)
	if login.AccessToken == "" {
		h.t.Fatal("login returned no access token")
	}
	return login.AccessToken
}

// AssertStatusCode fails the test when the response status does not match
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, raw)
	}
}

// DecodeJSON decodes the response body and closes it
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
