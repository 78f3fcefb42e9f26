package test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/storefront/internal/events"
)

func TestOrderLifecycle(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	token := h.RegisterAndLogin("alice", "alice@example.com", "password123")

	resp := h.Do(http.MethodPost, "/products", token, map[string]any{
		"name":     "Widget",
		"price":    10.0,
		"quantity": 5,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	var product struct {
		ID       int64 `json:"id"`
		Quantity int   `json:"quantity"`
	}
	DecodeJSON(t, resp, &product)

	resp = h.Do(http.MethodPost, "/orders", token, map[string]any{
		"product_id": product.ID,
		"quantity":   3,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	var order struct {
		ID         int64   `json:"id"`
		TotalPrice float64 `json:"total_price"`
		Status     string  `json:"status"`
	}
	DecodeJSON(t, resp, &order)
	if order.TotalPrice != 30.0 {
		t.Fatalf("expected total 30.0, got %v", order.TotalPrice)
	}
	if order.Status != "pending" {
		t.Fatalf("expected pending status, got %q", order.Status)
	}

	resp = h.Do(http.MethodGet, "/products/1", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	DecodeJSON(t, resp, &product)
	if product.Quantity != 2 {
		t.Fatalf("expected stock 2 after order, got %d", product.Quantity)
	}

	// Only 2 left, so a second order of 3 must be rejected without
	// touching stock.
	resp = h.Do(http.MethodPost, "/orders", token, map[string]any{
		"product_id": product.ID,
		"quantity":   3,
	})
	AssertStatusCode(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = h.Do(http.MethodGet, "/products/1", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	DecodeJSON(t, resp, &product)
	if product.Quantity != 2 {
		t.Fatalf("rejected order changed stock: %d", product.Quantity)
	}

	resp = h.Do(http.MethodGet, "/orders", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var orders []struct {
		ID int64 `json:"id"`
	}
	DecodeJSON(t, resp, &orders)
	if len(orders) != 1 || orders[0].ID != order.ID {
		t.Fatalf("expected exactly the placed order, got %+v", orders)
	}
}

func TestAuthRequired(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/products", map[string]any{"name": "x", "price": 1.0}},
		{http.MethodPut, "/products/1", map[string]any{"price": 2.0}},
		{http.MethodDelete, "/products/1", nil},
		{http.MethodPost, "/orders", map[string]any{"product_id": 1, "quantity": 1}},
		{http.MethodGet, "/orders", nil},
		{http.MethodPost, "/auth/change-password", map[string]any{"old_password": "a", "new_password": "b"}},
	}
	for _, tc := range cases {
		resp := h.Do(tc.method, tc.path, "", tc.body)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", tc.method, tc.path, resp.StatusCode)
		}
		resp.Body.Close()

		resp = h.Do(tc.method, tc.path, "not.a.token", tc.body)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: expected 401, got %d", tc.method, tc.path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestRegisterConflicts(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	resp := h.Do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "password123",
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = h.Do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "password123",
	})
	AssertStatusCode(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = h.Do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "bob", "email": "alice@example.com", "password": "password123",
	})
	AssertStatusCode(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestLoginRejections(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	_ = h.RegisterAndLogin("alice", "alice@example.com", "password123")

	for _, creds := range []map[string]string{
		{"username": "alice", "password": "wrong-password"},
		{"username": "nobody", "password": "password123"},
	} {
		resp := h.Do(http.MethodPost, "/auth/login", "", creds)
		AssertStatusCode(t, resp, http.StatusUnauthorized)
		resp.Body.Close()
	}
}

func TestProductCRUD(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	token := h.RegisterAndLogin("carol", "carol@example.com", "password123")

	resp := h.Do(http.MethodPost, "/products", token, map[string]any{
		"name":        "Gadget",
		"description": "a gadget",
		"price":       19.99,
		"quantity":    7,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	var product struct {
		ID          int64   `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Quantity    int     `json:"quantity"`
	}
	DecodeJSON(t, resp, &product)

	// Sparse update: only the price moves.
	resp = h.Do(http.MethodPut, "/products/1", token, map[string]any{"price": 24.99})
	AssertStatusCode(t, resp, http.StatusOK)
	DecodeJSON(t, resp, &product)
	if product.Price != 24.99 {
		t.Fatalf("expected price 24.99, got %v", product.Price)
	}
	if product.Name != "Gadget" || product.Description != "a gadget" || product.Quantity != 7 {
		t.Fatalf("untouched fields changed: %+v", product)
	}

	resp = h.Do(http.MethodGet, "/products", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var list []struct {
		ID int64 `json:"id"`
	}
	DecodeJSON(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected one product, got %d", len(list))
	}

	resp = h.Do(http.MethodDelete, "/products/1", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = h.Do(http.MethodGet, "/products/1", "", nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = h.Do(http.MethodDelete, "/products/1", token, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestOrdersScopedToOwner(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	alice := h.RegisterAndLogin("alice", "alice@example.com", "password123")
	bob := h.RegisterAndLogin("bob", "bob@example.com", "password123")

	resp := h.Do(http.MethodPost, "/products", alice, map[string]any{
		"name": "Widget", "price": 10.0, "quantity": 5,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = h.Do(http.MethodPost, "/orders", alice, map[string]any{
		"product_id": 1, "quantity": 1,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = h.Do(http.MethodGet, "/orders", bob, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	var orders []struct {
		ID int64 `json:"id"`
	}
	DecodeJSON(t, resp, &orders)
	if len(orders) != 0 {
		t.Fatalf("bob must not see alice's orders, got %+v", orders)
	}
}

func TestOrderValidation(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	token := h.RegisterAndLogin("alice", "alice@example.com", "password123")

	resp := h.Do(http.MethodPost, "/orders", token, map[string]any{
		"product_id": 42, "quantity": 1,
	})
	AssertStatusCode(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = h.Do(http.MethodPost, "/products", token, map[string]any{
		"name": "Widget", "price": 10.0, "quantity": 5,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	for _, qty := range []int{0, -3} {
		resp = h.Do(http.MethodPost, "/orders", token, map[string]any{
			"product_id": 1, "quantity": qty,
		})
		AssertStatusCode(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	}
}

func TestRequiresJSONContentType(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	req, err := http.NewRequest(http.MethodPost, h.URL()+"/auth/register",
		strings.NewReader(`{"username":"alice"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := h.Server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.StatusCode)
	}
}

func TestOrderFeedStreamsEvents(t *testing.T) {
	h := NewTestServer(t)
	defer h.Close()

	token := h.RegisterAndLogin("alice", "alice@example.com", "password123")

	resp := h.Do(http.MethodPost, "/products", token, map[string]any{
		"name": "Widget", "price": 10.0, "quantity": 5,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(h.URL(), "http") + "/ws/orders?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	// The server registers the subscription just after the handshake;
	// wait for it before placing the order.
	deadline := time.Now().Add(3 * time.Second)
	for h.Broadcaster.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("feed subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp = h.Do(http.MethodPost, "/orders", token, map[string]any{
		"product_id": 1, "quantity": 2,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev events.OrderPlaced
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.ProductID != 1 || ev.Quantity != 2 || ev.TotalPrice != 20.0 || ev.Username != "alice" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// An unauthenticated handshake never upgrades.
	if _, r, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(h.URL(), "http")+"/ws/orders", nil); err == nil {
		t.Fatal("expected handshake without token to fail")
	} else if r != nil && r.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %d", r.StatusCode)
	}
}
