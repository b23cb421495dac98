package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/minimall/order-backend/internal/lifecycle"
	"github.com/minimall/order-backend/internal/orders"
	"github.com/minimall/order-backend/internal/users"
)

type stubOrders struct {
	byID map[string]orders.Order
}

func (s *stubOrders) Save(_ context.Context, o orders.Order) (orders.Order, error) {
	s.byID[o.ID] = o
	return o, nil
}

func (s *stubOrders) FindByUser(_ context.Context, userID int64) ([]orders.Order, error) {
	out := []orders.Order{}
	for _, o := range s.byID {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubOrders) FindOne(_ context.Context, userID int64, orderID string) (*orders.Order, error) {
	o, ok := s.byID[orderID]
	if !ok || o.UserID != userID {
		return nil, orders.ErrOrderNotFound
	}
	return &o, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, userID int64, orderID string, next orders.Status) (*orders.Order, error) {
	o, ok := s.byID[orderID]
	if !ok || o.UserID != userID {
		return nil, orders.ErrOrderNotFound
	}
	prev, ok := next.Predecessor()
	if !ok || o.Status != prev {
		return nil, orders.ErrInvalidTransition
	}
	o.Status = next
	s.byID[orderID] = o
	return &o, nil
}

func (s *stubOrders) Delete(_ context.Context, userID int64, orderID string) error {
	o, ok := s.byID[orderID]
	if !ok || o.UserID != userID {
		return orders.ErrOrderNotFound
	}
	delete(s.byID, orderID)
	return nil
}

type stubUsers struct {
	points int64
}

func (s *stubUsers) Get(_ context.Context, userID int64) (*users.User, error) {
	return &users.User{ID: userID, Points: s.points}, nil
}

func (s *stubUsers) ApplyPointChange(_ context.Context, _, redeem, earn int64, _ string) (int64, error) {
	if redeem > s.points {
		return 0, users.ErrInsufficientPoints
	}
	s.points = s.points - redeem + earn
	return s.points, nil
}

func (s *stubUsers) ReversePointChange(_ context.Context, _, usedPoints, earnedPoints int64, _ string) (int64, error) {
	s.points += usedPoints - earnedPoints
	return s.points, nil
}

func newTestRouter(t *testing.T, store *stubOrders) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := lifecycle.NewService(lifecycle.Config{
		Orders: store,
		Users:  &stubUsers{points: 1000},
	})

	r := gin.New()
	Register(r, Config{Lifecycle: svc})
	return r
}

func doRequest(r *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrdersRequireUserHeader(t *testing.T) {
	r := newTestRouter(t, &stubOrders{byID: map[string]orders.Order{}})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/orders/ord-1"},
		{http.MethodPost, "/api/orders/ord-1/cancel"},
		{http.MethodDelete, "/api/orders/ord-1"},
	} {
		w := doRequest(r, tc.method, tc.path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without header: status %d, want 401", tc.method, tc.path, w.Code)
		}
	}

	if w := doRequest(r, http.MethodGet, "/api/orders", "abc", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("non-numeric user id: status %d, want 401", w.Code)
	}
}

func TestListOrders(t *testing.T) {
	store := &stubOrders{byID: map[string]orders.Order{
		"ord-1": {ID: "ord-1", UserID: 1, Status: orders.StatusPaid, TotalAmount: 40000},
		"ord-2": {ID: "ord-2", UserID: 2, Status: orders.StatusPaid, TotalAmount: 9000},
	}}
	r := newTestRouter(t, store)

	w := doRequest(r, http.MethodGet, "/api/orders", "1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var list []orders.Order
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].ID != "ord-1" {
		t.Errorf("list = %+v, want only user 1's order", list)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	r := newTestRouter(t, &stubOrders{byID: map[string]orders.Order{}})

	w := doRequest(r, http.MethodGet, "/api/orders/ghost", "1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestDemoCheckoutEndpoint(t *testing.T) {
	store := &stubOrders{byID: map[string]orders.Order{}}
	r := newTestRouter(t, store)

	body := `{
		"orderName": "Sneakers",
		"amount": 10000,
		"items": [{"productId": 11, "productName": "Sneakers", "price": 10000, "quantity": 1}]
	}`
	w := doRequest(r, http.MethodPost, "/api/orders/demo", "1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}

	var got orders.Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != orders.StatusPaid || got.TotalAmount != 10000 {
		t.Errorf("order = %+v", got)
	}
	if len(store.byID) != 1 {
		t.Errorf("store holds %d orders, want 1", len(store.byID))
	}
}

func TestDemoCheckoutValidation(t *testing.T) {
	r := newTestRouter(t, &stubOrders{byID: map[string]orders.Order{}})

	// No items.
	w := doRequest(r, http.MethodPost, "/api/orders/demo", "1", `{"orderName":"x","amount":0,"items":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty items: status %d, want 400", w.Code)
	}

	// Malformed JSON.
	w = doRequest(r, http.MethodPost, "/api/orders/demo", "1", `{`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status %d, want 400", w.Code)
	}
}

func TestDemoCheckoutAmountMismatch(t *testing.T) {
	r := newTestRouter(t, &stubOrders{byID: map[string]orders.Order{}})

	body := `{
		"orderName": "Sneakers",
		"amount": 99999,
		"items": [{"productId": 11, "productName": "Sneakers", "price": 10000, "quantity": 1}]
	}`
	w := doRequest(r, http.MethodPost, "/api/orders/demo", "1", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}

func TestCancelEndpoint(t *testing.T) {
	store := &stubOrders{byID: map[string]orders.Order{
		"ord-1": {ID: "ord-1", UserID: 1, Status: orders.StatusPaid},
	}}
	r := newTestRouter(t, store)

	w := doRequest(r, http.MethodPost, "/api/orders/ord-1/cancel", "1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}

	// A second cancel is rejected as a client error.
	w = doRequest(r, http.MethodPost, "/api/orders/ord-1/cancel", "1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second cancel: status %d, want 400", w.Code)
	}
}

func TestDeleteEndpoint(t *testing.T) {
	store := &stubOrders{byID: map[string]orders.Order{
		"ord-1": {ID: "ord-1", UserID: 1, Status: orders.StatusPaid},
	}}
	r := newTestRouter(t, store)

	if w := doRequest(r, http.MethodDelete, "/api/orders/ord-1", "1", ""); w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if w := doRequest(r, http.MethodDelete, "/api/orders/ord-1", "1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", w.Code)
	}
}
