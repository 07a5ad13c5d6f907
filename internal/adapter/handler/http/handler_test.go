package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikeRez0/webstore/internal/adapter/auth"
	handler "github.com/MikeRez0/webstore/internal/adapter/handler/http"
	"github.com/MikeRez0/webstore/internal/adapter/storage/memory"
	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port/mock"
	"github.com/MikeRez0/webstore/internal/core/service"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router   *handler.Router
	notifier *mock.MockNotifier
	tokens   map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := zap.NewNop()

	repo := memory.NewRepository()
	users := map[string]*domain.User{
		"alice": {ID: 10, Email: "alice@example.com", Role: domain.RoleUser},
		"bob":   {ID: 11, Email: "bob@example.com", Role: domain.RoleUser},
		"admin": {ID: 1, Email: "admin@example.com", Role: domain.RoleAdmin},
	}
	for _, u := range users {
		_, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)
	}
	_, err := repo.CreateProduct(ctx, &domain.Product{ID: 5, Name: "Kettle", Price: decimal.MustParse("50.00"), Stock: 10, Active: true})
	require.NoError(t, err)

	ts, err := auth.New("")
	require.NoError(t, err)
	tokens := make(map[string]string, len(users))
	for name, u := range users {
		tokens[name], err = ts.CreateToken(u)
		require.NoError(t, err)
	}

	notifier := mock.NewMockNotifier(gomock.NewController(t))
	orders, err := service.NewOrderService(repo, log)
	require.NoError(t, err)
	payments, err := service.NewPaymentService(repo, notifier, log)
	require.NoError(t, err)

	oh, err := handler.NewOrderHandler(orders, payments, log)
	require.NoError(t, err)
	ph, err := handler.NewPaymentHandler(payments, log)
	require.NoError(t, err)
	router, err := handler.NewRouter(ts, oh, ph, log)
	require.NoError(t, err)

	return &testServer{router: router, notifier: notifier, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[user])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func orderBody(quantity int) map[string]any {
	return map[string]any{
		"shipping_address": map[string]string{
			"street": "Main 1", "city": "Athens", "zipcode": "10431", "country": "GR",
		},
		"items": []map[string]any{{"product_id": 5, "quantity": quantity}},
	}
}

func (s *testServer) placeOrder(t *testing.T, user string) map[string]any {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/orders", user, orderBody(2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func TestAuthCheck(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		header string
		exp    int
	}{
		{name: "no header", header: "", exp: http.StatusUnauthorized},
		{name: "bad format", header: "Bearer", exp: http.StatusUnauthorized},
		{name: "bad type", header: "Basic abc", exp: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer abc", exp: http.StatusUnauthorized},
		{name: "good", header: "Bearer " + s.tokens["alice"], exp: http.StatusOK},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if test.header != "" {
				req.Header.Set("Authorization", test.header)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			assert.Equal(t, test.exp, w.Code)
		})
	}
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	s := newTestServer(t)

	order := s.placeOrder(t, "alice")
	assert.Equal(t, "100.00", order["total_price"])
	assert.Equal(t, "19.35", order["total_tax"])
	assert.Equal(t, "PENDING", order["status"])
	assert.Equal(t, float64(10), order["user_id"])
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, order["code"])

	tests := []struct {
		name     string
		user     string
		body     any
		expCode  int
		expError string
	}{
		{name: "empty items", user: "alice", body: map[string]any{"shipping_address": orderBody(1)["shipping_address"]},
			expCode: http.StatusBadRequest, expError: "OrderInvalidArgument"},
		{name: "no address", user: "alice", body: map[string]any{"items": orderBody(1)["items"]},
			expCode: http.StatusBadRequest, expError: "AddressInvalidArgument"},
		{name: "insufficient stock", user: "alice", body: orderBody(100),
			expCode: http.StatusBadRequest, expError: "StockInvalidArgument"},
		{name: "for another user", user: "alice", body: func() any {
			b := orderBody(1)
			b["user_id"] = 11
			return b
		}(), expCode: http.StatusForbidden, expError: "OrderNotAuthorized"},
		{name: "bad json", user: "alice", body: "{", expCode: http.StatusBadRequest, expError: "BadRequest"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/orders", test.user, test.body)
			assert.Equal(t, test.expCode, w.Code)
			assert.Equal(t, test.expError, decode(t, w)["code"])
		})
	}

	t.Run("admin for another user", func(t *testing.T) {
		b := orderBody(1)
		b["user_id"] = 11
		w := s.do(t, http.MethodPost, "/api/orders", "admin", b)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, float64(11), decode(t, w)["user_id"])
	})
}

func TestOrderHandler_GetOrder(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(t, "alice")
	path := fmt.Sprintf("/api/orders/%v", order["id"])

	tests := []struct {
		name    string
		path    string
		user    string
		expCode int
	}{
		{name: "owner", path: path, user: "alice", expCode: http.StatusOK},
		{name: "admin", path: path, user: "admin", expCode: http.StatusOK},
		{name: "stranger", path: path, user: "bob", expCode: http.StatusForbidden},
		{name: "missing", path: "/api/orders/404", user: "alice", expCode: http.StatusNotFound},
		{name: "bad id", path: "/api/orders/abc", user: "alice", expCode: http.StatusBadRequest},
		{name: "by code", path: "/api/orders/code/" + order["code"].(string), user: "alice", expCode: http.StatusOK},
		{name: "by code stranger", path: "/api/orders/code/" + order["code"].(string), user: "bob", expCode: http.StatusForbidden},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, test.path, test.user, nil)
			assert.Equal(t, test.expCode, w.Code)
		})
	}
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(t, "alice")
	path := fmt.Sprintf("/api/orders/%v/status", order["id"])

	w := s.do(t, http.MethodPut, path, "alice", map[string]string{"status": "SHIPPED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, path, "admin", map[string]string{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "OrderStatusInvalidArgument", decode(t, w)["code"])

	w = s.do(t, http.MethodPut, path, "admin", map[string]string{"status": "SHIPPED"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SHIPPED", decode(t, w)["status"])
}

func TestOrderHandler_ListOrders(t *testing.T) {
	s := newTestServer(t)
	s.placeOrder(t, "alice")
	s.placeOrder(t, "alice")
	s.placeOrder(t, "bob")

	w := s.do(t, http.MethodGet, "/api/orders?size=1", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(2), page["total_items"])
	assert.Equal(t, float64(2), page["total_pages"])
	assert.Len(t, page["items"], 1)

	w = s.do(t, http.MethodPost, "/api/orders/search", "admin", map[string]any{"user_id": 11})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total_items"])

	w = s.do(t, http.MethodGet, "/api/orders?status=LOST", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_Flow(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(t, "alice")

	w := s.do(t, http.MethodPost, "/api/payments", "alice", map[string]any{
		"order_id": order["id"], "payment_method": "CREDIT_CARD", "card_number": "4111111111111111",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CardNumberInvalidArgument", decode(t, w)["code"])

	w = s.do(t, http.MethodPost, "/api/payments", "bob", map[string]any{
		"order_id": order["id"], "payment_method": "PAYPAL",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/payments", "alice", map[string]any{
		"order_id": order["id"], "payment_method": "CREDIT_CARD", "card_number": "6666-0000-0000-0000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := decode(t, w)
	assert.Equal(t, "TEST_CARD", payment["card_brand"])
	assert.Equal(t, "0000", payment["card_last_four"])
	assert.Equal(t, "100.00", payment["amount"])
	assert.Equal(t, "PENDING", payment["status"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/payments/%v", payment["id"]), "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.notifier.EXPECT().SendOrderConfirmation(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	confirm := map[string]any{"payment_token": payment["payment_token"]}
	w = s.do(t, http.MethodPost, "/api/payments/confirm", "alice", confirm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "COMPLETED", decode(t, w)["status"])

	w = s.do(t, http.MethodPost, "/api/payments/confirm", "alice", confirm)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/payments/confirm", "alice", map[string]any{"payment_token": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PaymentNotFound", decode(t, w)["code"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%v/payments", order["id"]), "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "COMPLETED", list[0]["status"])

	w = s.do(t, http.MethodGet, "/api/payments", "alice", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/api/payments", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total_items"])
}
