package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/storefront/internal/catalog"
	"github.com/cloud-wave-best-zizon/storefront/internal/client"
	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/cloud-wave-best-zizon/storefront/internal/orderstub"
	"github.com/cloud-wave-best-zizon/storefront/internal/repository"
	"github.com/cloud-wave-best-zizon/storefront/internal/service"
	"github.com/cloud-wave-best-zizon/storefront/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newRouter(t *testing.T) (*gin.Engine, *service.OrderStateManager) {
	t.Helper()
	return newRouterWithLogger(t, zap.NewNop())
}

func newRouterWithLogger(t *testing.T, logger *zap.Logger) (*gin.Engine, *service.OrderStateManager) {
	t.Helper()

	stub := orderstub.New(zap.NewNop())
	stub.AddWidget(domain.Product{ID: 1, Name: "widget1", Category: "cat1", Price: domain.MustMoney("10.00"), Features: []string{"Small"}})
	stub.AddWidget(domain.Product{ID: 2, Name: "widget2", Category: "cat2", Price: domain.MustMoney("20.00"), Features: []string{"Big"}})

	srv := httptest.NewServer(orderstub.NewRouter(stub, zap.NewNop()))
	t.Cleanup(srv.Close)

	api := client.NewOrderClient(srv.URL, time.Second, zap.NewNop())
	manager := service.NewOrderStateManager(api, catalog.NewFilter(api, zap.NewNop()), repository.NewMemoryStore(), zap.NewNop())
	t.Cleanup(manager.Close)

	router := gin.New()
	router.Use(middleware.RequestID())
	NewStorefrontHandler(manager, logger).Register(router.Group("/api/v1"))
	return router, manager
}

func call(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) CartResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCartFlow(t *testing.T) {
	router, _ := newRouter(t)

	w := call(t, router, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"catalogCategories":["cat1","cat2"]`)

	resp := decodeCart(t, call(t, router, http.MethodPost, "/api/v1/cart/items", AddItemRequest{ProductID: 1}))
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "10.00", resp.Total)
	lineID := resp.Lines[0].ID

	resp = decodeCart(t, call(t, router, http.MethodPost, fmt.Sprintf("/api/v1/cart/lines/%d/increment", lineID), nil))
	assert.Equal(t, "20.00", resp.Total)

	qty := 3
	resp = decodeCart(t, call(t, router, http.MethodPut, fmt.Sprintf("/api/v1/cart/lines/%d", lineID), SetQuantityRequest{Quantity: &qty}))
	assert.Equal(t, "30.00", resp.Total)

	resp = decodeCart(t, call(t, router, http.MethodPost, fmt.Sprintf("/api/v1/cart/lines/%d/decrement", lineID), nil))
	assert.Equal(t, "20.00", resp.Total)
	number := resp.Order.Number

	resp = decodeCart(t, call(t, router, http.MethodPost, "/api/v1/orders/submit", nil))
	require.NotNil(t, resp.Completed)
	assert.True(t, resp.Completed.Completed)
	assert.Equal(t, number, resp.Completed.Number)
	assert.False(t, resp.Order.Active())
	assert.Equal(t, "0.00", resp.Total)

	w = call(t, router, http.MethodPost, "/api/v1/orders/load", LoadOrderRequest{OrderNumber: number})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRemoveLastLineClosesOrder(t *testing.T) {
	router, manager := newRouter(t)
	_, err := manager.FilterCatalog(context.Background(), "")
	require.NoError(t, err)

	resp := decodeCart(t, call(t, router, http.MethodPost, "/api/v1/cart/items", AddItemRequest{ProductID: 2}))
	resp = decodeCart(t, call(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/cart/lines/%d", resp.Lines[0].ID), nil))
	assert.False(t, resp.Order.Active())
	assert.Empty(t, resp.Lines)
}

func TestLoadOrder(t *testing.T) {
	router, manager := newRouter(t)
	_, err := manager.FilterCatalog(context.Background(), "")
	require.NoError(t, err)

	created, err := manager.AddProductToCart(context.Background(), domain.Product{ID: 2, Price: domain.MustMoney("20.00")})
	require.NoError(t, err)

	resp := decodeCart(t, call(t, router, http.MethodPost, "/api/v1/orders/load", LoadOrderRequest{OrderNumber: created.Number}))
	assert.Equal(t, created.Number, resp.Order.Number)

	w := call(t, router, http.MethodGet, "/api/v1/view", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Number)
}

func TestErrorResponses(t *testing.T) {
	router, manager := newRouter(t)
	_, err := manager.FilterCatalog(context.Background(), "small")
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing product id", http.MethodPost, "/api/v1/cart/items", gin.H{}, http.StatusBadRequest},
		{"product not listed", http.MethodPost, "/api/v1/cart/items", AddItemRequest{ProductID: 2}, http.StatusNotFound},
		{"bad line id", http.MethodPost, "/api/v1/cart/lines/abc/increment", nil, http.StatusBadRequest},
		{"no active order", http.MethodPost, "/api/v1/cart/lines/5/increment", nil, http.StatusConflict},
		{"missing quantity", http.MethodPut, "/api/v1/cart/lines/5", gin.H{}, http.StatusBadRequest},
		{"blank order number", http.MethodPost, "/api/v1/orders/load", LoadOrderRequest{OrderNumber: " "}, http.StatusBadRequest},
		{"unknown order", http.MethodPost, "/api/v1/orders/load", LoadOrderRequest{OrderNumber: "0000000000"}, http.StatusNotFound},
		{"nothing to submit", http.MethodPost, "/api/v1/orders/submit", nil, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(service.ErrMutationInFlight))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(service.ErrClosed))
	assert.Equal(t, http.StatusBadGateway, StatusFor(&domain.RequestError{Kind: domain.ErrTransportFailure}))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(fmt.Errorf("wrapped: %w", domain.ErrRejected)))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestRejectedIntentIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router, _ := newRouterWithLogger(t, zap.New(core))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/submit", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-409")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"request_id":"req-409"`)

	entries := logs.FilterMessage("Intent rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-409", fields["request_id"])
	assert.Equal(t, "submit order", fields["op"])
	assert.Equal(t, int64(http.StatusConflict), fields["status"])
}
