package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/cloud-wave-best-zizon/storefront/internal/orderstub"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newStubServer(t *testing.T) (*orderstub.Stub, *OrderClient) {
	t.Helper()

	stub := orderstub.New(zap.NewNop())
	stock := 2
	stub.AddWidget(domain.Product{ID: 1, Name: "widget1", Category: "cat1", Price: domain.MustMoney("10.00"), Features: []string{"Small", "Red"}})
	stub.AddWidget(domain.Product{ID: 2, Name: "widget2", Category: "cat2", Price: domain.MustMoney("20.00"), Features: []string{"Big", "Blue"}, Stock: &stock})
	stub.AddWidget(domain.Product{ID: 3, Name: "widget3", Category: "cat0", Price: domain.MustMoney("5.50"), Features: []string{"Fluffy"}})

	srv := httptest.NewServer(orderstub.NewRouter(stub, zap.NewNop()))
	t.Cleanup(srv.Close)
	return stub, NewOrderClient(srv.URL+"/", time.Second, zap.NewNop())
}

func TestOrderLifecycle(t *testing.T) {
	stub, c := newStubServer(t)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, 1, 2)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Len(t, order.Number, 10)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "20.00", order.Lines[0].RowPrice().String())

	line, err := c.CreateLine(ctx, order.ID, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, order.ID, line.OrderID)
	assert.Equal(t, "Only 2 left!", line.Product.StockHint())

	line, err = c.UpdateLine(ctx, line, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)

	fetched, err := c.GetOrder(ctx, order.Number)
	require.NoError(t, err)
	require.Len(t, fetched.Lines, 2)
	assert.Equal(t, "60.00", fetched.Total().String())

	require.NoError(t, c.CompleteOrder(ctx, order.Number))

	w, err := stub.Widget(2)
	require.NoError(t, err)
	assert.Equal(t, "Sold Out!", w.StockHint())
}

func TestDeleteLastLineDeletesOrder(t *testing.T) {
	stub, c := newStubServer(t)
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, 1, 1)
	require.NoError(t, err)

	require.NoError(t, c.DeleteLine(ctx, order.Lines[0].ID))
	assert.Equal(t, 0, stub.OrderCount())

	_, err = c.GetOrder(ctx, order.Number)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListProducts(t *testing.T) {
	_, c := newStubServer(t)
	ctx := context.Background()

	all, err := c.ListProducts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"cat0", "cat1", "cat2"}, domain.Categories(all))

	some, err := c.ListProducts(ctx, []string{"red", "blu"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, int64(1), some[0].ID)
	assert.Equal(t, int64(2), some[1].ID)

	none, err := c.ListProducts(ctx, []string{"square"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDecodeProductsEnvelope(t *testing.T) {
	products, err := decodeProducts([]byte(`{"widgets":[{"id":4,"price":"1.00","category":"c"}]}`))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "1.00", products[0].Price.String())

	products, err = decodeProducts([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, products)

	_, err = decodeProducts([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestErrorMapping(t *testing.T) {
	_, c := newStubServer(t)
	ctx := context.Background()

	_, err := c.GetOrder(ctx, "missing000")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.CreateOrder(ctx, 2, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRejected)

	var reqErr *domain.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.Contains(t, reqErr.Detail, "non_field_errors")

	_, err = c.CreateOrder(ctx, 99, 1)
	assert.ErrorIs(t, err, domain.ErrRejected)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1, "number": `))
	}))
	c := NewOrderClient(srv.URL, time.Second, zap.NewNop())

	_, err := c.GetOrder(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrTransportFailure, "truncated body")

	srv.Close()
	_, err = c.GetOrder(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrTransportFailure, "connection refused")
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewOrderClient(srv.URL, 50*time.Millisecond, zap.NewNop())
	err := c.CompleteOrder(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrTransportFailure)
}
