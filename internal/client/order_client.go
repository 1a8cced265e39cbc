package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"go.uber.org/zap"
)

const maxErrorBody = 512

// OrderClient talks to the remote order service. Each call is a single
// request/response exchange bounded by ctx and the client timeout.
type OrderClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewOrderClient(baseURL string, timeout time.Duration, logger *zap.Logger) *OrderClient {
	return &OrderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *OrderClient) CreateOrder(ctx context.Context, productID int64, quantity int) (domain.Order, error) {
	var order domain.Order
	err := c.do(ctx, "create order", http.MethodPost, "/order/", nil,
		domain.CreateOrderRequest{Widget: productID, Quantity: quantity}, &order)
	return order, err
}

func (c *OrderClient) GetOrder(ctx context.Context, number string) (domain.Order, error) {
	var order domain.Order
	err := c.do(ctx, "fetch order", http.MethodGet, "/order/"+url.PathEscape(number)+"/", nil, nil, &order)
	return order, err
}

func (c *OrderClient) CreateLine(ctx context.Context, orderID, productID int64, quantity int) (domain.LineItem, error) {
	var line domain.LineItem
	err := c.do(ctx, "create line", http.MethodPost, "/order/item/", nil,
		domain.LineRequest{Order: orderID, Widget: productID, Quantity: quantity}, &line)
	return line, err
}

func (c *OrderClient) UpdateLine(ctx context.Context, line domain.LineItem, quantity int) (domain.LineItem, error) {
	var updated domain.LineItem
	err := c.do(ctx, "update line", http.MethodPut, linePath(line.ID), nil,
		domain.LineRequest{Order: line.OrderID, Widget: line.Product.ID, Quantity: quantity}, &updated)
	return updated, err
}

func (c *OrderClient) DeleteLine(ctx context.Context, lineID int64) error {
	return c.do(ctx, "delete line", http.MethodDelete, linePath(lineID), nil, nil, nil)
}

func (c *OrderClient) CompleteOrder(ctx context.Context, number string) error {
	return c.do(ctx, "complete order", http.MethodPost, "/order/"+url.PathEscape(number)+"/complete/", nil, nil, nil)
}

// ListProducts fetches the catalog. Each feature becomes a repeated features
// query parameter; the service matches any of them.
func (c *OrderClient) ListProducts(ctx context.Context, features []string) ([]domain.Product, error) {
	query := url.Values{}
	for _, f := range features {
		query.Add("features", f)
	}

	var raw json.RawMessage
	if err := c.do(ctx, "list products", http.MethodGet, "/widget/", query, nil, &raw); err != nil {
		return nil, err
	}
	products, err := decodeProducts(raw)
	if err != nil {
		return nil, &domain.RequestError{Op: "list products", Detail: err.Error(), Kind: domain.ErrTransportFailure}
	}
	return products, nil
}

func linePath(lineID int64) string {
	return "/order/item/" + strconv.FormatInt(lineID, 10) + "/"
}

// decodeProducts accepts a bare array or the {"widgets": [...]} envelope.
func decodeProducts(raw json.RawMessage) ([]domain.Product, error) {
	trimmed := bytes.TrimSpace(raw)
	products := make([]domain.Product, 0)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return products, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, err
		}
		return products, nil
	}

	var envelope struct {
		Widgets []domain.Product `json:"widgets"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Widgets != nil {
		products = envelope.Widgets
	}
	return products, nil
}

func (c *OrderClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Order service request failed",
			zap.String("op", op),
			zap.String("url", u),
			zap.Error(err))
		return &domain.RequestError{Op: op, Detail: err.Error(), Kind: domain.ErrTransportFailure}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		kind := domain.ErrRejected
		if resp.StatusCode == http.StatusNotFound {
			kind = domain.ErrNotFound
		}
		c.logger.Warn("Order service returned an error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail))
		return &domain.RequestError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     strings.TrimSpace(string(detail)),
			Kind:       kind,
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	// A body cut off by the timeout surfaces here as a decode error.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.RequestError{Op: op, Detail: "unreadable response: " + err.Error(), Kind: domain.ErrTransportFailure}
	}
	return nil
}
