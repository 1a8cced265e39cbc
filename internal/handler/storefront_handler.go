package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/cloud-wave-best-zizon/storefront/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AddItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type LoadOrderRequest struct {
	OrderNumber string `json:"order_number"`
}

// CartResponse is the view after an intent. Completed is set only by submission.
type CartResponse struct {
	service.View
	Completed *domain.Order `json:"completed,omitempty"`
}

type StorefrontHandler struct {
	manager *service.OrderStateManager
	logger  *zap.Logger
}

func NewStorefrontHandler(manager *service.OrderStateManager, logger *zap.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		manager: manager,
		logger:  logger,
	}
}

// Register mounts the storefront routes on r.
func (h *StorefrontHandler) Register(r gin.IRouter) {
	r.GET("/view", h.GetView)
	r.GET("/products", h.FilterProducts)

	r.POST("/cart/items", h.AddItem)
	r.POST("/cart/lines/:id/increment", h.IncrementLine)
	r.POST("/cart/lines/:id/decrement", h.DecrementLine)
	r.PUT("/cart/lines/:id", h.SetQuantity)
	r.DELETE("/cart/lines/:id", h.RemoveLine)

	r.POST("/orders/load", h.LoadOrder)
	r.POST("/orders/submit", h.SubmitOrder)
}

func (h *StorefrontHandler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.View())
}

func (h *StorefrontHandler) FilterProducts(c *gin.Context) {
	products, err := h.manager.FilterCatalog(c.Request.Context(), c.Query("filter"))
	if err != nil {
		h.fail(c, "filter catalog", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":          products,
		"catalogCategories": domain.Categories(products),
	})
}

func (h *StorefrontHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	product, ok := h.manager.Product(req.ProductID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product is not in the current listing"})
		return
	}

	if _, err := h.manager.AddProductToCart(c.Request.Context(), product); err != nil {
		h.fail(c, "add product", err)
		return
	}
	h.respond(c, nil)
}

func (h *StorefrontHandler) IncrementLine(c *gin.Context) {
	h.lineIntent(c, "increment line", h.manager.IncrementLine)
}

func (h *StorefrontHandler) DecrementLine(c *gin.Context) {
	h.lineIntent(c, "decrement line", h.manager.DecrementLine)
}

func (h *StorefrontHandler) RemoveLine(c *gin.Context) {
	h.lineIntent(c, "remove line", h.manager.RemoveLine)
}

func (h *StorefrontHandler) SetQuantity(c *gin.Context) {
	line, ok := h.lineParam(c)
	if !ok {
		return
	}
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if _, err := h.manager.SetLineQuantity(c.Request.Context(), line, *req.Quantity); err != nil {
		h.fail(c, "set quantity", err)
		return
	}
	h.respond(c, nil)
}

func (h *StorefrontHandler) LoadOrder(c *gin.Context) {
	var req LoadOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	if _, err := h.manager.LoadOrder(c.Request.Context(), req.OrderNumber); err != nil {
		h.fail(c, "load order", err)
		return
	}
	h.respond(c, nil)
}

func (h *StorefrontHandler) SubmitOrder(c *gin.Context) {
	completed, err := h.manager.SubmitOrder(c.Request.Context())
	if err != nil {
		h.fail(c, "submit order", err)
		return
	}
	h.respond(c, &completed)
}

type lineOp func(ctx context.Context, line domain.LineItem) (domain.Order, error)

func (h *StorefrontHandler) lineIntent(c *gin.Context, op string, intent lineOp) {
	line, ok := h.lineParam(c)
	if !ok {
		return
	}
	if _, err := intent(c.Request.Context(), line); err != nil {
		h.fail(c, op, err)
		return
	}
	h.respond(c, nil)
}

// lineParam identifies a line by id; the manager resolves it against the active order.
func (h *StorefrontHandler) lineParam(c *gin.Context) (domain.LineItem, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return domain.LineItem{}, false
	}
	return domain.LineItem{ID: id}, true
}

func (h *StorefrontHandler) respond(c *gin.Context, completed *domain.Order) {
	c.JSON(http.StatusOK, CartResponse{View: h.manager.View(), Completed: completed})
}

func (h *StorefrontHandler) badRequest(c *gin.Context, err error) {
	h.logger.Error("Invalid request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request format",
		"details": err.Error(),
	})
}

func (h *StorefrontHandler) fail(c *gin.Context, op string, err error) {
	requestID := c.GetString("request_id")
	status := StatusFor(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Intent failed", fields...)
	} else {
		h.logger.Warn("Intent rejected", fields...)
	}
	c.JSON(status, gin.H{
		"error":      err.Error(),
		"request_id": requestID,
	})
}

// StatusFor maps intent failures onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMutationInFlight), errors.Is(err, service.ErrNoActiveOrder):
		return http.StatusConflict
	case errors.Is(err, service.ErrOrderNumberRequired):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransportFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
