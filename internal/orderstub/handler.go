package orderstub

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	stub   *Stub
	logger *zap.Logger
}

func NewHandler(stub *Stub, logger *zap.Logger) *Handler {
	return &Handler{
		stub:   stub,
		logger: logger,
	}
}

// Register mounts the order service routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/widget/", h.ListWidgets)
	r.GET("/widget/:id/", h.GetWidget)

	r.POST("/order/", h.CreateOrder)
	r.GET("/order/:number/", h.GetOrder)
	r.DELETE("/order/:number/", h.DeleteOrder)
	r.POST("/order/:number/complete/", h.CompleteOrder)

	r.GET("/order/item/", h.ListLines)
	r.POST("/order/item/", h.CreateLine)
	r.GET("/order/item/:id/", h.GetLine)
	r.PUT("/order/item/:id/", h.UpdateLine)
	r.DELETE("/order/item/:id/", h.DeleteLine)
}

func (h *Handler) ListWidgets(c *gin.Context) {
	c.JSON(http.StatusOK, h.stub.Widgets(c.QueryArray("features"), c.Query("category")))
}

func (h *Handler) GetWidget(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	w, err := h.stub.Widget(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	order, err := h.stub.CreateOrder(req.Widget, req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.stub.GetOrder(c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	if err := h.stub.DeleteOrder(c.Param("number")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) CompleteOrder(c *gin.Context) {
	if err := h.stub.CompleteOrder(c.Param("number")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) ListLines(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"detail": "listing order items is not allowed"})
}

func (h *Handler) CreateLine(c *gin.Context) {
	var req domain.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	line, err := h.stub.CreateLine(req.Order, req.Widget, req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

func (h *Handler) GetLine(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	line, err := h.stub.Line(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *Handler) UpdateLine(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req domain.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	line, err := h.stub.UpdateLine(id, req.Order, req.Widget, req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *Handler) DeleteLine(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	if err := h.stub.DeleteLine(id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrLineNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.Is(err, ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{err.Error()}})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	}
}

// NewRouter returns a gin engine serving the stub.
func NewRouter(stub *Stub, logger *zap.Logger, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)
	NewHandler(stub, logger).Register(router)
	return router
}
