package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/checkout"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/service"
	"github.com/AnDev002/G-Mall-BE-sub001/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	checkoutService *service.CheckoutService
	stockSyncer     *service.StockSyncer
}

// NewHandler creates a new HTTP handler
func NewHandler(checkoutService *service.CheckoutService, stockSyncer *service.StockSyncer) *Handler {
	return &Handler{
		checkoutService: checkoutService,
		stockSyncer:     stockSyncer,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout", h.placeOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/buyers/:id/orders", h.getBuyerOrders)
	}

	admin := router.Group("/admin")
	{
		admin.POST("/stock-sync", h.syncStock)
		admin.GET("/stock/:id", h.inspectStock)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// placeOrder accepts a checkout request and enqueues it. The order id is
// assigned here and returned immediately; the commit happens asynchronously.
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.checkoutService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, checkout.ErrUnitNotFound) || errors.Is(err, checkout.ErrInvalidQuantity) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "Invalid order items",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to accept checkout",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID := c.Param("id")

	order, lines, err := h.checkoutService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"lines": lines,
	})
}

// getBuyerOrders lists a buyer's orders
func (h *Handler) getBuyerOrders(c *gin.Context) {
	buyerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid buyer ID",
		})
		return
	}

	orders, err := h.checkoutService.GetBuyerOrders(c.Request.Context(), buyerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list orders",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// inspectStock reports the authoritative stock level next to the fast
// counter value for one product, for drift inspection.
func (h *Handler) inspectStock(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	view, err := h.stockSyncer.Inspect(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, checkout.ErrUnitNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Product not found",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Stock inspection failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, view)
}

// syncStock triggers a full resync of the fast stock counters from the
// durable store.
func (h *Handler) syncStock(c *gin.Context) {
	synced, err := h.stockSyncer.SyncAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Stock sync failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
