package api

import (
	"errors"
	"net/http"
	"strconv"

	resdto "marketplace/internal/handler/dto/response"
	"marketplace/internal/handler/httperr"
	"marketplace/internal/handler/middleware"
	"marketplace/internal/usecase/queries"
	"marketplace/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orders queries.OrderQueries
}

func NewOrderHandler(orders queries.OrderQueries) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid order id", nil)
		return
	}

	view, err := h.orders.GetOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		if errors.Is(err, queries.ErrOrderNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "ORDER_NOT_FOUND", "Order not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	resp, err := resdto.FromOrderView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	views, err := h.orders.ListCustomerOrders(c.Request.Context(), actor)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	resp, err := resdto.FromOrderListViews(views)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": resp})
}

func (h *OrderHandler) ListReconciliationFlags(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			httperr.AbortWithError(c, http.StatusBadRequest, errors.New("invalid limit"), "INVALID_REQUEST", "limit must be between 1 and 500", nil)
			return
		}
		limit = parsed
	}

	views, err := h.orders.ListReconciliationFlags(c.Request.Context(), actor, limit)
	if err != nil {
		if errors.Is(err, shared.ErrForbidden) {
			httperr.AbortWithError(c, http.StatusForbidden, err, "FORBIDDEN", "Insufficient permissions", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	resp, err := resdto.FromReconciliationFlagViews(views)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": resp})
}
