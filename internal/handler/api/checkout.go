package api

import (
	"errors"
	"net/http"

	"marketplace/internal/domain/order"
	reqdto "marketplace/internal/handler/dto/request"
	resdto "marketplace/internal/handler/dto/response"
	"marketplace/internal/handler/httperr"
	"marketplace/internal/handler/middleware"
	"marketplace/internal/usecase/commands"
	"marketplace/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	checkout commands.CheckoutCommands
}

func NewCheckoutHandler(checkout commands.CheckoutCommands) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req reqdto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid request format", nil)
		return
	}

	ord, err := h.checkout.CreateOrder(c.Request.Context(), actor, req.ToParams())
	if err != nil {
		h.writeCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.FromOrderEntity(ord))
}

func (h *CheckoutHandler) CancelOrder(c *gin.Context) {
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

	// The body is optional; a bare cancel carries no reason.
	var req reqdto.CancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	ord, err := h.checkout.CancelOrder(c.Request.Context(), actor, orderID, req.Reason)
	if err != nil {
		h.writeOrderLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromOrderEntity(ord))
}

func (h *CheckoutHandler) UpdateOrderStatus(c *gin.Context) {
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

	var req reqdto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid request format", nil)
		return
	}

	target := order.Status(req.Status)
	if !target.IsValid() {
		httperr.AbortWithError(c, http.StatusBadRequest, commands.ErrInvalidTransition, "INVALID_STATUS", "Unknown order status", nil)
		return
	}

	ord, err := h.checkout.UpdateOrderStatus(c.Request.Context(), actor, orderID, target, req.Reason)
	if err != nil {
		h.writeOrderLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromOrderEntity(ord))
}

func (h *CheckoutHandler) RestockCancelledOrder(c *gin.Context) {
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

	if err := h.checkout.RestockCancelledOrder(c.Request.Context(), actor, orderID); err != nil {
		h.writeOrderLifecycleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CheckoutHandler) writeCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		httperr.AbortWithError(c, http.StatusForbidden, err, "FORBIDDEN", "Insufficient permissions", nil)
	case errors.Is(err, commands.ErrEmptyCart):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "EMPTY_CART", "Cart has no items", nil)
	case errors.Is(err, commands.ErrInsufficientStock):
		httperr.AbortWithError(c, http.StatusConflict, err, "INSUFFICIENT_STOCK", "Not enough stock for one or more items", nil)
	case errors.Is(err, commands.ErrReservationExpired):
		httperr.AbortWithError(c, http.StatusConflict, err, "RESERVATION_EXPIRED", "Stock reservation expired before payment", nil)
	case errors.Is(err, commands.ErrPaymentDeclined):
		httperr.AbortWithError(c, http.StatusPaymentRequired, err, "PAYMENT_DECLINED", "Payment was declined", nil)
	case errors.Is(err, commands.ErrInternalInconsistency):
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_INCONSISTENCY", "Order processing failed after payment; support has been notified", nil)
	case errors.Is(err, commands.ErrServiceUnavailable):
		httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "SERVICE_UNAVAILABLE", "A dependency is unavailable, try again later", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

func (h *CheckoutHandler) writeOrderLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		httperr.AbortWithError(c, http.StatusForbidden, err, "FORBIDDEN", "Insufficient permissions", nil)
	case errors.Is(err, commands.ErrOrderNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "ORDER_NOT_FOUND", "Order not found", nil)
	case errors.Is(err, commands.ErrInvalidTransition), errors.Is(err, order.ErrOrderTerminal):
		httperr.AbortWithError(c, http.StatusConflict, err, "INVALID_TRANSITION", "Order state does not allow this operation", nil)
	case errors.Is(err, order.ErrAlreadyRestocked), errors.Is(err, order.ErrOrderNotCancelled), errors.Is(err, commands.ErrNothingToRestock):
		httperr.AbortWithError(c, http.StatusConflict, err, "RESTOCK_REJECTED", "Order stock cannot be restocked", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
