package api

import (
	"errors"
	"net/http"

	reqdto "marketplace/internal/handler/dto/request"
	resdto "marketplace/internal/handler/dto/response"
	"marketplace/internal/handler/httperr"
	"marketplace/internal/handler/middleware"
	"marketplace/internal/usecase/commands"
	"marketplace/internal/usecase/shared"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stock commands.StockCommands
	admin commands.StockAdminCommands
}

func NewStockHandler(stock commands.StockCommands, admin commands.StockAdminCommands) *StockHandler {
	return &StockHandler{stock: stock, admin: admin}
}

// CheckStock is an advisory availability probe; the answer can be stale by
// the time checkout runs.
func (h *StockHandler) CheckStock(c *gin.Context) {
	var req reqdto.CheckStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid request format", nil)
		return
	}

	result, err := h.stock.CheckStock(c.Request.Context(), req.ToItems())
	if err != nil {
		if errors.Is(err, commands.ErrServiceUnavailable) {
			httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "SERVICE_UNAVAILABLE", "Stock lookup is unavailable, try again later", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromCheckStockResult(result))
}

func (h *StockHandler) UpsertInventory(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req reqdto.UpsertStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "INVALID_REQUEST", "Invalid request format", nil)
		return
	}

	if err := h.admin.UpsertInventory(c.Request.Context(), actor, req.ToParams()); err != nil {
		if errors.Is(err, shared.ErrForbidden) {
			httperr.AbortWithError(c, http.StatusForbidden, err, "FORBIDDEN", "Insufficient permissions", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	c.Status(http.StatusNoContent)
}
