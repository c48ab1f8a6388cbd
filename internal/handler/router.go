package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace/internal/handler/api"
	"marketplace/internal/handler/middleware"
	"marketplace/internal/pkg/config"
	"marketplace/internal/usecase/shared"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	logger *middleware.Logger,
	checkoutHandler *api.CheckoutHandler,
	orderHandler *api.OrderHandler,
	stockHandler *api.StockHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, checkoutHandler, orderHandler, stockHandler, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *middleware.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(logger.LoggingMiddleware())
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	checkoutHandler *api.CheckoutHandler,
	orderHandler *api.OrderHandler,
	stockHandler *api.StockHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	{
		stock := apiGroup.Group("/stock")
		{
			addRoutes(stock, []route{
				{Method: http.MethodPost, Path: "/check", Handler: stockHandler.CheckStock},
			})

			stockAdmin := stock.Group("")
			stockAdmin.Use(authMiddleware.RequireAuth())
			addRoutes(stockAdmin, []route{
				{Method: http.MethodPut, Path: "", Handler: stockHandler.UpsertInventory},
			})
		}

		orders := apiGroup.Group("/orders")
		orders.Use(authMiddleware.RequireAuth())
		{
			addRoutes(orders, []route{
				{Method: http.MethodPost, Path: "", Handler: checkoutHandler.CreateOrder},
				{Method: http.MethodGet, Path: "", Handler: orderHandler.ListMyOrders},
				{Method: http.MethodGet, Path: "/:id", Handler: orderHandler.GetOrder},
				{Method: http.MethodPost, Path: "/:id/cancel", Handler: checkoutHandler.CancelOrder},
				{Method: http.MethodPatch, Path: "/:id/status", Handler: checkoutHandler.UpdateOrderStatus},
				{Method: http.MethodPost, Path: "/:id/restock", Handler: checkoutHandler.RestockCancelledOrder},
			})
		}

		recon := apiGroup.Group("/reconciliation-flags")
		recon.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(shared.RoleAdmin))
		{
			addRoutes(recon, []route{
				{Method: http.MethodGet, Path: "", Handler: orderHandler.ListReconciliationFlags},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
