package components

import (
	"marketplace/internal/handler"
	"marketplace/internal/handler/api"
	"marketplace/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewCheckoutHandler,
		api.NewOrderHandler,
		api.NewStockHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
