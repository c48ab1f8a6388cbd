package components

import (
	"log/slog"

	"marketplace/internal/infra/payment"
	"marketplace/internal/pkg/clock"
	"marketplace/internal/pkg/config"
	"marketplace/internal/usecase/commands"
	"marketplace/internal/usecase/queries"
	"marketplace/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		fx.Annotate(
			payment.NewClient,
			fx.As(new(commands.PaymentAuthorizer)),
		),
		NewPaymentClientConfig,
		commands.NewStockUseCase,
		commands.NewStockAdminUseCase,
		NewCheckoutCommands,
		queries.NewOrderQueries,
	),
)

func NewPaymentClientConfig(cfg config.Config) config.PaymentConfig {
	return cfg.Payment
}

func NewCheckoutCommands(
	uow shared.UnitOfWork,
	stock commands.StockCommands,
	payments commands.PaymentAuthorizer,
	publisher commands.EventPublisher,
	clk clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) commands.CheckoutCommands {
	return commands.NewCheckoutUseCase(uow, stock, payments, publisher, clk, cfg.Saga, logger)
}
