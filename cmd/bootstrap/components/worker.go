package components

import (
	"context"
	"log/slog"

	"marketplace/internal/pkg/config"
	"marketplace/internal/usecase/commands"
	"marketplace/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewSweeper,
	),
	fx.Invoke(startSweeper),
)

func NewSweeper(stock commands.StockCommands, publisher commands.EventPublisher, cfg config.Config, logger *slog.Logger) *worker.Sweeper {
	return worker.NewSweeper(stock, publisher, cfg.Sweeper, logger)
}

func startSweeper(lc fx.Lifecycle, sweeper *worker.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}
