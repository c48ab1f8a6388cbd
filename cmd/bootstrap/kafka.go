package bootstrap

import (
	"context"

	"marketplace/internal/infra/events"
	"marketplace/internal/pkg/config"
	"marketplace/internal/usecase/commands"

	"go.uber.org/fx"
)

var KafkaModule = fx.Module("kafka",
	fx.Provide(
		fx.Annotate(
			NewKafkaPublisher,
			fx.As(new(commands.EventPublisher)),
		),
	),
)

func NewKafkaPublisher(lc fx.Lifecycle, cfg config.Config) *events.KafkaPublisher {
	publisher := events.NewKafkaPublisher(cfg.Kafka)

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return publisher.Close()
		},
	})

	return publisher
}
