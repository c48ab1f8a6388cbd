package components

import (
	"log/slog"

	"marketplace/internal/infra/readstore"
	"marketplace/internal/infra/stockcache"
	"marketplace/internal/infra/uow"
	"marketplace/internal/pkg/config"
	"marketplace/internal/usecase/commands"
	"marketplace/internal/usecase/queries"
	"marketplace/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		fx.Annotate(
			uow.NewPostgresUoW,
			fx.As(new(shared.UnitOfWork)),
		),
		fx.Annotate(
			readstore.NewOrderReadStore,
			fx.As(new(queries.OrderReadStore)),
		),
		NewStockReads,
	),
)

// NewStockReads layers the Redis cache over the ledger read store when the
// cache is enabled; otherwise reads go straight to Postgres.
func NewStockReads(pool *pgxpool.Pool, client *redis.Client, cfg config.Config, logger *slog.Logger) commands.StockReads {
	base := readstore.NewStockReadStore(pool)
	if !cfg.Redis.Enabled {
		return base
	}
	return stockcache.New(base, client, cfg.Redis.StockCacheTTL, logger)
}
