// Package stockcache puts a short-TTL Redis cache in front of the stock
// read store. Only advisory availability checks go through here; the write
// path reads the ledger directly so cached staleness can never oversell.
package stockcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/usecase/commands"

	"github.com/redis/go-redis/v9"
)

type CachedStockReads struct {
	next   commands.StockReads
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(next commands.StockReads, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStockReads {
	return &CachedStockReads{next: next, client: client, ttl: ttl, logger: logger}
}

type cachedEntry struct {
	Sellable int32 `json:"sellable"`
	Found    bool  `json:"found"`
}

// Sellable answers from cache where possible and falls through to the
// underlying store for the misses. Cache failures degrade to a plain read;
// they are logged, never surfaced.
func (c *CachedStockReads) Sellable(ctx context.Context, keys []inventory.ItemKey) ([]commands.SellableQuantity, error) {
	results := make([]commands.SellableQuantity, len(keys))
	var missed []inventory.ItemKey
	var missedIdx []int

	for i, key := range keys {
		entry, ok := c.get(ctx, key)
		if !ok {
			missed = append(missed, key)
			missedIdx = append(missedIdx, i)
			continue
		}
		results[i] = commands.SellableQuantity{Key: key, Sellable: entry.Sellable, Found: entry.Found}
	}

	if len(missed) > 0 {
		fresh, err := c.next.Sellable(ctx, missed)
		if err != nil {
			return nil, err
		}
		for j, sq := range fresh {
			results[missedIdx[j]] = sq
			c.put(ctx, sq)
		}
	}
	return results, nil
}

func (c *CachedStockReads) get(ctx context.Context, key inventory.ItemKey) (cachedEntry, bool) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("stock cache read failed", "key", key.String(), "error", err)
		}
		return cachedEntry{}, false
	}
	var entry cachedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return cachedEntry{}, false
	}
	return entry, true
}

func (c *CachedStockReads) put(ctx context.Context, sq commands.SellableQuantity) {
	raw, err := json.Marshal(cachedEntry{Sellable: sq.Sellable, Found: sq.Found})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(sq.Key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("stock cache write failed", "key", sq.Key.String(), "error", err)
	}
}

func cacheKey(key inventory.ItemKey) string {
	return fmt.Sprintf("stock:sellable:%s", key.String())
}

var _ commands.StockReads = (*CachedStockReads)(nil)
