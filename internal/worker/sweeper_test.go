//go:build unit

package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/pkg/config"
	"marketplace/internal/usecase/commands"
	"marketplace/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStock returns one pre-arranged ExpireDue batch per call and rejects
// everything else; the sweeper only ever calls ExpireDue.
type scriptedStock struct {
	mu      sync.Mutex
	batches [][]inventory.ReservationExpiredEvent
	err     error
	calls   int
}

func (s *scriptedStock) ExpireDue(_ context.Context, _ int) ([]inventory.ReservationExpiredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *scriptedStock) CheckStock(context.Context, []commands.StockItem) (*commands.CheckStockResult, error) {
	panic("not used by the sweeper")
}

func (s *scriptedStock) Reserve(context.Context, uuid.UUID, []commands.StockItem, time.Duration) (*commands.ReserveResult, error) {
	panic("not used by the sweeper")
}

func (s *scriptedStock) Release(context.Context, uuid.UUID) error {
	panic("not used by the sweeper")
}

func (s *scriptedStock) ConfirmDeduction(context.Context, uuid.UUID) error {
	panic("not used by the sweeper")
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, eventType)
	p.keys = append(p.keys, key)
	return nil
}

func expiredBatch(n int) []inventory.ReservationExpiredEvent {
	out := make([]inventory.ReservationExpiredEvent, n)
	for i := range out {
		out[i] = inventory.ReservationExpiredEvent{
			ReservationID: uuid.New(),
			ExpiredAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			LineCount:     1,
		}
	}
	return out
}

func newTestSweeper(stock commands.StockCommands, publisher commands.EventPublisher) *worker.Sweeper {
	cfg := config.SweeperConfig{Interval: time.Hour, BatchSize: 2}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return worker.NewSweeper(stock, publisher, cfg, logger)
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("drains full batches until a short one", func(t *testing.T) {
		stock := &scriptedStock{batches: [][]inventory.ReservationExpiredEvent{
			expiredBatch(2), expiredBatch(2), expiredBatch(1),
		}}
		publisher := &recordingPublisher{}

		total := newTestSweeper(stock, publisher).SweepOnce(ctx)

		assert.Equal(t, 5, total)
		assert.Equal(t, 3, stock.calls)
		require.Len(t, publisher.keys, 5)
		for _, topic := range publisher.topics {
			assert.Equal(t, inventory.EventReservationExpired, topic)
		}
	})

	t.Run("nothing due", func(t *testing.T) {
		stock := &scriptedStock{}
		publisher := &recordingPublisher{}

		total := newTestSweeper(stock, publisher).SweepOnce(ctx)

		assert.Zero(t, total)
		assert.Equal(t, 1, stock.calls)
		assert.Empty(t, publisher.keys)
	})

	t.Run("expiry error returns the partial count", func(t *testing.T) {
		stock := &scriptedStock{err: errors.New("deadlock detected")}
		publisher := &recordingPublisher{}

		total := newTestSweeper(stock, publisher).SweepOnce(ctx)

		assert.Zero(t, total)
		assert.Empty(t, publisher.keys)
	})

	t.Run("publish failures do not abort the sweep", func(t *testing.T) {
		stock := &scriptedStock{batches: [][]inventory.ReservationExpiredEvent{expiredBatch(1)}}
		publisher := &recordingPublisher{err: errors.New("broker unreachable")}

		total := newTestSweeper(stock, publisher).SweepOnce(ctx)

		assert.Equal(t, 1, total)
	})
}

func TestSweeperLifecycle(t *testing.T) {
	stock := &scriptedStock{}
	publisher := &recordingPublisher{}
	s := newTestSweeper(stock, publisher)

	s.Start()
	s.Start() // second Start is a no-op

	s.Stop()
	s.Stop() // second Stop is a no-op
}
