// Package worker hosts background loops. The sweeper reclaims reservations
// that passed their TTL without being confirmed, so abandoned checkouts hand
// their stock back automatically.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"marketplace/internal/domain/inventory"
	"marketplace/internal/pkg/config"
	"marketplace/internal/usecase/commands"
)

type Sweeper struct {
	stock     commands.StockCommands
	publisher commands.EventPublisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(stock commands.StockCommands, publisher commands.EventPublisher, cfg config.SweeperConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		stock:     stock,
		publisher: publisher,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// Start launches the background loop. Calling Start twice is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
}

// Stop signals the loop and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce expires due reservations in batches until a batch comes back
// short, then publishes one event per expired reservation.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	total := 0
	for {
		events, err := s.stock.ExpireDue(ctx, s.batchSize)
		if err != nil {
			s.logger.Error("reservation sweep failed", "error", err)
			return total
		}
		total += len(events)
		s.publishExpired(ctx, events)
		if len(events) < s.batchSize {
			break
		}
	}
	if total > 0 {
		s.logger.Info("expired reservations released", "count", total)
	}
	return total
}

func (s *Sweeper) publishExpired(ctx context.Context, events []inventory.ReservationExpiredEvent) {
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, inventory.EventReservationExpired, ev.ReservationID.String(), ev); err != nil {
			s.logger.Warn("failed to publish expiry event", "reservation_id", ev.ReservationID, "error", err)
		}
	}
}
