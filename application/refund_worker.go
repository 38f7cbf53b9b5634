package application

import (
	"context"
	"fmt"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/interfaces"
	"cardroom/domain/services"

	"github.com/coder/quartz"
	log "github.com/sirupsen/logrus"
)

// RefundWorker periodically returns open bets from rooms that have been idle too long
type RefundWorker struct {
	uowFactory  UnitOfWorkFactory
	clock       quartz.Clock
	interval    time.Duration
	idleTimeout time.Duration
	metrics     Metrics
}

// NewRefundWorker creates a new idle room refund worker
func NewRefundWorker(uowFactory UnitOfWorkFactory, clock quartz.Clock, interval, idleTimeout time.Duration, metrics Metrics) *RefundWorker {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RefundWorker{
		uowFactory:  uowFactory,
		clock:       clock,
		interval:    interval,
		idleTimeout: idleTimeout,
		metrics:     metrics,
	}
}

func (w *RefundWorker) refundService(uow UnitOfWork) interfaces.RefundService {
	return services.NewRefundService(
		uow.UserRepository(),
		uow.RoomRepository(),
		uow.RoomBetRepository(),
		uow.RefundEventRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
	)
}

// Run sweeps on every tick until ctx is cancelled
func (w *RefundWorker) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval, "refund_worker")
	w.loop(ctx, ticker)
	return nil
}

// Start schedules the worker and returns a function that stops it and waits for
// an in-flight sweep to finish
func (w *RefundWorker) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	ticker := w.clock.NewTicker(w.interval, "refund_worker")
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.loop(ctx, ticker)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (w *RefundWorker) loop(ctx context.Context, ticker *quartz.Ticker) {
	defer ticker.Stop()

	log.WithFields(log.Fields{
		"interval":    w.interval,
		"idleTimeout": w.idleTimeout,
	}).Info("Refund worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Refund worker shutting down (context cancelled)...")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				log.WithError(err).Error("Refund sweep failed")
			}
		}
	}
}

// Sweep refunds every room created before now minus the idle timeout that still
// holds positive bets. Each room is refunded in its own unit of work; a failing
// room is logged and skipped.
func (w *RefundWorker) Sweep(ctx context.Context) ([]*entities.RefundEvent, error) {
	cutoff := w.clock.Now().Add(-w.idleTimeout)

	roomIDs, err := inTransaction(ctx, w.uowFactory, w.metrics, "idle_rooms", func(uow UnitOfWork) ([]string, error) {
		return w.refundService(uow).IdleRooms(ctx, cutoff)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find idle rooms: %w", err)
	}
	if len(roomIDs) == 0 {
		log.Debug("No idle rooms with open bets")
		return nil, nil
	}

	var all []*entities.RefundEvent
	var failed int
	for _, roomID := range roomIDs {
		refunds, err := inTransaction(ctx, w.uowFactory, w.metrics, "refund_room", func(uow UnitOfWork) ([]*entities.RefundEvent, error) {
			return w.refundService(uow).RefundRoom(ctx, roomID)
		})
		if err != nil {
			failed++
			log.WithFields(log.Fields{
				"roomID": roomID,
				"error":  err,
			}).Error("Failed to refund idle room")
			continue
		}
		if len(refunds) == 0 {
			continue
		}

		w.metrics.RecordRefunds(refunds)
		all = append(all, refunds...)
	}

	log.WithFields(log.Fields{
		"candidates": len(roomIDs),
		"refunds":    len(all),
		"failed":     failed,
	}).Info("Completed idle room refund sweep")
	return all, nil
}
