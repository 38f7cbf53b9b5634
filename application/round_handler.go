package application

import (
	"context"
	"errors"

	"cardroom/domain/entities"
	"cardroom/domain/evaluators"
	"cardroom/domain/interfaces"
	"cardroom/domain/services"

	log "github.com/sirupsen/logrus"
)

// RoundHandler runs rounds and serves the settled round read surface
type RoundHandler struct {
	uowFactory   UnitOfWorkFactory
	seeds        services.SeedSource
	commitSecret string
	metrics      Metrics
}

// NewRoundHandler creates a new round handler; nil seeds uses the crypto source
func NewRoundHandler(uowFactory UnitOfWorkFactory, seeds services.SeedSource, commitSecret string, metrics Metrics) *RoundHandler {
	if seeds == nil {
		seeds = services.CryptoSeedSource
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RoundHandler{
		uowFactory:   uowFactory,
		seeds:        seeds,
		commitSecret: commitSecret,
		metrics:      metrics,
	}
}

func (h *RoundHandler) queryService(uow UnitOfWork) interfaces.RoundQueryService {
	return services.NewRoundQueryService(uow.RoundRepository(), uow.RefundEventRepository(), h.commitSecret)
}

// StartRound deals and settles one round. Either the whole settlement commits or
// none of it does; the error is always a *services.SettlementError.
func (h *RoundHandler) StartRound(ctx context.Context, roomID, caller, variantName string) (*entities.Round, error) {
	variant, err := evaluators.ParseVariant(variantName)
	if err != nil {
		h.metrics.RecordTransactionFailure("start_round", err)
		return nil, &services.SettlementError{Stage: services.StageValidating, Err: err}
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		h.metrics.RecordTransactionFailure("start_round", err)
		return nil, &services.SettlementError{Stage: services.StageRequested, Err: err}
	}
	defer uow.Rollback()

	settlement := services.NewSettlementService(
		uow.UserRepository(),
		uow.RoomRepository(),
		uow.RoomBetRepository(),
		uow.RoundRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		h.seeds,
		h.commitSecret,
	)

	round, err := settlement.StartRound(ctx, roomID, caller, variant)
	if err != nil {
		h.metrics.RecordTransactionFailure("start_round", err)
		var settlementErr *services.SettlementError
		if errors.As(err, &settlementErr) {
			return nil, err
		}
		return nil, &services.SettlementError{Stage: services.StageAborted, Err: err}
	}

	if err := uow.Commit(); err != nil {
		h.metrics.RecordTransactionFailure("start_round", err)
		log.WithFields(log.Fields{
			"roomID":  roomID,
			"roundID": round.ID,
			"error":   err,
		}).Error("Failed to commit round settlement")
		return nil, &services.SettlementError{Stage: services.StageCommitted, Err: err}
	}

	h.metrics.RecordRoundSettled(round)
	log.WithFields(log.Fields{
		"roomID":  roomID,
		"roundID": round.ID,
		"variant": variant,
		"pot":     round.Pot,
		"winners": round.Winners,
	}).Info("Round committed")
	return round, nil
}

// GetRound returns a settled round with its payouts
func (h *RoundHandler) GetRound(ctx context.Context, id string) (*entities.Round, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "get_round", func(uow UnitOfWork) (*entities.Round, error) {
		return h.queryService(uow).GetRound(ctx, id)
	})
}

// ListRounds returns settled rounds newest first, optionally for one room
func (h *RoundHandler) ListRounds(ctx context.Context, roomID string, limit int) ([]*entities.Round, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "list_rounds", func(uow UnitOfWork) ([]*entities.Round, error) {
		if roomID != "" {
			return h.queryService(uow).ListRoundsByRoom(ctx, roomID, limit)
		}
		return h.queryService(uow).ListRounds(ctx, limit)
	})
}

// VerifyRound replays a stored round and reports whether it matches
func (h *RoundHandler) VerifyRound(ctx context.Context, id string) (*interfaces.RoundVerification, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "verify_round", func(uow UnitOfWork) (*interfaces.RoundVerification, error) {
		return h.queryService(uow).VerifyRound(ctx, id)
	})
}

// ListRefunds returns reaper refunds newest first, optionally for one room
func (h *RoundHandler) ListRefunds(ctx context.Context, roomID string, limit int) ([]*entities.RefundEvent, error) {
	return inTransaction(ctx, h.uowFactory, h.metrics, "list_refunds", func(uow UnitOfWork) ([]*entities.RefundEvent, error) {
		if roomID != "" {
			return h.queryService(uow).ListRefundsByRoom(ctx, roomID, limit)
		}
		return h.queryService(uow).ListRefunds(ctx, limit)
	})
}
