package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// inTransaction runs fn inside a fresh unit of work and commits when fn succeeds.
// Any error rolls the unit back, so buffered events are dropped with it.
func inTransaction[T any](ctx context.Context, factory UnitOfWorkFactory, metrics Metrics, operation string, fn func(uow UnitOfWork) (T, error)) (T, error) {
	var zero T

	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		metrics.RecordTransactionFailure(operation, err)
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := fn(uow)
	if err != nil {
		metrics.RecordTransactionFailure(operation, err)
		log.WithFields(log.Fields{
			"operation": operation,
			"error":     err,
		}).Debug("Operation rolled back")
		return zero, err
	}

	if err := uow.Commit(); err != nil {
		metrics.RecordTransactionFailure(operation, err)
		log.WithFields(log.Fields{
			"operation": operation,
			"error":     err,
		}).Error("Failed to commit transaction")
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}
