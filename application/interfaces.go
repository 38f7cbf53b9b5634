package application

import (
	"cardroom/domain/entities"
)

// Metrics receives counters for committed operations and rollbacks.
// Implemented by the observability provider; NoopMetrics otherwise.
type Metrics interface {
	RecordBetPlaced(amount int64)
	RecordRoundSettled(round *entities.Round)
	RecordRefunds(refunds []*entities.RefundEvent)
	RecordTransactionFailure(operation string, err error)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) RecordBetPlaced(int64)                  {}
func (NoopMetrics) RecordRoundSettled(*entities.Round)     {}
func (NoopMetrics) RecordRefunds([]*entities.RefundEvent)  {}
func (NoopMetrics) RecordTransactionFailure(string, error) {}
