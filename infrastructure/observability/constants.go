package observability

// Metric name prefixes
const (
	MetricPrefix = "cardroom"
)

// Metric names
const (
	// Betting metrics
	BetsPlacedTotal = MetricPrefix + ".bets.placed_total"
	BetAmountTotal  = MetricPrefix + ".bets.amount_total"

	// Round metrics
	RoundsSettledTotal = MetricPrefix + ".rounds.settled_total"
	PayoutAmountTotal  = MetricPrefix + ".rounds.payout_amount_total"

	// Reaper metrics
	RefundsIssuedTotal = MetricPrefix + ".refunds.issued_total"
	RefundAmountTotal  = MetricPrefix + ".refunds.amount_total"

	// Failure metrics
	TransactionFailuresTotal = MetricPrefix + ".transactions.failures_total"

	// Connection metrics
	ConnectionsActive = MetricPrefix + ".connections.active"
)

// Label keys
const (
	LabelVariant   = "variant"
	LabelOperation = "operation"
	LabelErrorType = "error_type"
)

// Error types for failure metrics
const (
	ErrorTypePrecondition = "precondition"
	ErrorTypeInternal     = "internal"
)
