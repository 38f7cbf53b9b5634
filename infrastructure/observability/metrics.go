package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cardroom/config"
	"cardroom/domain/entities"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the card room service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	betsPlacedCounter          metric.Int64Counter
	betAmountCounter           metric.Int64Counter
	roundsSettledCounter       metric.Int64Counter
	payoutAmountCounter        metric.Int64Counter
	refundsIssuedCounter       metric.Int64Counter
	refundAmountCounter        metric.Int64Counter
	transactionFailuresCounter metric.Int64Counter
	connectionsActiveGauge     metric.Int64UpDownCounter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	// Schemaless so the merge never conflicts with the SDK's default schema version
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("cardroom")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// InitializeWithReader wires the provider to reader, used by tests to collect in memory
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mp.meter = mp.meterProvider.Meter("cardroom")
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	mp.initialized = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.betsPlacedCounter, err = mp.meter.Int64Counter(
		BetsPlacedTotal,
		metric.WithDescription("Total number of bets placed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bets placed counter: %w", err)
	}

	mp.betAmountCounter, err = mp.meter.Int64Counter(
		BetAmountTotal,
		metric.WithDescription("Total amount moved from balances into bets"),
		metric.WithUnit("{credit}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bet amount counter: %w", err)
	}

	mp.roundsSettledCounter, err = mp.meter.Int64Counter(
		RoundsSettledTotal,
		metric.WithDescription("Total number of rounds settled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rounds settled counter: %w", err)
	}

	mp.payoutAmountCounter, err = mp.meter.Int64Counter(
		PayoutAmountTotal,
		metric.WithDescription("Total amount paid out to round winners"),
		metric.WithUnit("{credit}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payout amount counter: %w", err)
	}

	mp.refundsIssuedCounter, err = mp.meter.Int64Counter(
		RefundsIssuedTotal,
		metric.WithDescription("Total number of idle room refunds issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create refunds issued counter: %w", err)
	}

	mp.refundAmountCounter, err = mp.meter.Int64Counter(
		RefundAmountTotal,
		metric.WithDescription("Total amount refunded from idle rooms"),
		metric.WithUnit("{credit}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create refund amount counter: %w", err)
	}

	mp.transactionFailuresCounter, err = mp.meter.Int64Counter(
		TransactionFailuresTotal,
		metric.WithDescription("Total number of operations that rolled back"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction failures counter: %w", err)
	}

	mp.connectionsActiveGauge, err = mp.meter.Int64UpDownCounter(
		ConnectionsActive,
		metric.WithDescription("Current number of open realtime connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create connections gauge: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordBetPlaced records a bet moving amount into a room
func (mp *MetricsProvider) RecordBetPlaced(amount int64) {
	if !mp.isEnabled() {
		return
	}

	mp.betsPlacedCounter.Add(context.Background(), 1)
	mp.betAmountCounter.Add(context.Background(), amount)
}

// RecordRoundSettled records a committed round and the total paid to its winners
func (mp *MetricsProvider) RecordRoundSettled(round *entities.Round) {
	if !mp.isEnabled() || round == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelVariant, string(round.Variant)))
	mp.roundsSettledCounter.Add(context.Background(), 1, attrs)
	mp.payoutAmountCounter.Add(context.Background(), round.TotalPayout(), attrs)
}

// RecordRefunds records the refunds issued for one idle room
func (mp *MetricsProvider) RecordRefunds(refunds []*entities.RefundEvent) {
	if !mp.isEnabled() || len(refunds) == 0 {
		return
	}

	var total int64
	for _, r := range refunds {
		total += r.Amount
	}
	mp.refundsIssuedCounter.Add(context.Background(), int64(len(refunds)))
	mp.refundAmountCounter.Add(context.Background(), total)
}

// RecordTransactionFailure records an operation that did not commit
func (mp *MetricsProvider) RecordTransactionFailure(operation string, err error) {
	if !mp.isEnabled() {
		return
	}

	errorType := ErrorTypeInternal
	if entities.IsPrecondition(err) {
		errorType = ErrorTypePrecondition
	}
	mp.transactionFailuresCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
			attribute.String(LabelErrorType, errorType),
		),
	)
}

// UpdateActiveConnections adjusts the open connection gauge by delta
func (mp *MetricsProvider) UpdateActiveConnections(delta int64) {
	if !mp.isEnabled() {
		return
	}

	mp.connectionsActiveGauge.Add(context.Background(), delta)
}

// isEnabled checks if metrics are enabled and initialized with instruments
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}
