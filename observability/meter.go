package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/diarlive/logger"
)

// MeterName is the instrumentation scope of the session metrics.
const MeterName = "github.com/kbukum/diarlive"

// MeterConfig configures the OTLP meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
}

// InitMeter installs a global meter provider exporting over OTLP HTTP. The
// caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// SessionMetrics holds the instruments of the diarization session layer.
type SessionMetrics struct {
	events            metric.Int64Counter
	commands          metric.Int64Counter
	commandDuration   metric.Float64Histogram
	healthTransitions metric.Int64Counter
	queueDepth        metric.Int64Gauge
	recoveryJobs      metric.Int64Counter
}

// NewSessionMetrics creates the instruments on meter.
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	events, err := meter.Int64Counter("diarlive.events",
		metric.WithDescription("Engine events by kind and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarlive.events counter: %w", err)
	}

	commands, err := meter.Int64Counter("diarlive.commands",
		metric.WithDescription("Session commands by name and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarlive.commands counter: %w", err)
	}

	commandDuration, err := meter.Float64Histogram("diarlive.command.duration",
		metric.WithDescription("Duration of engine commands"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarlive.command.duration histogram: %w", err)
	}

	healthTransitions, err := meter.Int64Counter("diarlive.health.transitions",
		metric.WithDescription("Derived health state changes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarlive.health.transitions counter: %w", err)
	}

	queueDepth, err := meter.Int64Gauge("diarlive.queue.depth",
		metric.WithDescription("Events waiting in the controller queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarlive.queue.depth gauge: %w", err)
	}

	recoveryJobs, err := meter.Int64Counter("diarlive.recovery.jobs",
		metric.WithDescription("Recovery jobs handed to the queue by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating diarlive.recovery.jobs counter: %w", err)
	}

	return &SessionMetrics{
		events:            events,
		commands:          commands,
		commandDuration:   commandDuration,
		healthTransitions: healthTransitions,
		queueDepth:        queueDepth,
		recoveryJobs:      recoveryJobs,
	}, nil
}

// RecordEvent counts one engine event. outcome is applied, fenced, dropped
// or a ledger result such as dropped_skew.
func (m *SessionMetrics) RecordEvent(ctx context.Context, kind, outcome string) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

// RecordCommand counts a command and, for engine round trips, its duration.
func (m *SessionMetrics) RecordCommand(ctx context.Context, command, result string, d time.Duration) {
	m.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("result", result),
	))
	if d > 0 {
		m.commandDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
			attribute.String("command", command),
		))
	}
}

// RecordHealthTransition counts a change of derived health.
func (m *SessionMetrics) RecordHealthTransition(ctx context.Context, from, to string) {
	m.healthTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// SetQueueDepth records the controller queue length.
func (m *SessionMetrics) SetQueueDepth(ctx context.Context, depth int) {
	m.queueDepth.Record(ctx, int64(depth))
}

// RecordRecoveryJob counts a recovery enqueue attempt.
func (m *SessionMetrics) RecordRecoveryJob(ctx context.Context, backend, result string) {
	m.recoveryJobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("result", result),
	))
}
