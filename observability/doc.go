// Package observability wires OpenTelemetry metrics and traces for the
// session layer.
//
//	mp, err := observability.InitMeter(ctx, cfg.MeterConfig("diarlive", version.Version, env))
//	defer mp.Shutdown(ctx)
//	metrics, err := observability.NewSessionMetrics(observability.Meter(observability.MeterName))
//
// SessionMetrics satisfies the session controller's Recorder. Commands are
// traced with Track.
package observability
