package provider

import "context"

// Status is the coarse health of a provider.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnavailable
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// HealthStatus is a detailed health report.
type HealthStatus struct {
	Status  Status
	Message string
	Details map[string]any
}

// HealthChecker is implemented by providers that report more than IsAvailable.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// CheckHealth returns p's detailed health, falling back to IsAvailable for
// providers that do not implement HealthChecker.
func CheckHealth(ctx context.Context, p Provider) HealthStatus {
	if hc, ok := p.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	if p.IsAvailable(ctx) {
		return HealthStatus{Status: StatusHealthy}
	}
	return HealthStatus{Status: StatusUnavailable, Message: p.Name() + " is not available"}
}
