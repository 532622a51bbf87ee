package session

import (
	"context"

	"github.com/kbukum/diarlive/component"
	"github.com/kbukum/diarlive/health"
)

// NewRunner runs ctrl under the component registry. Stopping it ends the
// live session before Run returns.
func NewRunner(ctrl *Controller) *component.Loop {
	return component.NewLoop("session",
		func(ctx context.Context) { _ = ctrl.Run(ctx) },
		component.WithStopHook(ctrl.Stop),
		component.WithHealthCheck(func(context.Context) component.Health { return healthOf(ctrl.Snapshot()) }),
	)
}

// healthOf maps the diarization health onto the component scale. A
// skipped or idle session is healthy: diarization is optional for a
// meeting.
func healthOf(snap Snapshot) component.Health {
	h := component.Health{Status: component.StatusHealthy, Message: snap.HealthMessage}
	switch snap.Health {
	case health.Failed:
		h.Status = component.StatusUnhealthy
	case health.Degraded, health.RecoveryPending:
		h.Status = component.StatusDegraded
	}
	return h
}
