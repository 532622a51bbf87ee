package sidecar

import (
	"context"

	"github.com/kbukum/diarlive/component"
	"github.com/kbukum/diarlive/resilience"
)

// NewComponent keeps e's event stream open under the component registry.
func NewComponent(e *Engine) *component.Loop {
	return component.NewLoop("engine."+ProviderName, e.Listen,
		component.WithHealthCheck(func(context.Context) component.Health { return healthOf(e) }))
}

func healthOf(e *Engine) component.Health {
	h := component.Health{Status: component.StatusHealthy}
	switch {
	case e.BreakerState() == resilience.BreakerOpen:
		h.Status = component.StatusUnhealthy
		h.Message = "control calls failing, breaker open"
	case !e.Connected():
		h.Status = component.StatusDegraded
		h.Message = "event stream disconnected"
	}
	return h
}
