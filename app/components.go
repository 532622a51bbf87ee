package app

import (
	"context"
	"io"

	"github.com/kbukum/diarlive/component"
)

// resource adapts a connection-holding dependency (store, queue) to the
// component registry. Start is a no-op: the dependency is opened during
// Build so wiring errors surface before anything runs.
type resource struct {
	name   string
	detail string
	target any
}

func (r *resource) Name() string { return r.name }

func (r *resource) Start(context.Context) error { return nil }

func (r *resource) Stop(context.Context) error {
	if c, ok := r.target.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *resource) Health(ctx context.Context) component.Health {
	h := component.Health{Name: r.name, Status: component.StatusHealthy, Message: r.detail}
	if p, ok := r.target.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			h.Status = component.StatusUnhealthy
			h.Message = err.Error()
		}
	}
	return h
}
