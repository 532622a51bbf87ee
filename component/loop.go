package component

import (
	"context"
	"sync"
)

// Loop runs a blocking function in its own goroutine for as long as the
// component is started. Stop cancels the function's context and waits for
// it to return.
type Loop struct {
	name   string
	run    func(ctx context.Context)
	onStop func(ctx context.Context) error
	health func(ctx context.Context) Health

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Component = (*Loop)(nil)

// LoopOption customizes a Loop.
type LoopOption func(*Loop)

// WithStopHook runs fn before the loop's context is cancelled, while the
// loop is still draining. Its error is returned from Stop.
func WithStopHook(fn func(ctx context.Context) error) LoopOption {
	return func(l *Loop) { l.onStop = fn }
}

// WithHealthCheck reports fn's result while the loop is running instead
// of a plain healthy status.
func WithHealthCheck(fn func(ctx context.Context) Health) LoopOption {
	return func(l *Loop) { l.health = fn }
}

// NewLoop creates a loop component named name around run.
func NewLoop(name string, run func(ctx context.Context), opts ...LoopOption) *Loop {
	l := &Loop{name: name, run: run}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loop) Name() string { return l.name }

// Start launches run. The loop's context is detached from ctx so it
// outlives the startup deadline. Starting a running loop is a no-op.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancel, l.done = cancel, make(chan struct{})
	go func() {
		defer close(l.done)
		l.run(runCtx)
	}()
	return nil
}

func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return nil
	}

	var hookErr error
	if l.onStop != nil {
		hookErr = l.onStop(ctx)
	}
	cancel()
	select {
	case <-done:
		return hookErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the loop has been started and not stopped.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

func (l *Loop) Health(ctx context.Context) Health {
	if !l.Running() {
		return Health{Name: l.name, Status: StatusDegraded, Message: "not running"}
	}
	if l.health != nil {
		h := l.health(ctx)
		h.Name = l.name
		return h
	}
	return Health{Name: l.name, Status: StatusHealthy}
}
