package recovery

import (
	"context"
	"io"
	"time"

	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/resilience"
)

// Retrying retries failed enqueues with exponential backoff.
type Retrying struct {
	next Queue
	cfg  resilience.RetryConfig
	log  *logger.Logger
}

// WithRetry wraps q.
func WithRetry(q Queue, cfg resilience.RetryConfig, log *logger.Logger) *Retrying {
	cfg.ApplyDefaults()
	return &Retrying{next: q, cfg: cfg, log: log}
}

func (r *Retrying) Name() string { return r.next.Name() }

func (r *Retrying) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	cfg := r.cfg
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		r.log.Warn("Recovery enqueue failed, retrying", logger.F{
			logger.FieldMeetingID: job.MeetingID,
			"backend":             r.next.Name(),
			"attempt":             attempt,
			logger.FieldError:     err.Error(),
			"backoff":             backoff.String(),
		})
	}
	return resilience.RetryFunc(ctx, cfg, func() error {
		return r.next.Enqueue(ctx, job)
	})
}

// Close closes the wrapped backend when it holds a connection.
func (r *Retrying) Close() error {
	if c, ok := r.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Ping checks the wrapped backend when it can be pinged.
func (r *Retrying) Ping(ctx context.Context) error {
	if p, ok := r.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
