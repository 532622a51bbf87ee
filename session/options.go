package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/recovery"
	"github.com/kbukum/diarlive/settings"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is logger.Get("session").
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithRecoveryQueue sets where ScheduleRecovery sends jobs. Without a
// queue the pending flag is still recorded.
func WithRecoveryQueue(q recovery.Queue) Option {
	return func(c *Controller) { c.recovery = q }
}

// WithSettingsStore sets the store read by StartFromSettings.
func WithSettingsStore(s settings.Store) Option {
	return func(c *Controller) { c.settings = s }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithDispatcher sets how engine commands and recovery enqueues run.
// The default runs each in its own goroutine; tests pass a function that
// calls fn inline.
func WithDispatcher(dispatch func(fn func())) Option {
	return func(c *Controller) { c.dispatch = dispatch }
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

func defaultDispatch(fn func()) { go fn() }

func defaultID() string { return uuid.NewString() }
