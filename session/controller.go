package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/health"
	"github.com/kbukum/diarlive/ledger"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/observability"
	"github.com/kbukum/diarlive/recovery"
	"github.com/kbukum/diarlive/settings"
	"github.com/kbukum/diarlive/speaker"
	"github.com/kbukum/diarlive/validation"
)

// Controller runs at most one diarization session at a time. All methods
// are safe for concurrent use; state changes are serialized by one mutex
// so a command never interleaves with an event.
type Controller struct {
	engine   diarization.Engine
	cfg      Config
	log      *logger.Logger
	recorder Recorder
	recovery recovery.Queue
	settings settings.Store
	now      func() time.Time
	dispatch func(fn func())
	newID    func() string

	events chan queued

	mu         sync.Mutex
	meetingID  string
	sessionID  string
	opts       diarization.Options
	naming     settings.Naming
	status     diarization.SessionStatus
	coldStart  bool
	processed  float64
	startedAt  time.Time
	ledger     *ledger.Ledger
	registry   *speaker.Registry
	health     *health.Model
	lastHealth health.State
	version    uint64
	counters   Counters
	subs       map[int]chan Snapshot
	nextSub    int
}

// New creates an idle controller for engine.
func New(engine diarization.Engine, cfg Config, opts ...Option) *Controller {
	cfg.ApplyDefaults()
	c := &Controller{
		engine:   engine,
		cfg:      cfg,
		log:      logger.Get("session"),
		recorder: nopRecorder{},
		now:      time.Now,
		dispatch: defaultDispatch,
		newID:    defaultID,
		status:   diarization.StatusIdle,
		health:   health.New(),
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = make(chan queued, cfg.QueueSize)
	c.ledger = ledger.New(cfg.Ledger, c.log)
	c.registry = speaker.New(speaker.WithClock(c.now), speaker.WithAnimationWindow(cfg.AnimationWindow))
	c.lastHealth = c.health.State(c.status)
	return c
}

// Start begins a session for meetingID. Starting the meeting that is
// already running is a no-op; starting another one fails with
// ALREADY_ACTIVE. The engine start runs in the background.
func (c *Controller) Start(ctx context.Context, meetingID string, opts diarization.Options) error {
	naming := settings.Naming{Enabled: true, ConfidenceThreshold: c.cfg.NameConfidenceThreshold}
	return c.start(ctx, "start", meetingID, opts, naming)
}

// StartFromSettings reads the meeting's settings once and starts with
// them. Disabled settings mark the subsystem disabled instead.
func (c *Controller) StartFromSettings(ctx context.Context, meetingID string) error {
	if c.settings == nil {
		return errors.Internal(fmt.Errorf("no settings store configured"))
	}
	s, err := c.settings.Get(ctx, meetingID)
	if err != nil {
		return err
	}
	if !s.Enabled {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.status != diarization.StatusIdle {
			return nil
		}
		if !c.health.Disabled() {
			c.health.SetDisabled(true)
			c.changedLocked(ctx)
		}
		c.log.Info("Diarization disabled for meeting", logger.Fields(logger.FieldMeetingID, meetingID))
		return nil
	}
	return c.start(ctx, "start", meetingID, s.Options(), s.Naming())
}

func (c *Controller) start(ctx context.Context, op, meetingID string, opts diarization.Options, naming settings.Naming) (err error) {
	ctx, done := c.track(ctx, op, attribute.String(observability.AttrMeetingID, meetingID))
	result := resultOK
	defer func() { done(result, err) }()

	if err := validation.Required("meeting_id", meetingID); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	noop, err := c.checkStartLocked(meetingID)
	c.mu.Unlock()
	if noop || err != nil {
		result = resultNoop
		return err
	}

	if !c.engine.IsAvailable(ctx) {
		c.log.Warn("Diarization engine unavailable", logger.Fields(
			logger.FieldMeetingID, meetingID,
			logger.FieldEngine, c.engine.Name(),
		))
		return errors.EngineUnavailable(c.engine.Name())
	}

	c.mu.Lock()
	if noop, err = c.checkStartLocked(meetingID); noop || err != nil {
		c.mu.Unlock()
		result = resultNoop
		return err
	}
	cmd := c.beginLocked(ctx, meetingID, opts, naming)
	c.changedLocked(ctx)
	c.mu.Unlock()

	c.dispatch(cmd)
	return nil
}

func (c *Controller) checkStartLocked(meetingID string) (noop bool, err error) {
	if c.status == diarization.StatusIdle {
		return false, nil
	}
	if c.meetingID == meetingID {
		return true, nil
	}
	return false, errors.AlreadyActive(c.meetingID, meetingID)
}

// beginLocked resets the session state and returns the engine start command.
func (c *Controller) beginLocked(ctx context.Context, meetingID string, opts diarization.Options, naming settings.Naming) func() {
	c.meetingID = meetingID
	c.sessionID = c.newID()
	c.opts = opts
	c.naming = naming
	c.status = diarization.StatusInitializing
	c.coldStart = false
	c.processed = 0
	c.startedAt = c.now()
	c.ledger.Reset()
	c.registry.Reset()
	c.health.Reset()

	c.log.WithSession(meetingID, c.sessionID).Info("Diarization session starting", logger.Fields(logger.FieldEngine, c.engine.Name()))
	sessionID := c.sessionID
	return c.engineCommand(ctx, diarization.CommandStart, meetingID, sessionID, func(ctx context.Context) error {
		return c.engine.Start(ctx, meetingID, sessionID, opts)
	})
}

// Stop ends the session. It always succeeds locally; the engine stop is
// best-effort and every later event of the old session is dropped.
func (c *Controller) Stop(ctx context.Context) error {
	ctx, done := c.track(ctx, "stop")

	c.mu.Lock()
	changed := c.health.RecoveryPending() || c.health.Engine() != ""
	c.health.SetRecoveryPending(false)
	c.health.ClearSignal()
	var cmd func()
	if c.status != diarization.StatusIdle {
		c.status = diarization.StatusIdle
		cmd = c.sessionCommandLocked(ctx, diarization.CommandStop, c.engine.Stop)
		c.log.Info("Diarization session stopped", c.sessionFields())
		changed = true
	}
	if changed {
		c.changedLocked(ctx)
	}
	c.mu.Unlock()

	if cmd == nil {
		done(resultNoop, nil)
		return nil
	}
	c.dispatch(cmd)
	done(resultOK, nil)
	return nil
}

// Pause moves an active session to paused. Any other state is a no-op.
func (c *Controller) Pause(ctx context.Context) error {
	return c.toggle(ctx, diarization.CommandPause, diarization.StatusActive, diarization.StatusPaused, c.engine.Pause)
}

// Resume moves a paused session back to active. Any other state is a no-op.
func (c *Controller) Resume(ctx context.Context) error {
	return c.toggle(ctx, diarization.CommandResume, diarization.StatusPaused, diarization.StatusActive, c.engine.Resume)
}

func (c *Controller) toggle(ctx context.Context, cmd diarization.Command, from, to diarization.SessionStatus, call addressedCall) error {
	ctx, done := c.track(ctx, string(cmd))

	c.mu.Lock()
	if c.status != from {
		c.log.Debug("Ignoring command", logger.Fields(logger.FieldOperation, string(cmd), logger.FieldStatus, string(c.status)))
		c.mu.Unlock()
		done(resultNoop, nil)
		return nil
	}
	c.status = to
	run := c.sessionCommandLocked(ctx, cmd, call)
	c.changedLocked(ctx)
	c.mu.Unlock()

	c.dispatch(run)
	done(resultOK, nil)
	return nil
}

// Retry restarts a failed or degraded session with its original meeting
// and options under a new session id.
func (c *Controller) Retry(ctx context.Context) (err error) {
	ctx, done := c.track(ctx, "retry")
	result := resultOK
	defer func() { done(result, err) }()

	c.mu.Lock()
	if !health.CanRetry(c.health.State(c.status)) || c.meetingID == "" {
		c.mu.Unlock()
		result = resultNoop
		return nil
	}
	meetingID := c.meetingID
	c.mu.Unlock()

	if !c.engine.IsAvailable(ctx) {
		return errors.EngineUnavailable(c.engine.Name())
	}

	c.mu.Lock()
	if !health.CanRetry(c.health.State(c.status)) || c.meetingID != meetingID {
		c.mu.Unlock()
		result = resultNoop
		return nil
	}
	wasLive := c.status != diarization.StatusIdle
	oldSessionID := c.sessionID
	start := c.beginLocked(ctx, meetingID, c.opts, c.naming)
	c.changedLocked(ctx)
	c.mu.Unlock()

	c.dispatch(func() {
		if wasLive {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CommandTimeout)
			if err := c.engine.Stop(stopCtx, meetingID, oldSessionID); err != nil {
				c.log.WithError(err).Warn("Engine stop before retry failed", logger.Fields(logger.FieldMeetingID, meetingID))
			}
			cancel()
		}
		start()
	})
	return nil
}

// Skip disables diarization until the next Start and stops the running
// session, if any.
func (c *Controller) Skip(ctx context.Context) error {
	ctx, done := c.track(ctx, "skip")

	c.mu.Lock()
	if !health.CanSkip(c.health.State(c.status)) {
		c.mu.Unlock()
		done(resultNoop, nil)
		return nil
	}
	c.health.SetDisabled(true)
	var cmd func()
	if c.status != diarization.StatusIdle {
		c.status = diarization.StatusIdle
		cmd = c.sessionCommandLocked(ctx, diarization.CommandStop, c.engine.Stop)
	}
	c.log.Info("Diarization skipped", c.sessionFields())
	c.changedLocked(ctx)
	c.mu.Unlock()

	if cmd != nil {
		c.dispatch(cmd)
	}
	done(resultOK, nil)
	return nil
}

// ScheduleRecovery marks the session recovery_pending and asks the
// recovery queue to diarize meetingID after the meeting. An empty
// meetingID means the current meeting.
func (c *Controller) ScheduleRecovery(ctx context.Context, meetingID string) (err error) {
	ctx, done := c.track(ctx, "schedule_recovery")
	result := resultOK
	defer func() { done(result, err) }()

	c.mu.Lock()
	if !health.CanScheduleRecovery(c.health.State(c.status)) {
		c.mu.Unlock()
		result = resultNoop
		return nil
	}
	if meetingID == "" {
		meetingID = c.meetingID
	}
	if meetingID == "" {
		c.mu.Unlock()
		return errors.InvalidInput("meeting_id", "is required")
	}
	c.health.SetRecoveryPending(true)
	job := recovery.NewJob(meetingID, c.sessionID, c.health.Message(), c.now())
	c.log.Info("Recovery scheduled", logger.Fields(logger.FieldMeetingID, meetingID, "job_id", job.ID))
	c.changedLocked(ctx)
	c.mu.Unlock()

	if c.recovery != nil {
		q := c.recovery
		c.dispatch(func() {
			enqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CommandTimeout)
			defer cancel()
			if err := q.Enqueue(enqCtx, job); err != nil {
				c.recorder.RecordRecoveryJob(enqCtx, q.Name(), resultError)
				c.log.WithError(err).Error("Recovery job enqueue failed", logger.Fields(logger.FieldMeetingID, job.MeetingID, "job_id", job.ID))
				return
			}
			c.recorder.RecordRecoveryJob(enqCtx, q.Name(), resultOK)
		})
	}
	return nil
}

// CancelRecovery clears the recovery_pending flag. The queued job, if
// any, is not withdrawn.
func (c *Controller) CancelRecovery(ctx context.Context) error {
	ctx, done := c.track(ctx, "cancel_recovery")

	c.mu.Lock()
	if !c.health.RecoveryPending() {
		c.mu.Unlock()
		done(resultNoop, nil)
		return nil
	}
	c.health.SetRecoveryPending(false)
	c.changedLocked(ctx)
	c.mu.Unlock()

	done(resultOK, nil)
	return nil
}

// Rename gives tag a user-chosen display name with full confidence.
func (c *Controller) Rename(ctx context.Context, tag, name string) (err error) {
	ctx, done := c.track(ctx, "rename", attribute.String("diarlive.speaker_tag", tag))
	defer func() { done(resultOK, err) }()

	if err := validation.New().Required("speaker_tag", tag).Required("name", name).Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.registry.ApplyIdentification(tag, name, 1); err != nil {
		return err
	}
	c.changedLocked(ctx)
	return nil
}

// Snapshot returns the current read model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that always holds the latest snapshot. A
// slow reader skips intermediate versions. The channel is closed by the
// returned cancel function.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// changedLocked bumps the version, records health transitions and
// publishes a snapshot to subscribers.
func (c *Controller) changedLocked(ctx context.Context) {
	c.version++
	if st := c.health.State(c.status); st != c.lastHealth {
		c.recorder.RecordHealthTransition(ctx, string(c.lastHealth), string(st))
		c.log.Info("Diarization health changed", logger.Fields(
			logger.FieldMeetingID, c.meetingID,
			"from", string(c.lastHealth),
			logger.FieldHealth, string(st),
			"message", c.health.Message(),
		))
		c.lastHealth = st
	}
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// engineCommand wraps an engine call so that its outcome comes back
// through the event queue, addressed to the session that issued it.
func (c *Controller) engineCommand(ctx context.Context, cmd diarization.Command, meetingID, sessionID string, call func(context.Context) error) func() {
	base := context.WithoutCancel(ctx)
	return func() {
		cmdCtx, cancel := context.WithTimeout(base, c.cfg.CommandTimeout)
		defer cancel()
		began := c.now()
		err := call(cmdCtx)
		result := resultOK
		if err != nil {
			result = resultError
			c.log.WithSession(meetingID, sessionID).WithError(err).Warn("Engine command failed", logger.Fields(logger.FieldOperation, string(cmd)))
		}
		c.recorder.RecordCommand(cmdCtx, "engine."+string(cmd), result, c.now().Sub(began))
		c.deliver(diarization.NewCommandResultEvent(meetingID, sessionID, cmd, err))
	}
}

// addressedCall is an engine command aimed at one session.
type addressedCall func(ctx context.Context, meetingID, sessionID string) error

// sessionCommandLocked binds call to the live session's ids so the
// command still addresses that session when it runs later.
func (c *Controller) sessionCommandLocked(ctx context.Context, cmd diarization.Command, call addressedCall) func() {
	meetingID, sessionID := c.meetingID, c.sessionID
	return c.engineCommand(ctx, cmd, meetingID, sessionID, func(ctx context.Context) error {
		return call(ctx, meetingID, sessionID)
	})
}

func (c *Controller) deliver(ev diarization.Event) {
	timer := time.NewTimer(c.cfg.CommandTimeout)
	defer timer.Stop()
	select {
	case c.events <- queued{ev: ev, internal: true}:
	case <-timer.C:
		c.log.Warn("Event queue full, dropping command result", logger.Fields(
			logger.FieldOperation, string(ev.Command.Command),
			logger.FieldSessionID, ev.SessionID,
		))
	}
}

func (c *Controller) track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(result string, err error)) {
	attrs = append(attrs, attribute.String(observability.AttrCommand, op))
	ctx, end := observability.Track(ctx, "session."+op, attrs...)
	began := c.now()
	return ctx, func(result string, err error) {
		if err != nil {
			result = resultError
		}
		c.recorder.RecordCommand(ctx, op, result, c.now().Sub(began))
		end(err)
	}
}

func (c *Controller) sessionFields() logger.F {
	return logger.Fields(logger.FieldMeetingID, c.meetingID, logger.FieldSessionID, c.sessionID)
}
