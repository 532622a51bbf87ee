package session

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/logger"
)

// queued is one item on the event queue. Only results of the
// controller's own engine commands are internal.
type queued struct {
	ev       diarization.Event
	internal bool
}

// Submit queues ev for Run, blocking while the queue is full. Command
// results are produced by the controller itself and are refused here.
func (c *Controller) Submit(ctx context.Context, ev diarization.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.Kind == diarization.KindCommandResult {
		return errors.InvalidInput("kind", "command results cannot be submitted")
	}
	select {
	case c.events <- queued{ev: ev}:
		return nil
	case <-ctx.Done():
		return errors.Timeout("session.submit").WithCause(ctx.Err())
	}
}

// Run forwards engine events into the queue and applies queued events
// one at a time until ctx is cancelled. It also drives animation expiry
// and the initialization timeout.
func (c *Controller) Run(ctx context.Context) error {
	go c.pump(ctx)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case q := <-c.events:
			c.process(ctx, q.ev, q.internal)
			c.recorder.SetQueueDepth(ctx, len(c.events))
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

func (c *Controller) pump(ctx context.Context) {
	src := c.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src:
			if !ok {
				c.log.Warn("Engine event stream closed", logger.Fields(logger.FieldEngine, c.engine.Name()))
				return
			}
			select {
			case c.events <- queued{ev: ev}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Drain applies every queued event without blocking and returns how many
// were applied.
func (c *Controller) Drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case q := <-c.events:
			c.process(ctx, q.ev, q.internal)
			n++
		default:
			return n
		}
	}
}

// Tick expires rename animations and enforces the initialization timeout.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.registry.ExpireAnimations()
	if c.status == diarization.StatusInitializing && c.cfg.InitTimeout > 0 && c.now().Sub(c.startedAt) >= c.cfg.InitTimeout {
		msg := fmt.Sprintf("engine did not become active within %s", c.cfg.InitTimeout)
		c.failLocked(msg)
		changed = true
	}
	if changed {
		c.changedLocked(ctx)
	}
}

// Process applies one event as a single transaction. Invalid and fenced
// events are counted and dropped; nothing is returned to the sender.
// Command results are only accepted from the controller's own commands.
func (c *Controller) Process(ctx context.Context, ev diarization.Event) {
	c.process(ctx, ev, false)
}

func (c *Controller) process(ctx context.Context, ev diarization.Event, internal bool) {
	kind := string(ev.Kind)
	err := ev.Validate()
	if err == nil && ev.Kind == diarization.KindCommandResult && !internal {
		err = errors.InvalidInput("kind", "command result from outside the controller")
	}
	if err != nil {
		c.mu.Lock()
		c.counters.EventsDropped++
		c.mu.Unlock()
		c.log.WithError(err).Warn("Dropping invalid diarization event", logger.Fields(logger.FieldEventKind, kind))
		c.recorder.RecordEvent(ctx, kind, outcomeInvalid)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fenceLocked(ev); err != nil {
		c.counters.EventsFenced++
		c.log.Debug("Dropping event for inactive session", logger.Fields(
			logger.FieldEventKind, kind,
			logger.FieldMeetingID, ev.MeetingID,
			logger.FieldSessionID, ev.SessionID,
			logger.FieldError, err.Error(),
		))
		c.recorder.RecordEvent(ctx, kind, outcomeFenced)
		return
	}

	outcome, changed := c.applyLocked(ev)
	c.counters.LastEventAt = c.now()
	if changed {
		c.counters.EventsApplied++
	} else {
		c.counters.EventsDropped++
	}
	c.recorder.RecordEvent(ctx, kind, outcome)
	if expired := c.registry.ExpireAnimations(); changed || expired {
		c.changedLocked(ctx)
	}
}

func (c *Controller) fenceLocked(ev diarization.Event) error {
	if c.status == diarization.StatusIdle {
		return errors.SessionFenced(ev.MeetingID, "")
	}
	if ev.MeetingID != c.meetingID {
		return errors.SessionFenced(ev.MeetingID, c.meetingID)
	}
	if ev.SessionID != "" && ev.SessionID != c.sessionID {
		return errors.SessionFenced(ev.MeetingID, c.meetingID).
			WithDetail("event_session_id", ev.SessionID).
			WithDetail("active_session_id", c.sessionID)
	}
	return nil
}

func (c *Controller) applyLocked(ev diarization.Event) (outcome string, changed bool) {
	switch ev.Kind {
	case diarization.KindSegment:
		return c.applySegmentLocked(*ev.Segment)
	case diarization.KindSpeakerChange:
		ch := ev.SpeakerChange
		if ch.To != "" {
			c.registry.RegisterIfAbsent(ch.To, c.registry.NextPositionalIndex())
		}
		c.registry.SetCurrent(ch.To)
		c.advanceLocked(ch.At)
		return outcomeApplied, true
	case diarization.KindHealth:
		return c.applyHealthLocked(*ev.Health)
	case diarization.KindSessionStatus:
		return c.applyStatusLocked(*ev.Status)
	case diarization.KindIdentification:
		id := ev.Identification
		if !c.naming.Accepts(id.Confidence) {
			return outcomeIgnored, false
		}
		if err := c.registry.ApplyIdentification(id.SpeakerTag, id.Name, id.Confidence); err != nil {
			c.log.Warn("Identification for unknown speaker", logger.Fields(
				logger.FieldSpeakerTag, id.SpeakerTag,
				logger.FieldMeetingID, c.meetingID,
			))
			return outcomeUnknownSpeaker, false
		}
		return outcomeApplied, true
	case diarization.KindProgress:
		c.advanceLocked(ev.Progress.ProcessedSeconds)
		return outcomeApplied, true
	case diarization.KindCommandResult:
		return c.reconcileLocked(*ev.Command)
	}
	return outcomeIgnored, false
}

func (c *Controller) applySegmentLocked(seg diarization.Segment) (string, bool) {
	out := c.ledger.Append(seg)
	if !out.Result.Accepted() {
		return out.Result.String(), false
	}
	if c.registry.RegisterIfAbsent(seg.SpeakerTag, c.registry.NextPositionalIndex()) {
		c.log.Debug("New speaker", logger.Fields(logger.FieldSpeakerTag, seg.SpeakerTag, logger.FieldMeetingID, c.meetingID))
	}
	c.registry.SetCurrent(c.ledger.CurrentSpeaker())
	if !c.coldStart && (seg.Confidence == 0 || seg.Confidence >= c.cfg.ColdStartConfidence) {
		c.coldStart = true
		c.log.Info("Diarization cold start complete", logger.Fields(
			logger.FieldMeetingID, c.meetingID,
			"after_seconds", seg.End,
		))
	}
	c.advanceLocked(seg.End)
	return out.Result.String(), true
}

// applyHealthLocked records the engine's report. A session in error keeps
// its failure until the engine reports something worse or the user acts.
func (c *Controller) applyHealthLocked(sig diarization.HealthSignal) (string, bool) {
	if c.status == diarization.StatusError && sig.Status != diarization.EngineFailed {
		return outcomeIgnored, false
	}
	c.health.ApplySignal(sig)
	return outcomeApplied, true
}

func (c *Controller) applyStatusLocked(sig diarization.StatusSignal) (string, bool) {
	switch sig.Status {
	case diarization.StatusActive:
		if c.status == diarization.StatusInitializing {
			c.status = diarization.StatusActive
			c.log.Info("Diarization session active", c.sessionFields())
			return outcomeApplied, true
		}
	case diarization.StatusError:
		if c.status == diarization.StatusInitializing || c.status == diarization.StatusActive {
			msg := sig.Message
			if msg == "" {
				msg = "engine reported an error"
			}
			c.failLocked(msg)
			return outcomeApplied, true
		}
	case diarization.StatusIdle:
		if c.status == diarization.StatusInitializing || c.status == diarization.StatusActive {
			c.failLocked("engine stopped unexpectedly")
			return outcomeApplied, true
		}
	}
	return outcomeIgnored, false
}

// reconcileLocked undoes optimistic transitions the engine refused.
func (c *Controller) reconcileLocked(res diarization.CommandResult) (string, bool) {
	if !res.Failed() {
		return outcomeIgnored, false
	}
	switch {
	case res.Command == diarization.CommandStart && c.status == diarization.StatusInitializing:
		c.failLocked("engine start failed: " + res.Error)
	case res.Command == diarization.CommandPause && c.status == diarization.StatusPaused:
		c.status = diarization.StatusActive
	case res.Command == diarization.CommandResume && c.status == diarization.StatusActive:
		c.status = diarization.StatusPaused
	default:
		return outcomeIgnored, false
	}
	c.log.Warn("Reconciled failed engine command", logger.Fields(
		logger.FieldOperation, string(res.Command),
		logger.FieldStatus, string(c.status),
		logger.FieldError, res.Error,
	))
	return outcomeApplied, true
}

func (c *Controller) failLocked(msg string) {
	c.status = diarization.StatusError
	c.health.Fail(msg)
	c.log.WithSession(c.meetingID, c.sessionID).Warn("Diarization session failed", logger.Fields("message", msg))
}

func (c *Controller) advanceLocked(seconds float64) {
	if seconds > c.processed {
		c.processed = seconds
	}
}
