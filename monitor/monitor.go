// Package monitor cross-checks published session snapshots for states
// that indicate a bug or a stuck engine. It only observes: nothing it
// computes feeds back into the session.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/health"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/session"
)

// DefaultSilentThreshold is how much audio an active engine may process
// without producing a segment before it is flagged silent.
const DefaultSilentThreshold = 5 * time.Second

// Report is the diagnostic view of the latest snapshot.
type Report struct {
	Version uint64 `json:"version"`

	SilentEngine       bool `json:"silent_engine"`
	ErrorWithoutSignal bool `json:"error_without_signal"`

	RenderCount   uint64        `json:"render_count"`
	UpdateCount   uint64        `json:"update_count"`
	LastUpdateAge time.Duration `json:"last_update_age"`
	LastEventAge  time.Duration `json:"last_event_age"`

	RegistrySpeakers int `json:"registry_speakers"`
	LedgerSpeakers   int `json:"ledger_speakers"`
	EngineSpeakers   int `json:"engine_speakers"`
	LedgerSegments   int `json:"ledger_segments"`

	EventsApplied uint64 `json:"events_applied"`
	EventsDropped uint64 `json:"events_dropped"`
	EventsFenced  uint64 `json:"events_fenced"`
}

// Healthy reports whether no inconsistency is flagged.
func (r Report) Healthy() bool { return !r.SilentEngine && !r.ErrorWithoutSignal }

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithSilentThreshold overrides DefaultSilentThreshold.
func WithSilentThreshold(d time.Duration) Option {
	return func(m *Monitor) { m.silentThreshold = d }
}

// WithLogger sets the logger used for flag transitions.
func WithLogger(l *logger.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// Monitor accumulates counters over observed snapshots.
type Monitor struct {
	mu              sync.Mutex
	now             func() time.Time
	silentThreshold time.Duration
	log             *logger.Logger

	last     session.Snapshot
	lastSeen time.Time
	updates  uint64
	renders  uint64
	flags    [2]bool
}

// New creates a monitor with no observations.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		now:             time.Now,
		silentThreshold: DefaultSilentThreshold,
		log:             logger.Get("monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Observe records a published snapshot.
func (m *Monitor) Observe(snap session.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = snap
	m.lastSeen = m.now()
	m.updates++

	silent, orphan := m.silentLocked(snap), errorWithoutSignal(snap)
	if silent && !m.flags[0] {
		m.log.Warn("Diarization engine is silent", logger.Fields(
			logger.FieldMeetingID, snap.MeetingID,
			"processed_seconds", snap.TotalAudioProcessedSeconds,
		))
	}
	if orphan && !m.flags[1] {
		m.log.Warn("Diarization failed without an error message", logger.Fields(logger.FieldMeetingID, snap.MeetingID))
	}
	m.flags = [2]bool{silent, orphan}
}

// RecordRender counts one presentation render.
func (m *Monitor) RecordRender() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renders++
}

// Report computes the diagnostics for the last observed snapshot.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.last
	now := m.now()
	r := Report{
		Version:            snap.Version,
		SilentEngine:       m.silentLocked(snap),
		ErrorWithoutSignal: errorWithoutSignal(snap),
		RenderCount:        m.renders,
		UpdateCount:        m.updates,
		RegistrySpeakers:   snap.NumSpeakers,
		LedgerSpeakers:     snap.LedgerSpeakers,
		EngineSpeakers:     snap.EngineNumSpeakers,
		LedgerSegments:     snap.TotalSegments,
		EventsApplied:      snap.Counters.EventsApplied,
		EventsDropped:      snap.Counters.EventsDropped,
		EventsFenced:       snap.Counters.EventsFenced,
	}
	if !m.lastSeen.IsZero() {
		r.LastUpdateAge = now.Sub(m.lastSeen)
	}
	if !snap.Counters.LastEventAt.IsZero() {
		r.LastEventAge = now.Sub(snap.Counters.LastEventAt)
	}
	return r
}

// Watch observes snapshots until ch is closed or ctx is cancelled.
func (m *Monitor) Watch(ctx context.Context, ch <-chan session.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			m.Observe(snap)
		}
	}
}

func (m *Monitor) silentLocked(snap session.Snapshot) bool {
	running := snap.Status == diarization.StatusActive || (snap.Live() && snap.Health == health.Active)
	return running &&
		snap.TotalAudioProcessedSeconds > m.silentThreshold.Seconds() &&
		snap.TotalSegments == 0
}

func errorWithoutSignal(snap session.Snapshot) bool {
	return snap.Health == health.Failed && snap.HealthMessage == ""
}
