// Package health derives the coarse health state of the diarization
// subsystem from engine signals, session status and user actions.
package health

import (
	"github.com/kbukum/diarlive/diarization"
)

// State is the derived health of the subsystem.
type State string

const (
	Initializing    State = "initializing"
	Active          State = "active"
	Degraded        State = "degraded"
	Failed          State = "failed"
	Disabled        State = "disabled"
	RecoveryPending State = "recovery_pending"
)

// States lists every state in derivation priority order.
var States = []State{Disabled, RecoveryPending, Failed, Degraded, Initializing, Active}

// Signals are the inputs of Derive.
type Signals struct {
	Disabled        bool
	RecoveryPending bool
	Engine          diarization.EngineHealth
	SessionStatus   diarization.SessionStatus
}

// Derive applies the priority rules; the first match wins.
func Derive(s Signals) State {
	switch {
	case s.Disabled:
		return Disabled
	case s.RecoveryPending:
		return RecoveryPending
	case s.Engine == diarization.EngineFailed:
		return Failed
	case s.Engine == diarization.EngineDegraded:
		return Degraded
	case s.SessionStatus == diarization.StatusInitializing:
		return Initializing
	default:
		return Active
	}
}

// CanRetry reports whether Retry is valid from s.
func CanRetry(s State) bool { return s == Failed || s == Degraded }

// CanScheduleRecovery reports whether ScheduleRecovery is valid from s.
func CanScheduleRecovery(s State) bool { return s == Failed || s == Degraded }

// CanSkip reports whether Skip is valid from s.
func CanSkip(s State) bool { return s != Disabled }

// Model stores the raw signals. The state itself is never stored. Not safe
// for concurrent use.
type Model struct {
	disabled        bool
	recoveryPending bool
	engine          diarization.EngineHealth
	message         string
	numSpeakers     int
}

// New creates a model with no signals.
func New() *Model { return &Model{} }

// ApplySignal records the engine's latest health report.
func (m *Model) ApplySignal(sig diarization.HealthSignal) {
	m.engine = sig.Status
	m.message = sig.Message
	m.numSpeakers = sig.NumSpeakers
}

// Fail records a local failure, such as an init timeout or an engine error
// status, as if the engine had reported it.
func (m *Model) Fail(message string) {
	m.engine = diarization.EngineFailed
	m.message = message
}

// SetDisabled records the user's skip.
func (m *Model) SetDisabled(v bool) { m.disabled = v }

// SetRecoveryPending records a scheduled or cancelled recovery.
func (m *Model) SetRecoveryPending(v bool) { m.recoveryPending = v }

// ClearSignal forgets the last engine report.
func (m *Model) ClearSignal() {
	m.engine = ""
	m.message = ""
	m.numSpeakers = 0
}

// Reset clears every signal for a new session.
func (m *Model) Reset() {
	*m = Model{}
}

// State derives the current state given the session status.
func (m *Model) State(status diarization.SessionStatus) State {
	return Derive(Signals{
		Disabled:        m.disabled,
		RecoveryPending: m.recoveryPending,
		Engine:          m.engine,
		SessionStatus:   status,
	})
}

func (m *Model) Disabled() bool                   { return m.disabled }
func (m *Model) RecoveryPending() bool            { return m.recoveryPending }
func (m *Model) Engine() diarization.EngineHealth { return m.engine }

// Message is the text attached to the last failure or engine report.
func (m *Model) Message() string { return m.message }

// EngineNumSpeakers is the speaker count from the last engine report.
func (m *Model) EngineNumSpeakers() int { return m.numSpeakers }
