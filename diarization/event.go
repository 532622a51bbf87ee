package diarization

import (
	"fmt"

	"github.com/kbukum/diarlive/validation"
)

// EventKind names the payload an Event carries.
type EventKind string

const (
	KindSegment        EventKind = "segment"
	KindSpeakerChange  EventKind = "speaker_change"
	KindHealth         EventKind = "health"
	KindSessionStatus  EventKind = "session_status"
	KindIdentification EventKind = "identification"
	KindProgress       EventKind = "progress"
	// KindCommandResult reports the outcome of a fire-and-forget command.
	// The controller produces these itself; engines never do.
	KindCommandResult EventKind = "command_result"
)

// SessionStatus is the session lifecycle state, shared by the controller and
// the engine's sessionStatus events.
type SessionStatus string

const (
	StatusIdle         SessionStatus = "idle"
	StatusInitializing SessionStatus = "initializing"
	StatusActive       SessionStatus = "active"
	StatusPaused       SessionStatus = "paused"
	StatusError        SessionStatus = "error"
)

// EngineHealth is the engine's self-reported quality.
type EngineHealth string

const (
	EngineHealthy  EngineHealth = "healthy"
	EngineDegraded EngineHealth = "degraded"
	EngineFailed   EngineHealth = "failed"
)

// Command names an engine command.
type Command string

const (
	CommandStart  Command = "start"
	CommandStop   Command = "stop"
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
)

// Segment is a span of audio attributed to one speaker tag. Times are seconds
// of meeting audio. Confidence is optional; zero means not reported.
type Segment struct {
	SpeakerTag string  `json:"speaker_tag" yaml:"speaker_tag"`
	Start      float64 `json:"start" yaml:"start"`
	End        float64 `json:"end" yaml:"end"`
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 { return s.End - s.Start }

// SpeakerChange is the engine's own view of a speaker transition. An empty
// tag means nobody.
type SpeakerChange struct {
	From string  `json:"from,omitempty" yaml:"from"`
	To   string  `json:"to,omitempty" yaml:"to"`
	At   float64 `json:"at" yaml:"at"`
}

// HealthSignal is the engine's latest health report.
type HealthSignal struct {
	Status      EngineHealth `json:"status" yaml:"status"`
	Message     string       `json:"message,omitempty" yaml:"message"`
	NumSpeakers int          `json:"num_speakers" yaml:"num_speakers"`
}

// StatusSignal is the engine's session status report.
type StatusSignal struct {
	Status  SessionStatus `json:"status" yaml:"status"`
	Message string        `json:"message,omitempty" yaml:"message"`
}

// Identification attaches a name to a speaker tag.
type Identification struct {
	SpeakerTag string  `json:"speaker_tag" yaml:"speaker_tag"`
	Name       string  `json:"name" yaml:"name"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Progress reports how much audio the engine has consumed so far.
type Progress struct {
	ProcessedSeconds float64 `json:"processed_seconds" yaml:"processed_seconds"`
}

// CommandResult is the outcome of an engine command.
type CommandResult struct {
	Command Command `json:"command"`
	Error   string  `json:"error,omitempty"`
}

// Failed reports whether the command returned an error.
func (c CommandResult) Failed() bool { return c.Error != "" }

// Event is one message on the engine stream. Exactly one payload matches Kind.
type Event struct {
	Kind      EventKind `json:"kind" yaml:"kind" validate:"required"`
	MeetingID string    `json:"meeting_id" yaml:"meeting_id" validate:"required"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id"`

	Segment        *Segment        `json:"segment,omitempty" yaml:"segment"`
	SpeakerChange  *SpeakerChange  `json:"speaker_change,omitempty" yaml:"speaker_change"`
	Health         *HealthSignal   `json:"health,omitempty" yaml:"health"`
	Status         *StatusSignal   `json:"status,omitempty" yaml:"status"`
	Identification *Identification `json:"identification,omitempty" yaml:"identification"`
	Progress       *Progress       `json:"progress,omitempty" yaml:"progress"`
	Command        *CommandResult  `json:"command,omitempty" yaml:"command"`
}

// Validate checks that the event is addressed and carries the payload its
// kind promises.
func (e Event) Validate() error {
	if err := validation.Validate(e); err != nil {
		return err
	}
	var present bool
	switch e.Kind {
	case KindSegment:
		present = e.Segment != nil
	case KindSpeakerChange:
		present = e.SpeakerChange != nil
	case KindHealth:
		present = e.Health != nil
	case KindSessionStatus:
		present = e.Status != nil
	case KindIdentification:
		present = e.Identification != nil
	case KindProgress:
		present = e.Progress != nil
	case KindCommandResult:
		present = e.Command != nil
	default:
		return validation.New().Custom(false, "kind", fmt.Sprintf("unknown event kind %q", e.Kind)).Err()
	}
	if !present {
		return validation.New().Custom(false, string(e.Kind), "payload is required").Err()
	}
	return e.validateNumbers()
}

// validateNumbers rejects NaN and infinite times and confidences, which
// cannot be ordered or encoded as JSON.
func (e Event) validateNumbers() error {
	v := validation.New()
	switch e.Kind {
	case KindSegment:
		v.Finite("segment.start", e.Segment.Start).
			Finite("segment.end", e.Segment.End).
			Finite("segment.confidence", e.Segment.Confidence)
	case KindSpeakerChange:
		v.Finite("speaker_change.at", e.SpeakerChange.At)
	case KindIdentification:
		v.Finite("identification.confidence", e.Identification.Confidence)
	case KindProgress:
		v.Finite("progress.processed_seconds", e.Progress.ProcessedSeconds)
	}
	return v.Err()
}

// String renders the event for logs.
func (e Event) String() string {
	return fmt.Sprintf("%s(meeting=%s session=%s)", e.Kind, e.MeetingID, e.SessionID)
}

// NewSegmentEvent builds a segment event.
func NewSegmentEvent(meetingID, sessionID string, seg Segment) Event {
	return Event{Kind: KindSegment, MeetingID: meetingID, SessionID: sessionID, Segment: &seg}
}

// NewSpeakerChangeEvent builds a speakerChange event.
func NewSpeakerChangeEvent(meetingID, sessionID string, change SpeakerChange) Event {
	return Event{Kind: KindSpeakerChange, MeetingID: meetingID, SessionID: sessionID, SpeakerChange: &change}
}

// NewHealthEvent builds a health event.
func NewHealthEvent(meetingID, sessionID string, h HealthSignal) Event {
	return Event{Kind: KindHealth, MeetingID: meetingID, SessionID: sessionID, Health: &h}
}

// NewStatusEvent builds a sessionStatus event.
func NewStatusEvent(meetingID, sessionID string, status SessionStatus, message string) Event {
	return Event{Kind: KindSessionStatus, MeetingID: meetingID, SessionID: sessionID,
		Status: &StatusSignal{Status: status, Message: message}}
}

// NewIdentificationEvent builds an identification event.
func NewIdentificationEvent(meetingID, sessionID string, id Identification) Event {
	return Event{Kind: KindIdentification, MeetingID: meetingID, SessionID: sessionID, Identification: &id}
}

// NewProgressEvent builds a progress event.
func NewProgressEvent(meetingID, sessionID string, processedSeconds float64) Event {
	return Event{Kind: KindProgress, MeetingID: meetingID, SessionID: sessionID,
		Progress: &Progress{ProcessedSeconds: processedSeconds}}
}

// NewCommandResultEvent builds a command outcome event. err may be nil.
func NewCommandResultEvent(meetingID, sessionID string, cmd Command, err error) Event {
	res := &CommandResult{Command: cmd}
	if err != nil {
		res.Error = err.Error()
	}
	return Event{Kind: KindCommandResult, MeetingID: meetingID, SessionID: sessionID, Command: res}
}
