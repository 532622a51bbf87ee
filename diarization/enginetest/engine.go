// Package enginetest provides a scripted diarization engine for tests and
// offline replays.
package enginetest

import (
	"context"
	"sync"

	"github.com/kbukum/diarlive/diarization"
)

// Name is the provider name of the scripted engine.
const Name = "scripted"

// Call records one command received by the engine.
type Call struct {
	Command   diarization.Command
	MeetingID string
	SessionID string
	Options   diarization.Options
}

// Engine is an in-memory diarization.Engine. Commands are recorded and
// answered with the configured errors; events are pushed with Emit.
type Engine struct {
	mu        sync.Mutex
	available bool
	errs      map[diarization.Command]error
	calls     []Call
	meetingID string
	sessionID string
	events    chan diarization.Event
}

// New creates an available engine whose event buffer holds buffer events.
func New(buffer int) *Engine {
	if buffer <= 0 {
		buffer = 64
	}
	return &Engine{
		available: true,
		errs:      make(map[diarization.Command]error),
		events:    make(chan diarization.Event, buffer),
	}
}

// Name implements provider.Provider.
func (e *Engine) Name() string { return Name }

// IsAvailable implements provider.Provider.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// SetAvailable flips the availability check.
func (e *Engine) SetAvailable(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.available = v
}

// FailNext makes every later cmd return err until cleared with a nil err.
func (e *Engine) FailNext(cmd diarization.Command, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.errs, cmd)
		return
	}
	e.errs[cmd] = err
}

func (e *Engine) Start(ctx context.Context, meetingID, sessionID string, opts diarization.Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Command: diarization.CommandStart, MeetingID: meetingID, SessionID: sessionID, Options: opts})
	if err := e.errs[diarization.CommandStart]; err != nil {
		return err
	}
	e.meetingID, e.sessionID = meetingID, sessionID
	return nil
}

// Stop forgets the started session only when it is the one addressed.
func (e *Engine) Stop(ctx context.Context, meetingID, sessionID string) error {
	err := e.record(diarization.CommandStop, meetingID, sessionID)
	e.mu.Lock()
	if e.meetingID == meetingID && e.sessionID == sessionID {
		e.meetingID, e.sessionID = "", ""
	}
	e.mu.Unlock()
	return err
}

func (e *Engine) Pause(ctx context.Context, meetingID, sessionID string) error {
	return e.record(diarization.CommandPause, meetingID, sessionID)
}

func (e *Engine) Resume(ctx context.Context, meetingID, sessionID string) error {
	return e.record(diarization.CommandResume, meetingID, sessionID)
}

func (e *Engine) Events() <-chan diarization.Event { return e.events }

func (e *Engine) record(cmd diarization.Command, meetingID, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Command: cmd, MeetingID: meetingID, SessionID: sessionID})
	return e.errs[cmd]
}

// Calls returns a copy of every recorded command.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallsOf returns the recorded calls of one command.
func (e *Engine) CallsOf(cmd diarization.Command) []Call {
	var out []Call
	for _, c := range e.Calls() {
		if c.Command == cmd {
			out = append(out, c)
		}
	}
	return out
}

// Session returns the meeting and session of the last successful Start.
func (e *Engine) Session() (meetingID, sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meetingID, e.sessionID
}

// Emit pushes ev onto the event stream, blocking while the buffer is full.
func (e *Engine) Emit(ev diarization.Event) {
	e.events <- ev
}

// Current builds events addressed to the session of the last Start.
func (e *Engine) Current() Addressed {
	m, s := e.Session()
	return Addressed{MeetingID: m, SessionID: s}
}

// Addressed builds events for one meeting and session.
type Addressed struct {
	MeetingID string
	SessionID string
}

func (a Addressed) Segment(tag string, start, end float64) diarization.Event {
	return diarization.NewSegmentEvent(a.MeetingID, a.SessionID, diarization.Segment{SpeakerTag: tag, Start: start, End: end})
}

func (a Addressed) Status(status diarization.SessionStatus) diarization.Event {
	return diarization.NewStatusEvent(a.MeetingID, a.SessionID, status, "")
}

func (a Addressed) Health(status diarization.EngineHealth, message string, numSpeakers int) diarization.Event {
	return diarization.NewHealthEvent(a.MeetingID, a.SessionID, diarization.HealthSignal{Status: status, Message: message, NumSpeakers: numSpeakers})
}

func (a Addressed) Change(from, to string, at float64) diarization.Event {
	return diarization.NewSpeakerChangeEvent(a.MeetingID, a.SessionID, diarization.SpeakerChange{From: from, To: to, At: at})
}

func (a Addressed) Identify(tag, name string, confidence float64) diarization.Event {
	return diarization.NewIdentificationEvent(a.MeetingID, a.SessionID, diarization.Identification{SpeakerTag: tag, Name: name, Confidence: confidence})
}

func (a Addressed) Progress(seconds float64) diarization.Event {
	return diarization.NewProgressEvent(a.MeetingID, a.SessionID, seconds)
}
