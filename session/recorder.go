package session

import (
	"context"
	"time"
)

// Recorder receives session metrics. observability.SessionMetrics
// satisfies it.
type Recorder interface {
	RecordEvent(ctx context.Context, kind, outcome string)
	RecordCommand(ctx context.Context, command, result string, d time.Duration)
	RecordHealthTransition(ctx context.Context, from, to string)
	SetQueueDepth(ctx context.Context, depth int)
	RecordRecoveryJob(ctx context.Context, backend, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEvent(context.Context, string, string)                  {}
func (nopRecorder) RecordCommand(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordHealthTransition(context.Context, string, string)       {}
func (nopRecorder) SetQueueDepth(context.Context, int)                           {}
func (nopRecorder) RecordRecoveryJob(context.Context, string, string)            {}

// Command and event outcomes used as metric labels.
const (
	resultOK    = "ok"
	resultNoop  = "noop"
	resultError = "error"

	outcomeApplied        = "applied"
	outcomeIgnored        = "ignored"
	outcomeFenced         = "fenced"
	outcomeInvalid        = "invalid"
	outcomeUnknownSpeaker = "unknown_speaker"
)
