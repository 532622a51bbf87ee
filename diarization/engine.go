package diarization

import (
	"context"

	"github.com/kbukum/diarlive/provider"
)

// Engine is the external diarization backend. Commands return once the
// request has been handed off; their outcome arrives later on Events.
// Stop, Pause and Resume name the session they address, so a late
// command for an old session never touches a newer one.
type Engine interface {
	provider.Provider

	// Start asks the engine to begin diarizing meetingID. sessionID is
	// echoed back on every event of that session.
	Start(ctx context.Context, meetingID, sessionID string, opts Options) error
	// Stop ends the given session. Best effort.
	Stop(ctx context.Context, meetingID, sessionID string) error
	Pause(ctx context.Context, meetingID, sessionID string) error
	Resume(ctx context.Context, meetingID, sessionID string) error

	// Events is the engine's outbound stream. It stays open for the
	// lifetime of the engine, across sessions.
	Events() <-chan Event
}
