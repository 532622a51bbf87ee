package session

import (
	"time"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/health"
	"github.com/kbukum/diarlive/ledger"
	"github.com/kbukum/diarlive/speaker"
)

// Snapshot is the read model published after every change. It shares no
// memory with the controller.
type Snapshot struct {
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	MeetingID                  string                    `json:"meeting_id,omitempty"`
	SessionID                  string                    `json:"session_id,omitempty"`
	Status                     diarization.SessionStatus `json:"status"`
	Options                    diarization.Options       `json:"options"`
	ColdStartComplete          bool                      `json:"cold_start_complete"`
	TotalAudioProcessedSeconds float64                   `json:"total_audio_processed_seconds"`

	CurrentSpeaker string                 `json:"current_speaker,omitempty"`
	NumSpeakers    int                    `json:"num_speakers"`
	Identities     []speaker.Identity     `json:"identities"`
	Animating      []string               `json:"animating"`
	Segments       []diarization.Segment  `json:"segments"`
	TotalSegments  int                    `json:"total_segments"`
	ChangeEvents   []ledger.ChangeEvent   `json:"change_events"`
	Stats          []ledger.SpeakerStats  `json:"stats"`
	LedgerSpeakers int                    `json:"ledger_speakers"`

	Health            health.State `json:"health"`
	HealthMessage     string       `json:"health_message,omitempty"`
	EngineNumSpeakers int          `json:"engine_num_speakers"`
	RecoveryPending   bool         `json:"recovery_pending"`

	Counters Counters `json:"counters"`
}

// Counters are cumulative for the lifetime of the controller.
type Counters struct {
	EventsApplied uint64    `json:"events_applied"`
	EventsDropped uint64    `json:"events_dropped"`
	EventsFenced  uint64    `json:"events_fenced"`
	LastEventAt   time.Time `json:"last_event_at"`
}

// Identity returns the identity for tag.
func (s Snapshot) Identity(tag string) (speaker.Identity, bool) {
	for _, id := range s.Identities {
		if id.SpeakerTag == tag {
			return id, true
		}
	}
	return speaker.Identity{}, false
}

// IsAnimating reports whether tag is inside its rename animation window.
func (s Snapshot) IsAnimating(tag string) bool {
	for _, t := range s.Animating {
		if t == tag {
			return true
		}
	}
	return false
}

// Live reports whether a session is running.
func (s Snapshot) Live() bool { return s.Status != diarization.StatusIdle }

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Version:                    c.version,
		Timestamp:                  c.now(),
		MeetingID:                  c.meetingID,
		SessionID:                  c.sessionID,
		Status:                     c.status,
		Options:                    c.opts,
		ColdStartComplete:          c.coldStart,
		TotalAudioProcessedSeconds: c.processed,
		CurrentSpeaker:             c.registry.Current(),
		NumSpeakers:                c.registry.Len(),
		Identities:                 c.registry.Identities(),
		Animating:                  c.registry.Animating(),
		Segments:                   c.ledger.Segments(),
		TotalSegments:              c.ledger.TotalSegments(),
		ChangeEvents:               c.ledger.ChangeEvents(),
		Stats:                      c.ledger.PerSpeakerStats(),
		LedgerSpeakers:             c.ledger.NumSpeakers(),
		Health:                     c.health.State(c.status),
		HealthMessage:              c.health.Message(),
		EngineNumSpeakers:          c.health.EngineNumSpeakers(),
		RecoveryPending:            c.health.RecoveryPending(),
		Counters:                   c.counters,
	}
}
