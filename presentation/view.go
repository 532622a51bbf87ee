// Package presentation projects session snapshots into display-ready
// values: speaker labels with confidence markers and colors, talk-time
// percentages and a health banner. It never mutates the session.
package presentation

import (
	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/health"
	"github.com/kbukum/diarlive/session"
	"github.com/kbukum/diarlive/speaker"
)

// Palette assigns colors by positional index so a speaker keeps its color
// for the whole session, even after a rename.
var Palette = []string{
	"#4E79A7", "#F28E2B", "#59A14F", "#E15759", "#76B7B2",
	"#EDC948", "#B07AA1", "#FF9DA7", "#9C755F", "#BAB0AC",
}

// ColorFor returns the palette color of a 1-based positional index.
func ColorFor(positionalIndex int) string {
	if positionalIndex < 1 {
		return Palette[0]
	}
	return Palette[(positionalIndex-1)%len(Palette)]
}

// Marker returns the confidence marker shown next to a name: "?" for low
// confidence, "~" for medium, nothing otherwise.
func Marker(b speaker.ConfidenceBand) string {
	switch b {
	case speaker.BandLow:
		return "?"
	case speaker.BandMedium:
		return "~"
	default:
		return ""
	}
}

// SpeakerLabel is one speaker as shown in a list or legend.
type SpeakerLabel struct {
	Tag           string  `json:"tag"`
	Name          string  `json:"name"`
	Marker        string  `json:"marker,omitempty"`
	Color         string  `json:"color"`
	Current       bool    `json:"current"`
	Animating     bool    `json:"animating"`
	TalkSeconds   float64 `json:"talk_seconds"`
	TalkPercent   float64 `json:"talk_percent"`
	SegmentCount  int     `json:"segment_count"`
	LastActiveSec float64 `json:"last_active_sec"`
}

// Display is the name with its marker appended.
func (l SpeakerLabel) Display() string {
	if l.Marker == "" {
		return l.Name
	}
	return l.Name + " " + l.Marker
}

// TimelineEntry is one retained segment with its speaker's label.
type TimelineEntry struct {
	Tag   string  `json:"tag"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Banner describes the health strip shown above the speaker list.
type Banner struct {
	Visible bool     `json:"visible"`
	Level   string   `json:"level"`
	Title   string   `json:"title"`
	Detail  string   `json:"detail,omitempty"`
	Actions []string `json:"actions,omitempty"`
}

// Banner levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Actions offered by banners.
const (
	ActionRetry            = "retry"
	ActionSkip             = "skip"
	ActionScheduleRecovery = "schedule_recovery"
	ActionCancelRecovery   = "cancel_recovery"
)

// View is the complete projection of one snapshot.
type View struct {
	Version        uint64                    `json:"version"`
	MeetingID      string                    `json:"meeting_id,omitempty"`
	Status         diarization.SessionStatus `json:"status"`
	Health         health.State              `json:"health"`
	Banner         Banner                    `json:"banner"`
	Warming        bool                      `json:"warming"`
	Speakers       []SpeakerLabel            `json:"speakers"`
	CurrentSpeaker *SpeakerLabel             `json:"current_speaker,omitempty"`
	Timeline       []TimelineEntry           `json:"timeline"`
	ProcessedSec   float64                   `json:"processed_sec"`
}

// Build projects snap.
func Build(snap session.Snapshot) View {
	v := View{
		Version:      snap.Version,
		MeetingID:    snap.MeetingID,
		Status:       snap.Status,
		Health:       snap.Health,
		Banner:       BannerFor(snap.Health, snap.HealthMessage),
		Warming:      snap.Live() && !snap.ColdStartComplete,
		ProcessedSec: snap.TotalAudioProcessedSeconds,
	}

	talk := make(map[string]float64, len(snap.Stats))
	counts := make(map[string]int, len(snap.Stats))
	last := make(map[string]float64, len(snap.Stats))
	var total float64
	for _, s := range snap.Stats {
		talk[s.SpeakerTag] = s.TotalDuration
		counts[s.SpeakerTag] = s.SegmentCount
		last[s.SpeakerTag] = s.LastActive
		total += s.TotalDuration
	}

	byTag := make(map[string]SpeakerLabel, len(snap.Identities))
	v.Speakers = make([]SpeakerLabel, 0, len(snap.Identities))
	for _, id := range snap.Identities {
		l := SpeakerLabel{
			Tag:           id.SpeakerTag,
			Name:          id.DisplayName,
			Marker:        Marker(id.Band()),
			Color:         ColorFor(id.PositionalIndex),
			Current:       id.SpeakerTag == snap.CurrentSpeaker,
			Animating:     snap.IsAnimating(id.SpeakerTag),
			TalkSeconds:   talk[id.SpeakerTag],
			SegmentCount:  counts[id.SpeakerTag],
			LastActiveSec: last[id.SpeakerTag],
		}
		if total > 0 {
			l.TalkPercent = 100 * l.TalkSeconds / total
		}
		byTag[l.Tag] = l
		v.Speakers = append(v.Speakers, l)
		if l.Current {
			cur := l
			v.CurrentSpeaker = &cur
		}
	}

	v.Timeline = make([]TimelineEntry, 0, len(snap.Segments))
	for _, seg := range snap.Segments {
		l, ok := byTag[seg.SpeakerTag]
		if !ok {
			l = SpeakerLabel{Name: seg.SpeakerTag, Color: ColorFor(0)}
		}
		v.Timeline = append(v.Timeline, TimelineEntry{
			Tag: seg.SpeakerTag, Name: l.Name, Color: l.Color, Start: seg.Start, End: seg.End,
		})
	}
	return v
}

// BannerFor returns the banner for a health state.
func BannerFor(s health.State, message string) Banner {
	switch s {
	case health.Failed:
		return Banner{
			Visible: true, Level: LevelError,
			Title:   "Speaker detection stopped working",
			Detail:  message,
			Actions: []string{ActionRetry, ActionScheduleRecovery, ActionSkip},
		}
	case health.Degraded:
		return Banner{
			Visible: true, Level: LevelWarning,
			Title:   "Speaker detection is degraded",
			Detail:  message,
			Actions: []string{ActionRetry, ActionScheduleRecovery, ActionSkip},
		}
	case health.RecoveryPending:
		return Banner{
			Visible: true, Level: LevelInfo,
			Title:   "Speakers will be identified after the meeting",
			Actions: []string{ActionCancelRecovery},
		}
	case health.Disabled:
		return Banner{Visible: true, Level: LevelInfo, Title: "Speaker detection is off"}
	case health.Initializing:
		return Banner{Visible: true, Level: LevelInfo, Title: "Starting speaker detection"}
	default:
		return Banner{}
	}
}
