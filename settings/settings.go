// Package settings holds the per-meeting diarization settings read once
// when a session starts, and the stores that persist them.
package settings

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/validation"
)

// DefaultNameConfidenceThreshold is the minimum confidence an engine name
// must carry before it replaces a positional name.
const DefaultNameConfidenceThreshold = 0.5

// Settings configures diarization for one meeting.
type Settings struct {
	MeetingID               string                       `json:"meeting_id" yaml:"meeting_id" gorm:"primaryKey;size:128"`
	Enabled                 bool                         `json:"enabled" yaml:"enabled"`
	SimilarityThreshold     float64                      `json:"similarity_threshold" yaml:"similarity_threshold" validate:"gt=0,lte=1"`
	SpeakerCountMode        diarization.SpeakerCountMode `json:"speaker_count_mode" yaml:"speaker_count_mode" gorm:"size:16" validate:"oneof=auto fixed range"`
	MinSpeakers             int                          `json:"min_speakers" yaml:"min_speakers" validate:"gte=0,ltefield=MaxSpeakers"`
	MaxSpeakers             int                          `json:"max_speakers" yaml:"max_speakers" validate:"gte=1"`
	NameExtractionEnabled   bool                         `json:"name_extraction_enabled" yaml:"name_extraction_enabled"`
	NameConfidenceThreshold float64                      `json:"name_confidence_threshold" yaml:"name_confidence_threshold" validate:"gte=0,lte=1"`
	UpdatedAt               time.Time                    `json:"updated_at" yaml:"-" gorm:"autoUpdateTime"`
}

// TableName implements gorm's tabler.
func (Settings) TableName() string { return "diarization_settings" }

// Default returns the settings used for meetings without a stored row.
func Default(meetingID string) Settings {
	opts := diarization.DefaultOptions()
	return Settings{
		MeetingID:               meetingID,
		Enabled:                 true,
		SimilarityThreshold:     opts.SimilarityThreshold,
		SpeakerCountMode:        opts.SpeakerCountMode,
		MaxSpeakers:             opts.MaxSpeakers,
		NameExtractionEnabled:   true,
		NameConfidenceThreshold: DefaultNameConfidenceThreshold,
	}
}

// Validate checks the bounds of every field.
func (s Settings) Validate() error {
	if err := validation.Required("meeting_id", s.MeetingID); err != nil {
		return err
	}
	return validation.Validate(s)
}

// Options extracts the engine parameters.
func (s Settings) Options() diarization.Options {
	return diarization.Options{
		SimilarityThreshold: s.SimilarityThreshold,
		MaxSpeakers:         s.MaxSpeakers,
		MinSpeakers:         s.MinSpeakers,
		SpeakerCountMode:    s.SpeakerCountMode,
	}
}

// Naming extracts the name extraction policy.
func (s Settings) Naming() Naming {
	return Naming{Enabled: s.NameExtractionEnabled, ConfidenceThreshold: s.NameConfidenceThreshold}
}

// Naming decides which engine identifications reach the speaker registry.
type Naming struct {
	Enabled             bool
	ConfidenceThreshold float64
}

// Accepts reports whether an identification with confidence c is applied.
func (n Naming) Accepts(c float64) bool {
	return n.Enabled && c >= n.ConfidenceThreshold
}

// Store reads and writes per-meeting settings. Get returns Default for
// meetings that have nothing stored.
type Store interface {
	Get(ctx context.Context, meetingID string) (Settings, error)
	Put(ctx context.Context, s Settings) error
}

// Static is an in-memory Store.
type Static struct {
	mu       sync.RWMutex
	meetings map[string]Settings
}

// NewStatic creates a Static store seeded with the given settings.
func NewStatic(seed ...Settings) *Static {
	s := &Static{meetings: make(map[string]Settings, len(seed))}
	for _, m := range seed {
		s.meetings[m.MeetingID] = m
	}
	return s
}

func (s *Static) Get(ctx context.Context, meetingID string) (Settings, error) {
	if err := validation.Required("meeting_id", meetingID); err != nil {
		return Settings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.meetings[meetingID]; ok {
		return m, nil
	}
	return Default(meetingID), nil
}

func (s *Static) Put(ctx context.Context, m Settings) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.MeetingID] = m
	return nil
}
