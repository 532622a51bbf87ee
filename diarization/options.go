package diarization

import (
	"github.com/kbukum/diarlive/validation"
)

// SpeakerCountMode tells the engine how to treat the speaker bounds.
type SpeakerCountMode string

const (
	SpeakerCountAuto  SpeakerCountMode = "auto"
	SpeakerCountFixed SpeakerCountMode = "fixed"
	SpeakerCountRange SpeakerCountMode = "range"
)

const (
	DefaultSimilarityThreshold = 0.3
	DefaultMaxSpeakers         = 10
)

// Options are the per-session engine parameters.
type Options struct {
	SimilarityThreshold float64          `json:"similarity_threshold" yaml:"similarity_threshold" validate:"gt=0,lte=1"`
	MaxSpeakers         int              `json:"max_speakers" yaml:"max_speakers" validate:"gte=1"`
	MinSpeakers         int              `json:"min_speakers,omitempty" yaml:"min_speakers" validate:"gte=0,ltefield=MaxSpeakers"`
	SpeakerCountMode    SpeakerCountMode `json:"speaker_count_mode,omitempty" yaml:"speaker_count_mode" validate:"omitempty,oneof=auto fixed range"`
}

// DefaultOptions returns the options used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxSpeakers:         DefaultMaxSpeakers,
		SpeakerCountMode:    SpeakerCountAuto,
	}
}

// Validate checks the option bounds.
func (o Options) Validate() error {
	return validation.Validate(o)
}
