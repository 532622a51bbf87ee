package diarization

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/kbukum/diarlive/errors"
)

func TestDefaultOptionsAreValid(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("default options should validate, got %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"threshold at upper bound", Options{SimilarityThreshold: 1, MaxSpeakers: 1}, false},
		{"zero threshold", Options{SimilarityThreshold: 0, MaxSpeakers: 1}, true},
		{"threshold above one", Options{SimilarityThreshold: 1.5, MaxSpeakers: 1}, true},
		{"zero max speakers", Options{SimilarityThreshold: 0.3}, true},
		{"range mode", Options{SimilarityThreshold: 0.3, MinSpeakers: 2, MaxSpeakers: 4, SpeakerCountMode: SpeakerCountRange}, false},
		{"min above max", Options{SimilarityThreshold: 0.3, MinSpeakers: 5, MaxSpeakers: 4}, true},
		{"unknown mode", Options{SimilarityThreshold: 0.3, MaxSpeakers: 4, SpeakerCountMode: "exact"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		ev      Event
		wantErr bool
	}{
		{"segment", NewSegmentEvent("m1", "s1", Segment{SpeakerTag: "S0", End: 2}), false},
		{"status", NewStatusEvent("m1", "", StatusActive, ""), false},
		{"command", NewCommandResultEvent("m1", "s1", CommandPause, fmt.Errorf("boom")), false},
		{"missing meeting", NewProgressEvent("", "s1", 3), true},
		{"missing payload", Event{Kind: KindHealth, MeetingID: "m1"}, true},
		{"unknown kind", Event{Kind: "bogus", MeetingID: "m1"}, true},
		{"nan start", NewSegmentEvent("m1", "s1", Segment{SpeakerTag: "S0", Start: math.NaN(), End: 2}), true},
		{"infinite end", NewSegmentEvent("m1", "s1", Segment{SpeakerTag: "S0", End: math.Inf(1)}), true},
		{"nan confidence", NewSegmentEvent("m1", "s1", Segment{SpeakerTag: "S0", End: 1, Confidence: math.NaN()}), true},
		{"infinite change", NewSpeakerChangeEvent("m1", "s1", SpeakerChange{To: "S1", At: math.Inf(-1)}), true},
		{"nan progress", NewProgressEvent("m1", "s1", math.NaN()), true},
		{"nan identification", NewIdentificationEvent("m1", "s1", Identification{SpeakerTag: "S0", Name: "Ada", Confidence: math.NaN()}), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.ev.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestEventJSONShape(t *testing.T) {
	ev := NewHealthEvent("m1", "s1", HealthSignal{Status: EngineFailed, Message: "embedding error", NumSpeakers: 2})
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if generic["kind"] != "health" {
		t.Errorf("expected kind=health, got %v", generic["kind"])
	}
	if _, ok := generic["segment"]; ok {
		t.Error("absent payloads must be omitted")
	}
	health, _ := generic["health"].(map[string]any)
	if health["message"] != "embedding error" {
		t.Errorf("unexpected health payload %v", health)
	}
}

func TestCommandResultFailed(t *testing.T) {
	ok := NewCommandResultEvent("m1", "s1", CommandStart, nil)
	if ok.Command.Failed() {
		t.Error("nil error should not be reported as failure")
	}
	bad := NewCommandResultEvent("m1", "s1", CommandStart, fmt.Errorf("refused"))
	if !bad.Command.Failed() || bad.Command.Error != "refused" {
		t.Errorf("unexpected command result %+v", bad.Command)
	}
}

func TestSegmentDuration(t *testing.T) {
	if d := (Segment{Start: 1.5, End: 4}).Duration(); d != 2.5 {
		t.Errorf("expected 2.5, got %v", d)
	}
}
