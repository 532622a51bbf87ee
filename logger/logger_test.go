package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: level, Format: FormatJSON}, "test", &buf)
	return l, &buf
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestJSONOutputCarriesFields(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.WithComponent("session").Info("session started", Fields(FieldMeetingID, "m1", FieldSessionID, "s1"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry[FieldComponent] != "session" {
		t.Errorf("expected component=session, got %v", entry[FieldComponent])
	}
	if entry[FieldMeetingID] != "m1" {
		t.Errorf("expected meeting_id=m1, got %v", entry[FieldMeetingID])
	}
	if entry["message"] != "session started" {
		t.Errorf("unexpected message %v", entry["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug/info to be filtered, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn message in output, got %q", buf.String())
	}
}

func TestWithError(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithError(errors.New("boom")).Error("failed")
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected error in output, got %q", buf.String())
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Error("nothing")
}

func TestWithSession(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		want      bool
	}{
		{"with session", "s1", true},
		{"meeting only", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, buf := newJSONLogger(t, "info")
			l.WithSession("m1", tc.sessionID).Info("event dropped")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatal(err)
			}
			if entry[FieldMeetingID] != "m1" {
				t.Errorf("expected meeting_id=m1, got %v", entry[FieldMeetingID])
			}
			if _, ok := entry[FieldSessionID]; ok != tc.want {
				t.Errorf("session_id present = %v, want %v", ok, tc.want)
			}
			if entry["service"] != "test" {
				t.Errorf("expected service field, got %v", entry["service"])
			}
		})
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	t.Cleanup(func() { SetGlobalLogger(nil) })
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestRegisterAndGet(t *testing.T) {
	t.Cleanup(Reset)
	l := NewDefault("custom-component")
	Register("my-component", l)

	if Get("my-component") != l {
		t.Error("expected Get to return the registered logger")
	}
	first := Get("ledger")
	if first == nil || Get("ledger") != first {
		t.Fatal("expected component loggers to be cached")
	}
	Init(Config{Level: "debug", Format: FormatJSON})
	if Get("ledger") == first || Get("my-component") == l {
		t.Error("expected Init to drop cached component loggers")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: "json"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	got := Fields("op", "save", "trailing")
	if len(got) != 1 || got["op"] != "save" {
		t.Errorf("unexpected fields %v", got)
	}
}
