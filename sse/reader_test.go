package sse

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func newBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestReaderFrames(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Frame
	}{
		{"single", "data: hello world\n\n", []Frame{{Data: []byte("hello world")}}},
		{"multiple", "data: first\n\ndata: second\n\n", []Frame{{Data: []byte("first")}, {Data: []byte("second")}}},
		{"typed with id", "event: segment\nid: 42\ndata: {}\n\n", []Frame{{Event: "segment", ID: "42", Data: []byte("{}")}}},
		{"multi-line data", "data: line1\ndata: line2\n\n", []Frame{{Data: []byte("line1\nline2")}}},
		{"comments skipped", ": keepalive\n\ndata: hello\n\n", []Frame{{Data: []byte("hello")}}},
		{"no space after colon", "data:no-space\n\n", []Frame{{Data: []byte("no-space")}}},
		{"no trailing newline", "data: trailing", []Frame{{Data: []byte("trailing")}}},
		{"empty", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(newBody(tc.input))
			defer r.Close()
			for i, want := range tc.want {
				got, err := r.Next()
				if err != nil {
					t.Fatalf("frame %d: unexpected error %v", i, err)
				}
				if got.Event != want.Event || got.ID != want.ID || !bytes.Equal(got.Data, want.Data) {
					t.Errorf("frame %d: got %+v, want %+v", i, got, want)
				}
			}
			if _, err := r.Next(); err != io.EOF {
				t.Errorf("expected io.EOF, got %v", err)
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	in := Frame{Event: EventSnapshot, ID: "7", Data: []byte("{\n\"a\": 1\n}")}
	var buf bytes.Buffer
	if _, err := in.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	out, err := NewReader(io.NopCloser(&buf)).Next()
	if err != nil {
		t.Fatal(err)
	}
	if out.Event != in.Event || out.ID != in.ID || !bytes.Equal(out.Data, in.Data) {
		t.Errorf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestParseSSELine(t *testing.T) {
	tests := []struct {
		line  string
		field string
		value string
	}{
		{"data: hello", "data", "hello"},
		{"data:hello", "data", "hello"},
		{"event: msg", "event", "msg"},
		{"retry: 3000", "retry", "3000"},
		{"fieldonly", "fieldonly", ""},
	}
	for _, tt := range tests {
		f, v := parseSSELine(tt.line)
		if f != tt.field || v != tt.value {
			t.Errorf("parseSSELine(%q) = (%q, %q), want (%q, %q)", tt.line, f, v, tt.field, tt.value)
		}
	}
}
