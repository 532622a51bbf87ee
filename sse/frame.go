package sse

import (
	"bytes"
	"fmt"
	"io"
)

// Event names used on the diarlive streams.
const (
	EventConnected = "connected"
	EventSnapshot  = "snapshot"
	EventError     = "error"
)

// Frame is one event on the wire.
type Frame struct {
	Event string
	ID    string
	Data  []byte
}

// WriteTo writes the frame in text/event-stream format. Multi-line data
// is split into one data line per line.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if f.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", f.Event)
	}
	if f.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", f.ID)
	}
	for _, line := range bytes.Split(f.Data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}
