package sse

import (
	"bufio"
	"io"
	"strings"
)

// MaxFrameSize bounds one line of an upstream stream.
const MaxFrameSize = 1 << 20

// Reader parses frames from an upstream event stream.
type Reader interface {
	// Next returns the next frame, or io.EOF when the stream ends.
	Next() (*Frame, error)
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

// NewReader reads frames from body.
func NewReader(body io.ReadCloser) Reader {
	s := bufio.NewScanner(body)
	s.Buffer(make([]byte, 0, 64*1024), MaxFrameSize)
	return &reader{scanner: s, body: body}
}

func (r *reader) Next() (*Frame, error) {
	var event Frame
	var hasData bool

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if hasData {
				return &event, nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseSSELine(line)
		switch field {
		case "data":
			if hasData {
				event.Data = append(append(event.Data, '\n'), value...)
			} else {
				event.Data = []byte(value)
				hasData = true
			}
		case "event":
			event.Event = value
		case "id":
			event.ID = value
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if hasData {
		return &event, nil
	}
	return nil, io.EOF
}

func (r *reader) Close() error {
	return r.body.Close()
}

func parseSSELine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}
