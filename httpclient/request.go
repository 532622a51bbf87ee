package httpclient

import (
	"io"
	"net/http"

	"github.com/kbukum/diarlive/sse"
)

// Request describes an outbound request.
type Request struct {
	Method string
	// Path is joined to the client's BaseURL unless it is a full URL.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body accepts io.Reader, []byte, string, or any value to JSON-encode.
	Body any
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StreamResponse is an open streaming response. Exactly one of SSE and
// Body is set. Close it when done.
type StreamResponse struct {
	StatusCode int
	Headers    map[string]string
	SSE        sse.Reader
	Body       io.ReadCloser

	raw *http.Response
}

// Close releases the underlying connection.
func (r *StreamResponse) Close() error {
	switch {
	case r.SSE != nil:
		return r.SSE.Close()
	case r.Body != nil:
		return r.Body.Close()
	case r.raw != nil && r.raw.Body != nil:
		return r.raw.Body.Close()
	}
	return nil
}
