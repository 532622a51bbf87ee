package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/diarlive/resilience"
)

func newClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"base url", Config{BaseURL: "http://sidecar:8388"}, false},
		{"relative base url", Config{BaseURL: "sidecar"}, true},
		{"bad retry", Config{Retry: &resilience.RetryConfig{Jitter: 2}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDo_SendsJSONHeadersAndToken(t *testing.T) {
	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL + "/", Token: "secret", Headers: map[string]string{"User-Agent": "diarlive/test"}})
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/sessions/start",
		Query:  map[string]string{"v": "1"},
		Body:   map[string]string{"meeting_id": "m1"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}
	if got.URL.Path != "/sessions/start" || got.URL.Query().Get("v") != "1" {
		t.Errorf("unexpected url %s", got.URL)
	}
	if got.Header.Get("Authorization") != "Bearer secret" || got.Header.Get("User-Agent") != "diarlive/test" {
		t.Errorf("unexpected headers %v", got.Header)
	}
	if got.Header.Get("Content-Type") != "application/json" || body != `{"meeting_id":"m1"}` {
		t.Errorf("unexpected body %q (%s)", body, got.Header.Get("Content-Type"))
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, ErrCodeAuth, false},
		{http.StatusNotFound, ErrCodeNotFound, false},
		{http.StatusTooManyRequests, ErrCodeRateLimit, true},
		{http.StatusBadRequest, ErrCodeValidation, false},
		{http.StatusServiceUnavailable, ErrCodeUnavailable, true},
		{http.StatusInternalServerError, ErrCodeServer, true},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			e := ClassifyStatusCode(tc.status, nil)
			if e == nil || e.Code != tc.code || e.Retryable != tc.retryable {
				t.Errorf("ClassifyStatusCode(%d) = %+v", tc.status, e)
			}
		})
	}
	if ClassifyStatusCode(http.StatusNoContent, nil) != nil {
		t.Error("expected nil for 2xx")
	}
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"model not loaded"}`, "model not loaded"},
		{" warming up \n", "warming up"},
		{"", "HTTP 503"},
	}
	for _, tc := range tests {
		if got := ClassifyStatusCode(http.StatusServiceUnavailable, []byte(tc.body)).Reason(); got != tc.want {
			t.Errorf("Reason(%q) = %q, want %q", tc.body, got, tc.want)
		}
	}
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff, retry.MaxBackoff = time.Millisecond, 5*time.Millisecond
	c := newClient(t, Config{BaseURL: srv.URL, Retry: retry})

	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health"}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", hits.Load())
	}

	hits.Store(-100)
	srvBad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srvBad.Close()
	c = newClient(t, Config{BaseURL: srvBad.URL, Retry: retry})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err == nil {
		t.Fatal("expected 400 to fail")
	}
	if hits.Load() != -99 {
		t.Errorf("expected a 400 not to be retried, got %d extra calls", hits.Load()+100)
	}
}

func TestDo_BreakerOpensOnServerErrorsOnly(t *testing.T) {
	status := atomic.Int32{}
	status.Store(http.StatusBadRequest)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL, Breaker: &resilience.BreakerConfig{MaxFailures: 2, OpenFor: time.Hour}})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = c.Do(ctx, Request{Method: http.MethodPost, Path: "/"})
	}
	if c.BreakerState() != resilience.BreakerClosed {
		t.Fatalf("expected 4xx answers to keep the breaker closed, got %s", c.BreakerState())
	}

	status.Store(http.StatusInternalServerError)
	for i := 0; i < 2; i++ {
		_, _ = c.Do(ctx, Request{Method: http.MethodPost, Path: "/"})
	}
	before := hits.Load()
	_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/"})
	if !stderrors.Is(err, resilience.ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if hits.Load() != before {
		t.Error("expected the open breaker to skip the call")
	}
}

func TestDo_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := newClient(t, Config{BaseURL: srv.URL})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsConnection(err) || !IsRetryable(err) {
		t.Errorf("expected retryable connection error, got %v", err)
	}
}

func TestDo_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	c := newClient(t, Config{BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"}); !IsTimeout(err) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestDoStream_SSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected Accept header, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: segment\ndata: one\n\ndata: two\n\n")
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL, Timeout: time.Millisecond})
	stream, err := c.DoStream(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "/events",
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		t.Fatalf("DoStream: %v", err)
	}
	defer stream.Close()
	if stream.SSE == nil {
		t.Fatal("expected an SSE reader")
	}
	first, err := stream.SSE.Next()
	if err != nil {
		t.Fatal(err)
	}
	if first.Event != "segment" || string(first.Data) != "one" {
		t.Errorf("unexpected first frame %+v", first)
	}
	second, err := stream.SSE.Next()
	if err != nil || string(second.Data) != "two" {
		t.Errorf("unexpected second frame %+v (%v)", second, err)
	}
}

func TestDoStream_Raw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, "{}\n")
	}))
	defer srv.Close()

	stream, err := newClient(t, Config{BaseURL: srv.URL}).DoStream(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	if stream.SSE != nil || stream.Body == nil {
		t.Fatal("expected a raw body for non-SSE content")
	}
	b, _ := io.ReadAll(stream.Body)
	if strings.TrimSpace(string(b)) != "{}" {
		t.Errorf("unexpected body %q", b)
	}
}

func TestDoStream_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no session", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newClient(t, Config{BaseURL: srv.URL}).DoStream(context.Background(), Request{Method: http.MethodGet, Path: "/events"})
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
