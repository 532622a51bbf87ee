package sidecar

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/httpclient"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/provider"
	"github.com/kbukum/diarlive/resilience"
	"github.com/kbukum/diarlive/version"
)

// ProviderName is the registered name for the sidecar engine.
const ProviderName = "sidecar"

// Engine implements diarization.Engine against an HTTP sidecar. Commands
// are plain POSTs; events arrive on a long-lived event stream opened by
// Listen.
type Engine struct {
	cfg    Config
	client *httpclient.Client
	log    *logger.Logger
	events chan diarization.Event

	mu        sync.Mutex
	meetingID string
	sessionID string
	// stopped is the last session a stop was sent for. A start for it that
	// completes afterwards does not make it current again.
	stopped   string
	connected bool
}

var _ diarization.Engine = (*Engine)(nil)

// New creates a sidecar engine. Call Listen to start receiving events.
func New(cfg Config, log *logger.Logger) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get(ProviderName)
	}
	l := log.WithComponent("engine." + ProviderName)
	bc := cfg.Breaker
	bc.Name = ProviderName
	bc.OnStateChange = func(name string, from, to resilience.BreakerState) {
		l.Warn("Engine breaker state changed", logger.Fields("from", from.String(), "to", to.String()))
	}
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Token:   cfg.Token,
		Headers: map[string]string{"User-Agent": version.UserAgent()},
		Breaker: &bc,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		client: client,
		log:    l,
		events: make(chan diarization.Event, cfg.EventBuffer),
	}, nil
}

// Factory returns a provider.Factory that builds sidecar engines from a
// generic config map. ConfigMap produces the map from a Config.
func Factory() provider.Factory[diarization.Engine] {
	return func(m map[string]any) (diarization.Engine, error) {
		cfg := Config{}
		if v, ok := m["base_url"].(string); ok {
			cfg.BaseURL = v
		}
		if v, ok := m["timeout"].(time.Duration); ok {
			cfg.Timeout = v
		}
		if v, ok := m["token"].(string); ok {
			cfg.Token = v
		}
		if v, ok := m["events_path"].(string); ok {
			cfg.EventsPath = v
		}
		if v, ok := m["reconnect_delay"].(time.Duration); ok {
			cfg.ReconnectDelay = v
		}
		if v, ok := m["event_buffer"].(int); ok {
			cfg.EventBuffer = v
		}
		if v, ok := m["breaker"].(resilience.BreakerConfig); ok {
			cfg.Breaker = v
		}
		var log *logger.Logger
		if v, ok := m["logger"].(*logger.Logger); ok {
			log = v
		}
		e, err := New(cfg, log)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// ConfigMap flattens cfg into the keys Factory reads.
func ConfigMap(cfg Config, log *logger.Logger) map[string]any {
	return map[string]any{
		"base_url":        cfg.BaseURL,
		"timeout":         cfg.Timeout,
		"token":           cfg.Token,
		"events_path":     cfg.EventsPath,
		"reconnect_delay": cfg.ReconnectDelay,
		"event_buffer":    cfg.EventBuffer,
		"breaker":         cfg.Breaker,
		"logger":          log,
	}
}

func (e *Engine) Name() string { return ProviderName }

// IsAvailable reports whether the sidecar answers its health check.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	if e.client.BreakerState() == resilience.BreakerOpen {
		return false
	}
	resp, err := e.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.StatusCode == http.StatusOK
}

// Connected reports whether the event stream is currently open.
func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// BreakerState exposes the control-call breaker position.
func (e *Engine) BreakerState() resilience.BreakerState { return e.client.BreakerState() }

func (e *Engine) Events() <-chan diarization.Event { return e.events }

func (e *Engine) Start(ctx context.Context, meetingID, sessionID string, opts diarization.Options) error {
	body := startRequest{MeetingID: meetingID, SessionID: sessionID, Options: opts}
	if err := e.command(ctx, diarization.CommandStart, body); err != nil {
		return err
	}
	e.mu.Lock()
	if e.stopped != sessionID {
		e.meetingID, e.sessionID = meetingID, sessionID
	}
	e.mu.Unlock()
	return nil
}

// Stop stops the addressed session. The engine's current session is only
// cleared when it is the one being stopped.
func (e *Engine) Stop(ctx context.Context, meetingID, sessionID string) error {
	e.mu.Lock()
	e.stopped = sessionID
	e.mu.Unlock()

	err := e.command(ctx, diarization.CommandStop, sessionRef{MeetingID: meetingID, SessionID: sessionID})

	e.mu.Lock()
	if e.meetingID == meetingID && e.sessionID == sessionID {
		e.meetingID, e.sessionID = "", ""
	}
	e.mu.Unlock()
	return err
}

func (e *Engine) Pause(ctx context.Context, meetingID, sessionID string) error {
	return e.command(ctx, diarization.CommandPause, sessionRef{MeetingID: meetingID, SessionID: sessionID})
}

func (e *Engine) Resume(ctx context.Context, meetingID, sessionID string) error {
	return e.command(ctx, diarization.CommandResume, sessionRef{MeetingID: meetingID, SessionID: sessionID})
}

// Listen keeps the event stream open until ctx is cancelled, reconnecting
// after ReconnectDelay whenever it drops. Decoded events are forwarded to
// Events.
func (e *Engine) Listen(ctx context.Context) {
	for {
		err := e.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		e.streamLost(err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.ReconnectDelay):
		}
	}
}

func (e *Engine) consume(ctx context.Context) error {
	stream, err := e.client.DoStream(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    e.cfg.EventsPath,
		Headers: map[string]string{"Accept": "text/event-stream", "Cache-Control": "no-cache"},
	})
	if err != nil {
		return err
	}
	defer stream.Close()
	if stream.SSE == nil {
		return httpclient.NewValidationError("event stream is not text/event-stream")
	}
	e.setConnected(true)
	e.log.Info("Engine event stream connected")

	for {
		frame, err := stream.SSE.Next()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		var ev diarization.Event
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			e.log.WithError(err).Warn("Dropping undecodable engine event", logger.Fields("event", frame.Event))
			continue
		}
		if ev.Kind == "" && frame.Event != "" {
			ev.Kind = diarization.EventKind(frame.Event)
		}
		if ev.Kind == diarization.KindCommandResult {
			e.log.Warn("Dropping command result sent by the engine", logger.Fields("meeting_id", ev.MeetingID, "session_id", ev.SessionID))
			continue
		}
		select {
		case e.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// streamLost marks the stream down and, while a session is running, tells
// the controller the engine is degraded.
func (e *Engine) streamLost(err error) {
	e.setConnected(false)
	e.log.WithError(err).Warn("Engine event stream lost", logger.Fields("reconnect_in", e.cfg.ReconnectDelay.String()))

	cur := e.current()
	if cur.MeetingID == "" {
		return
	}
	ev := diarization.NewHealthEvent(cur.MeetingID, cur.SessionID, diarization.HealthSignal{
		Status:  diarization.EngineDegraded,
		Message: "event stream disconnected",
	})
	select {
	case e.events <- ev:
	default:
		e.log.Warn("Event buffer full, dropping stream-loss signal")
	}
}

func (e *Engine) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *Engine) current() sessionRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sessionRef{MeetingID: e.meetingID, SessionID: e.sessionID}
}

func (e *Engine) command(ctx context.Context, cmd diarization.Command, body any) error {
	_, err := e.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/sessions/" + string(cmd),
		Body:   body,
	})
	if err == nil {
		return nil
	}
	var httpErr *httpclient.Error
	switch {
	case stderrors.Is(err, resilience.ErrBreakerOpen):
		return errors.EngineUnavailable(ProviderName).WithCause(err)
	case httpclient.IsTimeout(err):
		return errors.Timeout("engine." + string(cmd)).WithCause(err)
	case httpclient.IsUnavailable(err) && stderrors.As(err, &httpErr):
		return errors.EngineUnavailable(ProviderName).WithDetail("reason", httpErr.Reason())
	}
	return errors.ExternalServiceError(ProviderName, err).WithDetail("command", string(cmd))
}

// --- wire types ---

type sessionRef struct {
	MeetingID string `json:"meeting_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type startRequest struct {
	MeetingID string              `json:"meeting_id"`
	SessionID string              `json:"session_id"`
	Options   diarization.Options `json:"options"`
}
