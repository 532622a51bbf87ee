package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/diarization/enginetest"
	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/health"
	"github.com/kbukum/diarlive/ledger"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/recovery"
	"github.com/kbukum/diarlive/settings"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	ctrl   *Controller
	engine *enginetest.Engine
	clock  *fakeClock
	ctx    context.Context
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		engine: enginetest.New(64),
		clock:  &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		ctx:    context.Background(),
	}
	ids := 0
	base := []Option{
		WithLogger(logger.Nop()),
		WithClock(h.clock.Now),
		WithDispatcher(func(fn func()) { fn() }),
		WithIDGenerator(func() string { ids++; return fmt.Sprintf("session-%d", ids) }),
	}
	h.ctrl = New(h.engine, Config{}, append(base, opts...)...)
	return h
}

// start begins a session for meetingID and lets the engine report active.
func (h *harness) start(t *testing.T, meetingID string) {
	t.Helper()
	if err := h.ctrl.Start(h.ctx, meetingID, diarization.DefaultOptions()); err != nil {
		t.Fatalf("Start(%s): %v", meetingID, err)
	}
	h.ctrl.Drain(h.ctx)
	h.emit(h.engine.Current().Status(diarization.StatusActive))
}

func (h *harness) emit(evs ...diarization.Event) {
	for _, ev := range evs {
		h.ctrl.Process(h.ctx, ev)
	}
}

func assertStatus(t *testing.T, c *Controller, want diarization.SessionStatus) {
	t.Helper()
	if got := c.Snapshot().Status; got != want {
		t.Fatalf("expected status %s, got %s", want, got)
	}
}

func assertHealth(t *testing.T, c *Controller, want health.State) {
	t.Helper()
	if got := c.Snapshot().Health; got != want {
		t.Fatalf("expected health %s, got %s", want, got)
	}
}

func TestScenarioStartActiveSegment(t *testing.T) {
	h := newHarness(t)
	opts := diarization.Options{SimilarityThreshold: 0.3, MaxSpeakers: 10}
	if err := h.ctrl.Start(h.ctx, "m1", opts); err != nil {
		t.Fatal(err)
	}
	assertStatus(t, h.ctrl, diarization.StatusInitializing)
	assertHealth(t, h.ctrl, health.Initializing)

	a := h.engine.Current()
	h.emit(a.Status(diarization.StatusActive), a.Segment("S0", 0, 2))

	snap := h.ctrl.Snapshot()
	if snap.CurrentSpeaker != "S0" {
		t.Errorf("expected current speaker S0, got %q", snap.CurrentSpeaker)
	}
	if snap.NumSpeakers != 1 {
		t.Errorf("expected 1 speaker, got %d", snap.NumSpeakers)
	}
	if snap.Health != health.Active {
		t.Errorf("expected health active, got %s", snap.Health)
	}
	if !snap.ColdStartComplete || snap.TotalAudioProcessedSeconds != 2 {
		t.Errorf("unexpected cold start %v / processed %v", snap.ColdStartComplete, snap.TotalAudioProcessedSeconds)
	}
	starts := h.engine.CallsOf(diarization.CommandStart)
	if len(starts) != 1 || starts[0].MeetingID != "m1" || starts[0].Options != opts {
		t.Errorf("unexpected engine start calls %+v", starts)
	}
}

func TestScenarioSingleChangeEvent(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	a := h.engine.Current()
	h.emit(a.Segment("S0", 0, 2), a.Segment("S1", 2, 4))

	changes := h.ctrl.Snapshot().ChangeEvents
	want := []ledger.ChangeEvent{{From: "S0", To: "S1", At: 2}}
	if len(changes) != 1 || changes[0] != want[0] {
		t.Fatalf("expected %v, got %v", want, changes)
	}
}

func TestScenarioFailedThenRetry(t *testing.T) {
	h := newHarness(t)
	opts := diarization.Options{SimilarityThreshold: 0.4, MaxSpeakers: 3}
	if err := h.ctrl.Start(h.ctx, "m1", opts); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Drain(h.ctx)
	a := h.engine.Current()
	h.emit(a.Status(diarization.StatusActive), a.Segment("S0", 0, 2))
	h.emit(a.Health(diarization.EngineFailed, "embedding error", 1))

	assertHealth(t, h.ctrl, health.Failed)
	if msg := h.ctrl.Snapshot().HealthMessage; msg != "embedding error" {
		t.Errorf("expected failure message, got %q", msg)
	}

	if err := h.ctrl.Retry(h.ctx); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	assertStatus(t, h.ctrl, diarization.StatusInitializing)
	assertHealth(t, h.ctrl, health.Initializing)

	starts := h.engine.CallsOf(diarization.CommandStart)
	if len(starts) != 2 {
		t.Fatalf("expected start to be re-issued, got %d calls", len(starts))
	}
	if starts[1].MeetingID != "m1" || starts[1].Options != opts {
		t.Errorf("retry must reuse meeting and options, got %+v", starts[1])
	}
	if starts[1].SessionID == starts[0].SessionID {
		t.Error("retry must use a new session id")
	}

	h.emit(a.Segment("S0", 2, 4))
	if n := h.ctrl.Snapshot().TotalSegments; n != 0 {
		t.Errorf("events from the failed session must be fenced, ledger has %d", n)
	}
}

func TestScenarioIdentificationAnimation(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	a := h.engine.Current()
	h.emit(a.Segment("S0", 0, 2))

	h.emit(a.Identify("S0", "Alice", 0.9))
	snap := h.ctrl.Snapshot()
	id, _ := snap.Identity("S0")
	if id.DisplayName != "Alice" || !snap.IsAnimating("S0") {
		t.Fatalf("expected Alice animating, got %+v animating=%v", id, snap.Animating)
	}

	h.clock.Advance(600 * time.Millisecond)
	h.ctrl.Tick(h.ctx)
	if h.ctrl.Snapshot().IsAnimating("S0") {
		t.Fatal("animation should expire after its window")
	}

	h.emit(a.Identify("S0", "Alice", 0.95))
	snap = h.ctrl.Snapshot()
	id, _ = snap.Identity("S0")
	if id.DisplayName != "Alice" || id.Confidence != 0.95 {
		t.Errorf("unexpected identity %+v", id)
	}
	if snap.IsAnimating("S0") {
		t.Error("confidence-only update must not animate")
	}
}

func TestStartErrors(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")

	err := h.ctrl.Start(h.ctx, "m2", diarization.DefaultOptions())
	if !errors.HasCode(err, errors.ErrCodeAlreadyActive) {
		t.Fatalf("expected ALREADY_ACTIVE, got %v", err)
	}
	if err := h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions()); err != nil {
		t.Fatalf("same meeting start should be a no-op, got %v", err)
	}
	if n := len(h.engine.CallsOf(diarization.CommandStart)); n != 1 {
		t.Errorf("expected a single engine start, got %d", n)
	}

	bad := diarization.DefaultOptions()
	bad.MaxSpeakers = 0
	if err := newHarness(t).ctrl.Start(h.ctx, "m1", bad); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for bad options, got %v", err)
	}
	if err := newHarness(t).ctrl.Start(h.ctx, "", diarization.DefaultOptions()); err == nil {
		t.Error("expected empty meeting id to be rejected")
	}
}

func TestStartEngineUnavailable(t *testing.T) {
	h := newHarness(t)
	h.engine.SetAvailable(false)

	err := h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions())
	if !errors.HasCode(err, errors.ErrCodeEngineUnavailable) {
		t.Fatalf("expected ENGINE_UNAVAILABLE, got %v", err)
	}
	assertStatus(t, h.ctrl, diarization.StatusIdle)
	if len(h.engine.Calls()) != 0 {
		t.Error("no engine command should be issued")
	}
}

func TestFencing(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	first := h.engine.Current()
	h.emit(first.Segment("S0", 0, 2))

	tests := []struct {
		name string
		ev   diarization.Event
	}{
		{"other meeting", enginetest.Addressed{MeetingID: "m9", SessionID: first.SessionID}.Segment("S1", 2, 3)},
		{"other session", enginetest.Addressed{MeetingID: "m1", SessionID: "stale"}.Segment("S1", 2, 3)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := h.ctrl.Snapshot()
			h.emit(tc.ev)
			after := h.ctrl.Snapshot()
			if after.TotalSegments != before.TotalSegments || after.Version != before.Version {
				t.Error("fenced event must not change state")
			}
			if after.Counters.EventsFenced != before.Counters.EventsFenced+1 {
				t.Error("fenced event must be counted")
			}
		})
	}

	// start(A) → stop → start(A): late events of the first A are dropped.
	_ = h.ctrl.Stop(h.ctx)
	h.emit(first.Segment("S0", 2, 4))
	h.start(t, "m1")
	h.emit(first.Segment("S0", 4, 6))
	if n := h.ctrl.Snapshot().TotalSegments; n != 0 {
		t.Errorf("stale session events leaked into the new session: %d segments", n)
	}
	h.emit(h.engine.Current().Segment("S0", 0, 1))
	if n := h.ctrl.Snapshot().TotalSegments; n != 1 {
		t.Errorf("expected the new session to accept its own events, got %d", n)
	}
}

func TestEventsWithoutSessionIDUseMeetingFence(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	h.emit(enginetest.Addressed{MeetingID: "m1"}.Segment("S0", 0, 1))
	if n := h.ctrl.Snapshot().TotalSegments; n != 1 {
		t.Errorf("expected meeting-only event to be accepted, got %d", n)
	}
}

func TestIdempotentLifecycle(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")

	_ = h.ctrl.Pause(h.ctx)
	_ = h.ctrl.Pause(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusPaused)
	if n := len(h.engine.CallsOf(diarization.CommandPause)); n != 1 {
		t.Errorf("expected one engine pause, got %d", n)
	}

	_ = h.ctrl.Resume(h.ctx)
	_ = h.ctrl.Resume(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusActive)
	if n := len(h.engine.CallsOf(diarization.CommandResume)); n != 1 {
		t.Errorf("expected one engine resume, got %d", n)
	}

	_ = h.ctrl.Skip(h.ctx)
	v := h.ctrl.Snapshot().Version
	_ = h.ctrl.Skip(h.ctx)
	if h.ctrl.Snapshot().Version != v {
		t.Error("second skip must be a no-op")
	}
	assertHealth(t, h.ctrl, health.Disabled)
	assertStatus(t, h.ctrl, diarization.StatusIdle)

	_ = h.ctrl.Stop(h.ctx)
	_ = h.ctrl.Stop(h.ctx)
	if n := len(h.engine.CallsOf(diarization.CommandStop)); n != 1 {
		t.Errorf("expected one engine stop, got %d", n)
	}
}

func TestSlowStopAddressesItsOwnSession(t *testing.T) {
	var held []func()
	hold := false
	h := newHarness(t, WithDispatcher(func(fn func()) {
		if hold {
			held = append(held, fn)
			return
		}
		fn()
	}))
	h.start(t, "m1")
	_, firstSession := h.engine.Session()

	hold = true
	_ = h.ctrl.Stop(h.ctx)
	hold = false
	h.start(t, "m2")
	for _, fn := range held {
		fn()
	}
	h.ctrl.Drain(h.ctx)

	stops := h.engine.CallsOf(diarization.CommandStop)
	if len(stops) != 1 || stops[0].MeetingID != "m1" || stops[0].SessionID != firstSession {
		t.Fatalf("expected the late stop to address m1/%s, got %+v", firstSession, stops)
	}
	if m, sid := h.engine.Session(); m != "m2" || sid == firstSession {
		t.Fatalf("late stop cleared the new session, engine has %s/%s", m, sid)
	}
	assertStatus(t, h.ctrl, diarization.StatusActive)

	_ = h.ctrl.Pause(h.ctx)
	pauses := h.engine.CallsOf(diarization.CommandPause)
	if len(pauses) != 1 || pauses[0].MeetingID != "m2" || pauses[0].SessionID != h.ctrl.Snapshot().SessionID {
		t.Errorf("expected pause addressed to the live session, got %+v", pauses)
	}
}

func TestPauseResumeOnlyFromValidStates(t *testing.T) {
	h := newHarness(t)
	_ = h.ctrl.Pause(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusIdle)

	if err := h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	_ = h.ctrl.Pause(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusInitializing)
	_ = h.ctrl.Resume(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusInitializing)
}

func TestOptimisticTransitionsAreSynchronous(t *testing.T) {
	h := newHarness(t)
	var dispatched []func()
	h.ctrl.dispatch = func(fn func()) { dispatched = append(dispatched, fn) }

	if err := h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	assertStatus(t, h.ctrl, diarization.StatusInitializing)
	if len(h.engine.Calls()) != 0 {
		t.Fatal("engine start must not run before dispatch")
	}

	_ = h.ctrl.Stop(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusIdle)
	if len(dispatched) != 2 {
		t.Errorf("expected start and stop to be dispatched, got %d", len(dispatched))
	}
}

func TestReconcileFailedCommands(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")

	h.engine.FailNext(diarization.CommandPause, fmt.Errorf("device busy"))
	_ = h.ctrl.Pause(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusPaused)
	h.ctrl.Drain(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusActive)
	h.engine.FailNext(diarization.CommandPause, nil)

	_ = h.ctrl.Pause(h.ctx)
	h.ctrl.Drain(h.ctx)
	h.engine.FailNext(diarization.CommandResume, fmt.Errorf("device busy"))
	_ = h.ctrl.Resume(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusActive)
	h.ctrl.Drain(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusPaused)
}

func TestExternalCommandResultIgnored(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	_ = h.ctrl.Pause(h.ctx)
	h.ctrl.Drain(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusPaused)

	a := h.engine.Current()
	forged := diarization.NewCommandResultEvent(a.MeetingID, a.SessionID, diarization.CommandPause, fmt.Errorf("forged"))
	if err := h.ctrl.Submit(h.ctx, forged); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected Submit to refuse a command result, got %v", err)
	}
	if n := h.ctrl.Drain(h.ctx); n != 0 {
		t.Errorf("expected nothing queued, drained %d", n)
	}

	before := h.ctrl.Snapshot().Counters.EventsDropped
	h.emit(forged)
	assertStatus(t, h.ctrl, diarization.StatusPaused)
	if got := h.ctrl.Snapshot().Counters.EventsDropped; got != before+1 {
		t.Errorf("expected the command result to be dropped, dropped %d -> %d", before, got)
	}
}

func TestStartFailureMovesToError(t *testing.T) {
	h := newHarness(t)
	h.engine.FailNext(diarization.CommandStart, fmt.Errorf("model not loaded"))
	if err := h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Drain(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusError)
	assertHealth(t, h.ctrl, health.Failed)

	_ = h.ctrl.Stop(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusIdle)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(h *harness)
		status diarization.SessionStatus
		want   diarization.SessionStatus
	}{
		{"initializing to error", func(h *harness) {
			_ = h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions())
		}, diarization.StatusError, diarization.StatusError},
		{"active to error", func(h *harness) {}, diarization.StatusError, diarization.StatusError},
		{"paused ignores error", func(h *harness) { _ = h.ctrl.Pause(h.ctx) }, diarization.StatusError, diarization.StatusPaused},
		{"engine idle while active", func(h *harness) {}, diarization.StatusIdle, diarization.StatusError},
		{"engine paused is ignored", func(h *harness) {}, diarization.StatusPaused, diarization.StatusActive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.name != "initializing to error" {
				h.start(t, "m1")
			}
			tc.setup(h)
			h.ctrl.Drain(h.ctx)
			h.emit(h.engine.Current().Status(tc.status))
			assertStatus(t, h.ctrl, tc.want)
		})
	}
}

func TestInitTimeout(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(29 * time.Second)
	h.ctrl.Tick(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusInitializing)

	h.clock.Advance(time.Second)
	h.ctrl.Tick(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusError)
	assertHealth(t, h.ctrl, health.Failed)
	if h.ctrl.Snapshot().HealthMessage == "" {
		t.Error("timeout failure must carry a message")
	}
}

func TestColdStartNeedsConfidentSegment(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	a := h.engine.Current()

	low := a.Segment("S0", 0, 1)
	low.Segment.Confidence = 0.2
	h.emit(low)
	if h.ctrl.Snapshot().ColdStartComplete {
		t.Fatal("low confidence segment must not complete the cold start")
	}
	ok := a.Segment("S0", 1, 2)
	ok.Segment.Confidence = 0.7
	h.emit(ok)
	if !h.ctrl.Snapshot().ColdStartComplete {
		t.Error("confident segment should complete the cold start")
	}
}

func TestProcessedSecondsMonotonic(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	a := h.engine.Current()
	h.emit(a.Progress(10), a.Progress(4), a.Segment("S0", 1, 3))
	if got := h.ctrl.Snapshot().TotalAudioProcessedSeconds; got != 10 {
		t.Errorf("expected 10 seconds processed, got %v", got)
	}
}

func TestSpeakerChangeMovesPointer(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	a := h.engine.Current()
	h.emit(a.Segment("S0", 0, 2), a.Change("S0", "S1", 2))

	snap := h.ctrl.Snapshot()
	if snap.CurrentSpeaker != "S1" || snap.NumSpeakers != 2 {
		t.Errorf("expected S1 current with 2 speakers, got %q / %d", snap.CurrentSpeaker, snap.NumSpeakers)
	}
	if len(snap.ChangeEvents) != 0 {
		t.Error("engine speaker changes are not ledger change events")
	}
}

func TestIdentificationPolicy(t *testing.T) {
	store := settings.NewStatic(settings.Settings{
		MeetingID: "m1", Enabled: true, SimilarityThreshold: 0.3, MaxSpeakers: 4,
		SpeakerCountMode: diarization.SpeakerCountAuto, NameExtractionEnabled: true, NameConfidenceThreshold: 0.8,
	})
	h := newHarness(t, WithSettingsStore(store))
	if err := h.ctrl.StartFromSettings(h.ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Drain(h.ctx)
	a := h.engine.Current()
	h.emit(a.Status(diarization.StatusActive), a.Segment("S0", 0, 1))

	h.emit(a.Identify("S0", "Bob", 0.5))
	if id, _ := h.ctrl.Snapshot().Identity("S0"); id.IsIdentified {
		t.Fatal("identification below threshold must be ignored")
	}
	h.emit(a.Identify("S0", "Bob", 0.85))
	if id, _ := h.ctrl.Snapshot().Identity("S0"); id.DisplayName != "Bob" {
		t.Errorf("expected Bob, got %+v", id)
	}
	h.emit(a.Identify("S7", "Eve", 0.99))
	if _, ok := h.ctrl.Snapshot().Identity("S7"); ok {
		t.Error("identification for an unknown tag must not register it")
	}
}

func TestStartFromSettingsDisabled(t *testing.T) {
	s := settings.Default("m1")
	s.Enabled = false
	h := newHarness(t, WithSettingsStore(settings.NewStatic(s)))

	if err := h.ctrl.StartFromSettings(h.ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	assertStatus(t, h.ctrl, diarization.StatusIdle)
	assertHealth(t, h.ctrl, health.Disabled)
	if len(h.engine.Calls()) != 0 {
		t.Error("disabled settings must not start the engine")
	}

	if err := h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	assertHealth(t, h.ctrl, health.Initializing)
}

func TestRename(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	h.emit(h.engine.Current().Segment("S0", 0, 1))

	if err := h.ctrl.Rename(h.ctx, "S0", "Carol"); err != nil {
		t.Fatal(err)
	}
	id, _ := h.ctrl.Snapshot().Identity("S0")
	if id.DisplayName != "Carol" || id.Confidence != 1 {
		t.Errorf("unexpected identity %+v", id)
	}
	if err := h.ctrl.Rename(h.ctx, "S5", "Dan"); !errors.HasCode(err, errors.ErrCodeUnknownSpeaker) {
		t.Errorf("expected UNKNOWN_SPEAKER, got %v", err)
	}
	if err := h.ctrl.Rename(h.ctx, "S0", ""); err == nil {
		t.Error("expected empty name to be rejected")
	}
}

func TestScheduleAndCancelRecovery(t *testing.T) {
	q := recovery.NewMemory()
	h := newHarness(t, WithRecoveryQueue(q))
	h.start(t, "m1")

	if err := h.ctrl.ScheduleRecovery(h.ctx, ""); err != nil {
		t.Fatal(err)
	}
	if len(q.Jobs()) != 0 {
		t.Fatal("recovery is only valid from failed or degraded")
	}

	h.emit(h.engine.Current().Health(diarization.EngineDegraded, "high latency", 2))
	assertHealth(t, h.ctrl, health.Degraded)

	if err := h.ctrl.ScheduleRecovery(h.ctx, ""); err != nil {
		t.Fatal(err)
	}
	_ = h.ctrl.ScheduleRecovery(h.ctx, "")
	assertHealth(t, h.ctrl, health.RecoveryPending)
	jobs := q.Jobs()
	if len(jobs) != 1 || jobs[0].MeetingID != "m1" || jobs[0].Reason != "high latency" {
		t.Fatalf("expected one job for m1, got %+v", jobs)
	}

	_ = h.ctrl.CancelRecovery(h.ctx)
	assertHealth(t, h.ctrl, health.Degraded)

	_ = h.ctrl.ScheduleRecovery(h.ctx, "")
	_ = h.ctrl.Stop(h.ctx)
	if h.ctrl.Snapshot().RecoveryPending {
		t.Error("stop must clear the pending recovery flag")
	}
}

func TestRetryOnlyFromFailedOrDegraded(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	_ = h.ctrl.Retry(h.ctx)
	if n := len(h.engine.CallsOf(diarization.CommandStart)); n != 1 {
		t.Errorf("retry from active must be a no-op, got %d starts", n)
	}

	h.emit(h.engine.Current().Health(diarization.EngineFailed, "", 0))
	h.engine.SetAvailable(false)
	if err := h.ctrl.Retry(h.ctx); !errors.HasCode(err, errors.ErrCodeEngineUnavailable) {
		t.Errorf("expected ENGINE_UNAVAILABLE, got %v", err)
	}
	assertHealth(t, h.ctrl, health.Failed)
}

func TestHealthSignalDoesNotClearError(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	a := h.engine.Current()
	h.emit(a.Status(diarization.StatusError), a.Health(diarization.EngineHealthy, "", 1))
	assertHealth(t, h.ctrl, health.Failed)
}

func TestInvalidEventDropped(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	before := h.ctrl.Snapshot().Counters.EventsDropped
	h.emit(diarization.Event{Kind: diarization.KindSegment, MeetingID: "m1"})
	if got := h.ctrl.Snapshot().Counters.EventsDropped; got != before+1 {
		t.Errorf("expected invalid event to be counted as dropped")
	}
}

func TestSubscribeLatestWins(t *testing.T) {
	h := newHarness(t)
	ch, cancel := h.ctrl.Subscribe()
	defer cancel()

	h.start(t, "m1")
	a := h.engine.Current()
	h.emit(a.Segment("S0", 0, 1), a.Segment("S1", 1, 2))

	snap := <-ch
	if snap.Version != h.ctrl.Snapshot().Version {
		t.Errorf("expected latest version %d, got %d", h.ctrl.Snapshot().Version, snap.Version)
	}
	select {
	case extra := <-ch:
		t.Errorf("expected a single buffered snapshot, got another (v%d)", extra.Version)
	default:
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after cancel")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.start(t, "m1")
	h.emit(h.engine.Current().Segment("S0", 0, 1))
	snap := h.ctrl.Snapshot()
	snap.Segments[0].SpeakerTag = "X"
	snap.Identities[0].DisplayName = "X"
	fresh := h.ctrl.Snapshot()
	if fresh.Segments[0].SpeakerTag != "S0" || fresh.Identities[0].DisplayName != "Speaker 1" {
		t.Error("mutating a snapshot must not affect the controller")
	}
}

func TestRunAppliesEngineEvents(t *testing.T) {
	engine := enginetest.New(8)
	ctrl := New(engine, Config{TickInterval: 5 * time.Millisecond}, WithLogger(logger.Nop()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ctrl.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := ctrl.Start(ctx, "m1", diarization.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for {
		if m, _ := engine.Session(); m == "m1" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("engine start was never dispatched")
		case <-time.After(time.Millisecond):
		}
	}

	a := engine.Current()
	engine.Emit(a.Status(diarization.StatusActive))
	if err := ctrl.Submit(ctx, a.Segment("S0", 0, 2)); err != nil {
		t.Fatal(err)
	}

	for {
		snap := ctrl.Snapshot()
		if snap.Status == diarization.StatusActive && snap.CurrentSpeaker == "S0" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("events were not applied: %+v", snap)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRunnerLifecycle(t *testing.T) {
	h := newHarness(t)
	r := NewRunner(h.ctrl)
	if err := r.Start(h.ctx); err != nil {
		t.Fatal(err)
	}
	if got := r.Health(h.ctx).Status; got != "healthy" {
		t.Errorf("expected healthy, got %s", got)
	}
	ctx, cancel := context.WithTimeout(h.ctx, time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}
	c.ApplyDefaults()
	if c.QueueSize != 256 || c.InitTimeout != 30*time.Second {
		t.Errorf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	c.NameConfidenceThreshold = 2
	if err := c.Validate(); err == nil {
		t.Error("expected out-of-range threshold to fail")
	}
}

func TestNegativeInitTimeoutDisablesTimeout(t *testing.T) {
	c := Config{InitTimeout: -1}
	c.ApplyDefaults()
	if c.InitTimeout != -1 {
		t.Fatalf("expected a negative timeout to be kept, got %s", c.InitTimeout)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected a negative timeout to validate: %v", err)
	}

	h := newHarness(t)
	h.ctrl = New(h.engine, c, WithLogger(logger.Nop()), WithClock(h.clock.Now), WithDispatcher(func(fn func()) { fn() }))
	if err := h.ctrl.Start(h.ctx, "m1", diarization.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Drain(h.ctx)
	h.clock.Advance(24 * time.Hour)
	h.ctrl.Tick(h.ctx)
	assertStatus(t, h.ctrl, diarization.StatusInitializing)
}
