package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/diarlive/component"
	"github.com/kbukum/diarlive/config"
	"github.com/kbukum/diarlive/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(context.Context) error {
	m.record("start " + m.name)
	return m.startErr
}
func (m *mockComponent) Stop(context.Context) error {
	m.record("stop " + m.name)
	return m.stopErr
}
func (m *mockComponent) Health(context.Context) component.Health { return m.health }

func (m *mockComponent) record(s string) {
	if m.events != nil {
		*m.events = append(*m.events, s)
	}
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "diarlive-test", Version: "1.0.0"}}
	opts = append([]Option{WithLogger(logger.Nop()), WithQuiet()}, opts...)
	app, err := NewApp(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func healthy(name string) component.Health {
	return component.Health{Name: name, Status: component.StatusHealthy}
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t, WithGracefulTimeout(30*time.Second))
	if app.Name != "diarlive-test" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %s %s", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("expected defaults applied, got %q", app.Cfg.Environment)
	}
	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
	if app.Components == nil || app.Logger == nil || app.Summary == nil {
		t.Error("expected registry, logger and summary")
	}
}

func TestNewAppValidation(t *testing.T) {
	if _, err := NewApp(&testConfig{}, WithLogger(logger.Nop())); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app := newTestApp(t)
	if err := app.RegisterComponent(&mockComponent{name: "store"}); err != nil {
		t.Fatal(err)
	}
	if err := app.RegisterComponent(&mockComponent{name: "store"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestHooks(t *testing.T) {
	var order []string
	hooks := []Hook{
		func(context.Context) error { order = append(order, "first"); return nil },
		func(context.Context) error { return fmt.Errorf("fail") },
		func(context.Context) error { order = append(order, "third"); return nil },
	}
	if err := runHooks(context.Background(), hooks); err == nil {
		t.Error("expected the failing hook's error")
	}
	if strings.Join(order, ",") != "first" {
		t.Errorf("expected execution to stop at the failure, got %v", order)
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  component.HealthStatus
		wantErr bool
	}{
		{"healthy", component.StatusHealthy, false},
		{"degraded", component.StatusDegraded, true},
		{"unhealthy", component.StatusUnhealthy, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			_ = app.RegisterComponent(&mockComponent{name: "engine", health: component.Health{Name: "engine", Status: tc.status, Message: "x"}})
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tc.wantErr {
				t.Errorf("ReadyCheck() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRunTaskLifecycle(t *testing.T) {
	var events []string
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "store", health: healthy("store"), events: &events})
	_ = app.RegisterComponent(&mockComponent{name: "server", health: healthy("server"), events: &events})
	app.OnStart(func(context.Context) error { events = append(events, "onStart"); return nil })
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		events = append(events, "configure "+a.Cfg.Name)
		return nil
	})
	app.OnReady(func(context.Context) error { events = append(events, "onReady"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "onStop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		events = append(events, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	want := "start store,start server,onStart,configure diarlive-test,onReady,task,onStop,stop server,stop store"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("lifecycle order\n got %s\nwant %s", got, want)
	}
}

func TestRunTaskReturnsTaskError(t *testing.T) {
	app := newTestApp(t)
	taskErr := fmt.Errorf("replay failed")
	if err := app.RunTask(context.Background(), func(context.Context) error { return taskErr }); err != taskErr {
		t.Errorf("expected the task error, got %v", err)
	}
}

func TestStartFailureStopsStarted(t *testing.T) {
	var events []string
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "store", events: &events})
	_ = app.RegisterComponent(&mockComponent{name: "queue", startErr: fmt.Errorf("redis down"), events: &events})

	err := app.RunTask(context.Background(), func(context.Context) error {
		t.Error("task must not run when startup fails")
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "redis down") {
		t.Fatalf("expected the start error, got %v", err)
	}
	if got := strings.Join(events, ","); got != "start store,start queue,stop store" {
		t.Errorf("expected the started component released, got %s", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSummaryRender(t *testing.T) {
	var out bytes.Buffer
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "diarlive", Version: "1.2.0"}}
	app, err := NewApp(cfg, WithLogger(logger.Nop()), WithSummaryOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	app.Summary.TrackInfrastructure("settings", "store", "sqlite diarlive.db")
	app.Summary.TrackRoute("POST", "/api/v1/session/start")
	_ = app.RegisterComponent(&mockComponent{name: "session", health: healthy("session")})
	_ = app.RegisterComponent(&mockComponent{name: "engine.sidecar", health: component.Health{
		Name: "engine.sidecar", Status: component.StatusDegraded, Message: "event stream disconnected",
	}})

	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"diarlive 1.2.0", "Infrastructure", "sqlite diarlive.db", "engine.sidecar", "1/2 components healthy", "/api/v1/session/start"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}
