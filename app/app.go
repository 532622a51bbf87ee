// Package app assembles a diarlive service from its configuration: engine,
// stores, recovery queue, telemetry, the session controller and the HTTP
// surface, registered as bootstrap components in dependency order.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/diarlive/bootstrap"
	"github.com/kbukum/diarlive/component"
	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/diarization/enginetest"
	"github.com/kbukum/diarlive/diarization/sidecar"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/monitor"
	"github.com/kbukum/diarlive/observability"
	"github.com/kbukum/diarlive/provider"
	"github.com/kbukum/diarlive/recovery"
	"github.com/kbukum/diarlive/server"
	"github.com/kbukum/diarlive/server/api"
	"github.com/kbukum/diarlive/session"
	"github.com/kbukum/diarlive/settings"
	"github.com/kbukum/diarlive/sse"
)

// APIPrefix is where the session API is mounted.
const APIPrefix = "/api/v1"

// Services are the wired collaborators, exposed for commands and tests.
type Services struct {
	Engine     diarization.Engine
	Controller *session.Controller
	Settings   settings.Store
	Recovery   recovery.Queue
	Monitor    *monitor.Monitor
	Hub        *sse.Hub
	Server     *server.Server
	Auth       *server.JWTValidator
}

// Engines returns the engine provider registry with every built-in engine.
func Engines(cfg EngineConfig) *provider.Registry[diarization.Engine] {
	r := provider.NewRegistry[diarization.Engine]()
	r.RegisterFactory(sidecar.ProviderName, sidecar.Factory())
	r.RegisterFactory(enginetest.Name, func(map[string]any) (diarization.Engine, error) {
		return enginetest.New(cfg.Buffer), nil
	})
	return r
}

// Build opens every dependency named by a.Cfg and registers the components
// on a. Extra session options are appended after the wired ones.
func Build(ctx context.Context, a *bootstrap.App[*Config], opts ...session.Option) (*Services, error) {
	cfg := a.Cfg
	log := a.Logger
	svc := &Services{}

	recorder, err := setupTelemetry(ctx, a)
	if err != nil {
		return nil, err
	}

	engine, err := Engines(cfg.Engine).Create(cfg.Engine.Name, sidecar.ConfigMap(cfg.Engine.Sidecar, log))
	if err != nil {
		return nil, fmt.Errorf("engine %s: %w", cfg.Engine.Name, err)
	}
	svc.Engine = engine
	engineDetail := cfg.Engine.Name
	if cfg.Engine.Name == sidecar.ProviderName {
		engineDetail += " " + cfg.Engine.Sidecar.BaseURL
	}
	a.Summary.TrackInfrastructure("engine", "engine", engineDetail)

	store, err := settings.Open(ctx, cfg.Settings, log)
	if err != nil {
		return nil, fmt.Errorf("settings store: %w", err)
	}
	svc.Settings = store
	storeDetail := cfg.Settings.Backend
	if cfg.Settings.Backend == settings.BackendSQLite {
		storeDetail += " " + cfg.Settings.DSN
	}
	a.Summary.TrackInfrastructure("settings", "store", storeDetail)

	queue, err := recovery.Open(ctx, cfg.Recovery, log)
	if err != nil {
		return nil, fmt.Errorf("recovery queue: %w", err)
	}
	svc.Recovery = queue
	a.Summary.TrackInfrastructure("recovery", "queue", queue.Name())

	sessionOpts := append([]session.Option{
		session.WithLogger(log),
		session.WithRecorder(recorder),
		session.WithSettingsStore(store),
		session.WithRecoveryQueue(queue),
	}, opts...)
	ctrl := session.New(engine, cfg.Session, sessionOpts...)
	svc.Controller = ctrl

	svc.Monitor = monitor.New(monitor.WithLogger(log))
	hub := sse.NewComponent()
	svc.Hub = hub.Hub()

	srv := server.New(cfg.Server, log)
	svc.Server = srv
	if cfg.Server.Auth.Enabled {
		svc.Auth, err = server.NewJWTValidator(cfg.Server.Auth)
		if err != nil {
			return nil, err
		}
	}
	srv.ApplyMiddleware(svc.Auth)
	srv.RegisterDefaultEndpoints(a.Name, a.Components.HealthAll)
	api.New(api.Deps{
		Controller: ctrl,
		Settings:   store,
		Monitor:    svc.Monitor,
		Hub:        svc.Hub,
		RateLimit:  cfg.Server.RateLimit,
		Log:        log,
	}).Register(srv.GinEngine().Group(APIPrefix))
	for _, r := range srv.GinEngine().Routes() {
		a.Summary.TrackRoute(r.Method, r.Path)
	}

	if err := registerAll(a,
		&resource{name: "settings", detail: storeDetail, target: store},
		&resource{name: "recovery", detail: queue.Name(), target: queue},
	); err != nil {
		return nil, err
	}
	if sc, ok := engine.(*sidecar.Engine); ok {
		if err := a.RegisterComponent(sidecar.NewComponent(sc)); err != nil {
			return nil, err
		}
	}
	watch := component.NewLoop("monitor", func(ctx context.Context) {
		ch, cancel := ctrl.Subscribe()
		defer cancel()
		svc.Monitor.Watch(ctx, ch)
	})
	if err := registerAll(a,
		hub,
		session.NewRunner(ctrl),
		watch,
		api.NewBroadcaster(ctrl, svc.Hub, log).Component(),
		server.NewComponent(srv),
	); err != nil {
		return nil, err
	}

	log.Info("Service wired", logger.Fields(
		logger.FieldEngine, cfg.Engine.Name,
		"settings", cfg.Settings.Backend,
		"recovery", queue.Name(),
		"auth", cfg.Server.Auth.Enabled,
	))
	return svc, nil
}

func registerAll(a *bootstrap.App[*Config], cs ...component.Component) error {
	for _, c := range cs {
		if err := a.RegisterComponent(c); err != nil {
			return err
		}
	}
	return nil
}

// setupTelemetry installs OTLP exporters when enabled and returns the
// session recorder. Disabled telemetry records into the no-op global
// providers.
func setupTelemetry(ctx context.Context, a *bootstrap.App[*Config]) (session.Recorder, error) {
	cfg := a.Cfg
	if cfg.Observability.Enabled {
		mp, err := observability.InitMeter(ctx, cfg.Observability.MeterConfig(a.Name, a.Version, cfg.Environment))
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		tp, err := observability.InitTracer(ctx, cfg.Observability.TracerConfig(a.Name, a.Version, cfg.Environment))
		if err != nil {
			_ = mp.Shutdown(ctx)
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		a.OnStop(func(ctx context.Context) error {
			return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
		})
		a.Summary.TrackInfrastructure("telemetry", "exporter", "otlp "+cfg.Observability.Endpoint)
	}
	metrics, err := observability.NewSessionMetrics(observability.Meter("github.com/kbukum/diarlive/session"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return metrics, nil
}
