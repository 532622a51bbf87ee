package provider

import (
	"context"
	"strings"
	"testing"
)

type testProvider struct {
	name      string
	available bool
}

func (p *testProvider) Name() string                        { return p.name }
func (p *testProvider) IsAvailable(ctx context.Context) bool { return p.available }

type checkedProvider struct {
	testProvider
	status HealthStatus
}

func (p *checkedProvider) Health(ctx context.Context) HealthStatus { return p.status }

func newTestRegistry(t *testing.T) *Registry[*testProvider] {
	t.Helper()
	reg := NewRegistry[*testProvider]()
	reg.RegisterFactory("up", func(cfg map[string]any) (*testProvider, error) {
		return &testProvider{name: "up", available: true}, nil
	})
	reg.RegisterFactory("down", func(cfg map[string]any) (*testProvider, error) {
		return &testProvider{name: "down"}, nil
	})
	return reg
}

func TestRegistryCreate(t *testing.T) {
	reg := newTestRegistry(t)

	p, err := reg.Create("up", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name() != "up" {
		t.Errorf("expected name 'up', got %q", p.Name())
	}
	if _, ok := reg.Get("up"); ok {
		t.Error("Create must not cache the instance")
	}
}

func TestRegistryCreateUnregistered(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Create("missing", nil)
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected 'not registered' error, got %v", err)
	}
}

func TestRegistryResolveCaches(t *testing.T) {
	reg := newTestRegistry(t)

	first, err := reg.Resolve("up", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := reg.Resolve("up", nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first != second {
		t.Error("expected Resolve to return the cached instance")
	}
}

func TestRegistryList(t *testing.T) {
	names := newTestRegistry(t).List()
	if len(names) != 2 || names[0] != "down" || names[1] != "up" {
		t.Errorf("expected sorted [down up], got %v", names)
	}
}

func TestRegistryAvailable(t *testing.T) {
	reg := newTestRegistry(t)
	for _, name := range []string{"up", "down"} {
		if _, err := reg.Resolve(name, nil); err != nil {
			t.Fatalf("Resolve(%s) failed: %v", name, err)
		}
	}
	got := reg.Available(context.Background())
	if len(got) != 1 || got[0] != "up" {
		t.Errorf("expected only 'up' available, got %v", got)
	}
}

func TestCheckHealth(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		p    Provider
		want Status
	}{
		{"available", &testProvider{name: "a", available: true}, StatusHealthy},
		{"unavailable", &testProvider{name: "b"}, StatusUnavailable},
		{"health checker wins", &checkedProvider{
			testProvider: testProvider{name: "c", available: true},
			status:       HealthStatus{Status: StatusDegraded},
		}, StatusDegraded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckHealth(ctx, tc.p).Status; got != tc.want {
				t.Errorf("CheckHealth() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	if StatusDegraded.String() != "degraded" || Status(42).String() != "unknown" {
		t.Error("unexpected status names")
	}
}
