package provider

import "context"

// Provider is the base contract of every pluggable backend: diarization
// engines, recovery queues and settings stores all expose a name and a
// availability check.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable reports whether the backend can take work right now.
	IsAvailable(ctx context.Context) bool
}

// Factory creates a provider instance from a loosely typed config map.
type Factory[T Provider] func(cfg map[string]any) (T, error)
