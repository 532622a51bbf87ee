// Package provider is the small generic framework behind every swappable
// backend in diarlive.
//
// A Provider has a name and an availability check. A Registry maps names to
// factories and caches the instances it builds:
//
//	reg := provider.NewRegistry[diarization.Engine]()
//	reg.RegisterFactory("sidecar", sidecar.Factory())
//	engine, err := reg.Resolve("sidecar", map[string]any{"base_url": url})
//
// CheckHealth turns any provider into a HealthStatus, using the richer
// HealthChecker report when the provider offers one.
package provider
