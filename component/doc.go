// Package component manages the lifecycle of the long-lived parts of the
// diarlive service.
//
//	reg := component.NewRegistry()
//	_ = reg.Register(controller)
//	_ = reg.Register(httpServer)
//	if err := reg.StartAll(ctx); err != nil { ... }
//	defer reg.StopAll(context.Background())
package component
