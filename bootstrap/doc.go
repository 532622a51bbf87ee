// Package bootstrap runs a diarlive binary through a uniform lifecycle:
// validate config, start components, configure, report readiness, wait for
// a signal, stop components in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(store)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return wireRoutes(a)
//	})
//	err = app.Run(ctx)
//
// RunTask runs the same lifecycle around a finite task instead of waiting
// for a signal.
package bootstrap
