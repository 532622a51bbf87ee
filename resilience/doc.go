// Package resilience keeps calls to external collaborators from stalling
// or hammering them.
//
// Retry re-runs a call with exponential backoff and jitter; the recovery
// queue uses it so a transient broker outage does not lose a job.
// Breaker fails fast once a collaborator has failed repeatedly; the sidecar
// engine wraps its control calls in one.
//
//	err := resilience.RetryFunc(ctx, cfg, func() error { return q.Enqueue(ctx, job) })
//
//	br := resilience.NewBreaker(resilience.DefaultBreakerConfig("sidecar"))
//	err := br.Execute(func() error { return post(ctx, "/pause") })
package resilience
