// Package httpclient is the outbound HTTP client used to reach the
// diarization sidecar.
//
// It resolves paths against a base URL, applies default headers and a
// bearer token, classifies error statuses into typed errors, and can wrap
// calls in a retry policy and a circuit breaker from the resilience
// package. DoStream opens long-lived responses; event streams come back
// with an sse.Reader attached.
//
//	c, err := httpclient.New(httpclient.Config{BaseURL: "http://localhost:8388"})
//	resp, err := c.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/sessions/start", Body: req})
//	stream, err := c.DoStream(ctx, httpclient.Request{Method: http.MethodGet, Path: "/events"})
package httpclient
