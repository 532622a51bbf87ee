// Package diarization defines the contract between the live session layer
// and an external speaker-diarization engine.
//
// The engine is reached only through Engine: an availability check, four
// fire-and-forget commands and an event stream. Every Event names the
// meeting (and, when the engine echoes it, the session) it belongs to so the
// controller can fence out stale deliveries.
//
// # Backends
//
//   - diarization/sidecar: HTTP control plane plus an SSE event stream
//   - diarization/enginetest: scripted engine for tests and replays
package diarization
