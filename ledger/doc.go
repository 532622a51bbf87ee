// Package ledger keeps the time-ordered record of speaker activity for one
// diarization session.
//
// Segments are appended as the engine reports them. Late arrivals within
// the skew tolerance are sorted into place; anything older, inverted or
// exactly repeated is dropped. Each append that moves the tail to a
// different speaker synthesizes a ChangeEvent.
//
// Raw segments are retained for a rolling window of audio time. Per-speaker
// aggregates and change events cover the whole session.
//
// A Ledger is owned by a single goroutine and is not safe for concurrent use.
package ledger
