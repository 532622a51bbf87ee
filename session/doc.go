// Package session owns the live diarization session of a meeting.
//
// A Controller accepts user commands and engine events, applies each one
// as a single transaction over the segment ledger, the speaker registry
// and the health model, and publishes an immutable Snapshot after every
// change. Engine commands are fire-and-forget: the local state changes
// optimistically and the engine's answer arrives later as an event.
//
// Basic usage:
//
//	ctrl := session.New(engine, session.Config{})
//	go ctrl.Run(ctx)
//	if err := ctrl.Start(ctx, "meeting-1", diarization.DefaultOptions()); err != nil {
//	    return err
//	}
//	snaps, cancel := ctrl.Subscribe()
//	defer cancel()
package session
