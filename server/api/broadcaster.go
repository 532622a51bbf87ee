package api

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/kbukum/diarlive/component"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/session"
	"github.com/kbukum/diarlive/sse"
)

// StreamKind is the client-id kind used for session stream clients.
const StreamKind = "session"

// AllMeetings is the stream key for clients that follow whatever meeting
// is live.
const AllMeetings = "all"

// SnapshotFrame encodes snap as a snapshot event whose id is its version.
func SnapshotFrame(snap session.Snapshot) (sse.Frame, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return sse.Frame{}, err
	}
	return sse.Frame{Event: sse.EventSnapshot, ID: strconv.FormatUint(snap.Version, 10), Data: data}, nil
}

// Broadcaster publishes every controller snapshot to the hub: once for
// clients following all meetings and once for clients of that meeting.
// When the meeting changes, the previous meeting's clients get the first
// snapshot after the change so they see their session end.
type Broadcaster struct {
	ctrl *session.Controller
	hub  *sse.Hub
	log  *logger.Logger
}

// NewBroadcaster bridges ctrl to hub.
func NewBroadcaster(ctrl *session.Controller, hub *sse.Hub, log *logger.Logger) *Broadcaster {
	if log == nil {
		log = logger.Get("api")
	}
	return &Broadcaster{ctrl: ctrl, hub: hub, log: log.WithComponent("broadcaster")}
}

// Run publishes until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ch, cancel := b.ctrl.Subscribe()
	defer cancel()

	var lastMeeting string
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			frame, err := SnapshotFrame(snap)
			if err != nil {
				b.log.WithError(err).Warn("Snapshot not encodable")
				continue
			}
			b.hub.Publish(sse.Topic(StreamKind, AllMeetings), frame)
			if snap.MeetingID != "" {
				b.hub.Publish(sse.Topic(StreamKind, snap.MeetingID), frame)
			}
			if lastMeeting != "" && lastMeeting != snap.MeetingID {
				b.hub.Publish(sse.Topic(StreamKind, lastMeeting), frame)
			}
			lastMeeting = snap.MeetingID
		}
	}
}

// Component runs the broadcaster under the component registry.
func (b *Broadcaster) Component() *component.Loop {
	return component.NewLoop("broadcaster", b.Run)
}
