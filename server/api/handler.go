package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/diarlive/diarization"
	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/monitor"
	"github.com/kbukum/diarlive/presentation"
	"github.com/kbukum/diarlive/server"
	"github.com/kbukum/diarlive/server/middleware"
	"github.com/kbukum/diarlive/session"
	"github.com/kbukum/diarlive/settings"
	"github.com/kbukum/diarlive/sse"
	"github.com/kbukum/diarlive/validation"
)

// Deps are the collaborators behind the session API. Settings, Monitor
// and Hub are optional; their routes answer 404 without them.
type Deps struct {
	Controller *session.Controller
	Settings   settings.Store
	Monitor    *monitor.Monitor
	Hub        *sse.Hub
	RateLimit  middleware.RateLimitConfig
	Log        *logger.Logger
}

// Handler serves the session read model and commands.
type Handler struct {
	ctrl     *session.Controller
	settings settings.Store
	monitor  *monitor.Monitor
	hub      *sse.Hub
	limit    middleware.RateLimitConfig
	log      *logger.Logger
}

// New creates a Handler.
func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.Get("api")
	}
	return &Handler{
		ctrl:     d.Controller,
		settings: d.Settings,
		monitor:  d.Monitor,
		hub:      d.Hub,
		limit:    d.RateLimit,
		log:      log.WithComponent("api"),
	}
}

// Register mounts the routes on r, normally the /api/v1 group.
//
//	GET  /session                      snapshot
//	GET  /session/view                 presentation view
//	GET  /session/debug                monitor report
//	GET  /session/stream               snapshot stream (?meeting_id=)
//	POST /session/start                {meeting_id, options?}
//	POST /session/{stop,pause,resume,retry,skip}
//	POST /session/recovery             {meeting_id}
//	POST /session/recovery/cancel
//	PUT  /session/speakers/:tag/name   {name}
//	POST /session/events               engine event webhook
//	GET  /meetings/:meetingID/settings
//	PUT  /meetings/:meetingID/settings
func (h *Handler) Register(r gin.IRouter) {
	s := r.Group("/session")
	s.GET("", h.GetSnapshot)
	s.GET("/view", h.GetView)
	s.GET("/debug", h.GetDebug)
	s.GET("/stream", h.Stream)
	s.POST("/events", h.IngestEvent)

	cmd := s.Group("", middleware.RateLimit(h.limit))
	cmd.POST("/start", h.Start)
	cmd.POST("/stop", h.command(h.ctrl.Stop))
	cmd.POST("/pause", h.command(h.ctrl.Pause))
	cmd.POST("/resume", h.command(h.ctrl.Resume))
	cmd.POST("/retry", h.command(h.ctrl.Retry))
	cmd.POST("/skip", h.command(h.ctrl.Skip))
	cmd.POST("/recovery", h.ScheduleRecovery)
	cmd.POST("/recovery/cancel", h.command(h.ctrl.CancelRecovery))
	cmd.PUT("/speakers/:tag/name", h.Rename)

	m := r.Group("/meetings/:meetingID")
	m.GET("/settings", h.GetSettings)
	m.PUT("/settings", h.PutSettings)
}

// GetSnapshot returns the current read model.
func (h *Handler) GetSnapshot(c *gin.Context) {
	server.RespondOK(c, h.ctrl.Snapshot())
}

// GetView returns the presentation view of the current snapshot.
func (h *Handler) GetView(c *gin.Context) {
	view := presentation.Build(h.ctrl.Snapshot())
	if h.monitor != nil {
		h.monitor.RecordRender()
	}
	server.RespondOK(c, view)
}

// GetDebug returns the monitor's diagnostics.
func (h *Handler) GetDebug(c *gin.Context) {
	if h.monitor == nil {
		server.RespondWithError(c, errors.NotFound("monitor", "debug"))
		return
	}
	server.RespondOK(c, h.monitor.Report())
}

// Stream serves snapshots as server-sent events, starting with the
// current one.
func (h *Handler) Stream(c *gin.Context) {
	if h.hub == nil {
		server.RespondWithError(c, errors.NotFound("stream", "session"))
		return
	}
	key := c.DefaultQuery("meeting_id", AllMeetings)
	initial, err := SnapshotFrame(h.ctrl.Snapshot())
	if err != nil {
		server.RespondWithError(c, errors.Internal(err))
		return
	}
	sse.ServeSSE(h.hub, c.Writer, c.Request, sse.ClientID(StreamKind, key, uuid.NewString()), &initial)
}

type startRequest struct {
	MeetingID string               `json:"meeting_id" validate:"required"`
	Options   *diarization.Options `json:"options,omitempty"`
}

// Start begins a session. Without options the meeting's stored settings
// are used.
func (h *Handler) Start(c *gin.Context) {
	var req startRequest
	if !bind(c, &req) {
		return
	}
	var err error
	if req.Options != nil {
		err = h.ctrl.Start(c.Request.Context(), req.MeetingID, *req.Options)
	} else {
		err = h.ctrl.StartFromSettings(c.Request.Context(), req.MeetingID)
	}
	h.respond(c, "start", err)
}

type recoveryRequest struct {
	MeetingID string `json:"meeting_id" validate:"required"`
}

// ScheduleRecovery queues a post-meeting diarization job.
func (h *Handler) ScheduleRecovery(c *gin.Context) {
	var req recoveryRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, "schedule_recovery", h.ctrl.ScheduleRecovery(c.Request.Context(), req.MeetingID))
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

// Rename sets a speaker's display name.
func (h *Handler) Rename(c *gin.Context) {
	var req renameRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, "rename", h.ctrl.Rename(c.Request.Context(), c.Param("tag"), req.Name))
}

// IngestEvent accepts one engine event for engines that push over HTTP.
// The event is queued; fencing happens when it is applied.
func (h *Handler) IngestEvent(c *gin.Context) {
	var ev diarization.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	if err := h.ctrl.Submit(c.Request.Context(), ev); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, gin.H{"queued": true, "kind": ev.Kind})
}

// GetSettings returns a meeting's settings, defaults when none are stored.
func (h *Handler) GetSettings(c *gin.Context) {
	if h.settings == nil {
		server.RespondWithError(c, errors.NotFound("settings store", ""))
		return
	}
	s, err := h.settings.Get(c.Request.Context(), c.Param("meetingID"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, s)
}

// PutSettings replaces a meeting's settings. They apply from the next
// start of that meeting.
func (h *Handler) PutSettings(c *gin.Context) {
	if h.settings == nil {
		server.RespondWithError(c, errors.NotFound("settings store", ""))
		return
	}
	var s settings.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	s.MeetingID = c.Param("meetingID")
	if err := s.Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.settings.Put(c.Request.Context(), s); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, s)
}

// command adapts a body-less controller command.
func (h *Handler) command(fn func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.respond(c, c.FullPath(), fn(c.Request.Context()))
	}
}

// respond answers 202 with the post-command snapshot: the engine side of
// every command completes asynchronously.
func (h *Handler) respond(c *gin.Context, op string, err error) {
	if err != nil {
		h.log.WithError(err).Debug("Command rejected", logger.Fields(logger.FieldOperation, op))
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, h.ctrl.Snapshot())
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return false
	}
	if err := validation.Validate(dst); err != nil {
		server.RespondWithError(c, err)
		return false
	}
	return true
}
