// Package sse carries Server-Sent Events in both directions: a Hub that
// fans frames out to HTTP clients, and a Reader that parses an upstream
// event stream such as the diarization sidecar's.
//
// # Usage
//
//	hub := sse.NewHub()
//	go hub.Run()
//	router.GET("/events", func(c *gin.Context) {
//	    sse.ServeSSE(hub, c.Writer, c.Request, sse.ClientID("meeting", id))
//	})
//	hub.Publish(sse.Topic("meeting", id), sse.Frame{Event: "snapshot", Data: data})
package sse
