// Package server is the diarlive HTTP front: a gin engine served through
// h2c, wrapped in server-level CORS, body-size and request-log middleware,
// with recovery, request ids and optional HS256 bearer auth inside gin.
//
// Session routes live in server/api; health and build endpoints in
// server/endpoint.
package server
