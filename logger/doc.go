// Package logger provides structured logging for diarlive using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with the field names shared by the session,
// ledger, and recovery packages.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("session")
//	log.Info("session started", logger.Fields(logger.FieldMeetingID, id))
package logger
