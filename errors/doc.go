// Package errors provides the structured error type used across diarlive.
//
// Every error that leaves a public API is an *AppError carrying a
// machine-readable code, an HTTP status for the control API, and a
// retryable flag. Engine health problems are not errors; they are modelled
// by the health package.
package errors
