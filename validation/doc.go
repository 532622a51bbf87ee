// Package validation checks commands, options and request bodies before they
// reach the session controller.
//
// Struct tags cover static rules:
//
//	type Options struct {
//	    SimilarityThreshold float64 `json:"similarity_threshold" validate:"gt=0,lte=1"`
//	}
//	err := validation.Validate(opts)
//
// The chainable Validator covers the rest:
//
//	err := validation.New().
//	    Required("meeting_id", id).
//	    OptionalUUID("session_id", sid).
//	    Err()
//
// Both return INVALID_INPUT AppErrors carrying per-field details.
package validation
