package logger

// Field names shared across packages so log queries can join on them.
const (
	FieldComponent  = "component"
	FieldMeetingID  = "meeting_id"
	FieldSessionID  = "session_id"
	FieldSpeakerTag = "speaker_tag"
	FieldEventKind  = "event_kind"
	FieldStatus     = "status"
	FieldHealth     = "health"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldRequestID  = "request_id"
	FieldEngine     = "engine"
)

// Fields builds F from alternating key-value pairs. Non-string keys and a
// trailing key without a value are skipped.
//
//	log.Info("Segment dropped", logger.Fields(logger.FieldSpeakerTag, tag))
func Fields(kvs ...any) F {
	m := make(F, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields describes a failed operation.
func ErrorFields(op string, err error) F {
	return F{FieldOperation: op, FieldError: err.Error()}
}
