package recovery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/diarlive/validation"
)

// Job asks the batch system to diarize a meeting after it ends.
type Job struct {
	ID          string    `json:"id"`
	MeetingID   string    `json:"meeting_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewJob creates a job with a fresh id.
func NewJob(meetingID, sessionID, reason string, at time.Time) Job {
	return Job{
		ID:          uuid.NewString(),
		MeetingID:   meetingID,
		SessionID:   sessionID,
		Reason:      reason,
		RequestedAt: at.UTC(),
	}
}

// Validate checks the required fields.
func (j Job) Validate() error {
	return validation.New().
		RequiredUUID("id", j.ID).
		Required("meeting_id", j.MeetingID).
		Err()
}

// Marshal encodes the job as JSON.
func (j Job) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

// UnmarshalJob decodes a job produced by Marshal.
func UnmarshalJob(data []byte) (Job, error) {
	var j Job
	err := json.Unmarshal(data, &j)
	return j, err
}

// Queue accepts recovery jobs. Enqueue must not be called while holding
// session locks; it may block on I/O.
type Queue interface {
	Name() string
	Enqueue(ctx context.Context, job Job) error
}
