package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// TypeAttendeeConfirmation is the only job type in the system today:
// a confirmation message for a freshly registered attendee.
const TypeAttendeeConfirmation = "attendee.confirmation"

var (
	ErrNotFound       = errors.New("job not found")
	ErrInvalidType    = errors.New("invalid job type")
	ErrInvalidPayload = errors.New("invalid job payload")
)

// Job is a unit of asynchronous work persisted in the jobs table.
type Job struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Payload     []byte    `json:"payload"` // raw json
	Status      Status    `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	RunAt       time.Time `json:"run_at"`
	LastError   *string   `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ConfirmationPayload struct {
	AttendeeID  int64     `json:"attendee_id"`
	EventID     int64     `json:"event_id"`
	EventName   string    `json:"event_name"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewConfirmation builds a pending confirmation job ready for EnqueueTx.
func NewConfirmation(p ConfirmationPayload) (Job, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	now := time.Now().UTC()

	return Job{
		ID:          uuid.NewString(),
		Type:        TypeAttendeeConfirmation,
		Payload:     raw,
		Status:      StatusPending,
		Attempts:    0,
		MaxAttempts: 5,
		RunAt:       now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// DecodeConfirmation unmarshals a claimed job's payload. Workers fail the job
// permanently when the payload cannot be decoded.
func DecodeConfirmation(j Job) (ConfirmationPayload, error) {
	if j.Type != TypeAttendeeConfirmation {
		return ConfirmationPayload{}, ErrInvalidType
	}
	if len(j.Payload) == 0 {
		return ConfirmationPayload{}, ErrInvalidPayload
	}

	var p ConfirmationPayload
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return ConfirmationPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}
