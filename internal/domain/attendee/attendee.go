package attendee

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/minievents/eventmgmt/internal/validation"
)

type Attendee struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"event_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// at most one registration per normalized email per event
var ErrDuplicateRegistration = errors.New("email already registered for this event")

var ErrCapacityExceeded = errors.New("event is at full capacity")

type RegisterAttendeeRequest struct {
	EventID int64  `json:"-"`
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"required,max=255"`
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validate normalizes the request in place: name is trimmed, email is trimmed
// and lowercased. Format is checked against the normalized email, so a padded
// or differently cased variant of an already registered address surfaces as a
// duplicate rather than a format error. Note the Email binding tag carries no
// format rule for the same reason.
func (r *RegisterAttendeeRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	if r.Name == "" {
		return validation.New("Attendee name cannot be empty")
	}

	if r.Email == "" {
		return validation.New("Email cannot be empty")
	}

	if !emailPattern.MatchString(r.Email) {
		return validation.New("Invalid email format")
	}

	return nil
}
