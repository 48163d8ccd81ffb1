package notifications

import "context"

type ConfirmationInput struct {
	Email      string
	Name       string
	EventID    int64
	EventName  string
	AttendeeID int64
}

type Notifier interface {
	SendConfirmation(ctx context.Context, input ConfirmationInput) error
}
