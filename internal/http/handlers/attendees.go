package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minievents/eventmgmt/internal/domain/attendee"
	"github.com/minievents/eventmgmt/internal/domain/event"
	"github.com/minievents/eventmgmt/internal/validation"
)

const defaultAttendeesLimit = 50

type AttendeesStore interface {
	Register(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error)
	ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]attendee.Attendee, int, error)
}

type AttendeesHandler struct {
	store AttendeesStore
}

func NewAttendeesHandler(store AttendeesStore) *AttendeesHandler {
	return &AttendeesHandler{store: store}
}

func (h *AttendeesHandler) Register(ctx *gin.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	var req attendee.RegisterAttendeeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// URL param is the source of truth for the event
	req.EventID = eventID

	if err := req.Validate(); err != nil {
		RespondUnprocessable(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	att, err := h.store.Register(cctx, req)

	if err != nil {
		var verr *validation.Error

		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event not found")
		case errors.Is(err, attendee.ErrDuplicateRegistration):
			RespondConflict(ctx, "duplicate_registration", "This email is already registered for this event")
		case errors.Is(err, attendee.ErrCapacityExceeded):
			RespondConflict(ctx, "capacity_exceeded", "Event is at full capacity")
		case errors.As(err, &verr):
			RespondUnprocessable(ctx, verr.Error(), nil)
		default:
			slog.Default().ErrorContext(ctx.Request.Context(), "registration failed",
				"err", err, "event_id", eventID, "attendee_email", req.Email)
			RespondInternal(ctx, "Could not register for event")
		}
		return
	}

	slog.Default().InfoContext(ctx.Request.Context(), "attendee registered",
		"event_id", eventID, "attendee_id", att.ID, "attendee_email", att.Email)

	ctx.JSON(http.StatusCreated, NewAttendeeResponse(att))
}

func (h *AttendeesHandler) ListForEvent(ctx *gin.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	page, err := pageParams(ctx, defaultAttendeesLimit)
	if err != nil {
		RespondUnprocessable(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	atts, total, err := h.store.ListByEvent(cctx, eventID, page.Limit, page.Offset)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "list attendees failed", "err", err, "event_id", eventID)
		RespondInternal(ctx, "Could not list attendees")
		return
	}

	ctx.JSON(http.StatusOK, NewAttendeeListResponse(atts, total, page))
}
