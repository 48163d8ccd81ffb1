package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minievents/eventmgmt/internal/domain/event"
	"github.com/minievents/eventmgmt/internal/pagination"
	"github.com/minievents/eventmgmt/internal/timezone"
	"github.com/minievents/eventmgmt/internal/validation"
)

const defaultEventsLimit = 100

type EventsStore interface {
	Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	GetByID(ctx context.Context, id int64) (event.Event, error)
	ListUpcoming(ctx context.Context, now time.Time, limit, offset int) ([]event.Event, int, error)
}

type EventsHandler struct {
	store       EventsStore
	defaultZone string
}

func NewEventsHandler(store EventsStore, defaultZone string) *EventsHandler {
	if defaultZone == "" {
		defaultZone = timezone.DefaultZone
	}
	return &EventsHandler{store: store, defaultZone: defaultZone}
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if err := req.Validate(time.Now()); err != nil {
		RespondUnprocessable(ctx, err.Error(), nil)
		return
	}

	loc, err := timezone.Load(ctx.Query("timezone"), h.defaultZone)
	if err != nil {
		RespondUnprocessable(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	created, err := h.store.Create(cctx, req)

	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "create event failed", "err", err, "event_name", req.Name)
		RespondInternal(ctx, "Could not create event")
		return
	}

	slog.Default().InfoContext(ctx.Request.Context(), "event created", "event_id", created.ID, "event_name", created.Name)

	ctx.JSON(http.StatusCreated, NewEventResponse(created, loc))
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	// zone and paging are validated once, before any storage call
	loc, err := timezone.Load(ctx.Query("timezone"), h.defaultZone)
	if err != nil {
		RespondUnprocessable(ctx, err.Error(), nil)
		return
	}

	page, err := pageParams(ctx, defaultEventsLimit)
	if err != nil {
		RespondUnprocessable(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	events, total, err := h.store.ListUpcoming(cctx, time.Now().UTC(), page.Limit, page.Offset)

	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "list events failed", "err", err)
		RespondInternal(ctx, "Could not list events")
		return
	}

	ctx.JSON(http.StatusOK, NewEventListResponse(events, total, page, loc))
}

func (h *EventsHandler) GetEventByID(ctx *gin.Context) {
	id, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	loc, err := timezone.Load(ctx.Query("timezone"), h.defaultZone)
	if err != nil {
		RespondUnprocessable(ctx, err.Error(), nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	e, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "get event failed", "err", err, "event_id", id)
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, NewEventResponse(e, loc))
}

// eventIDParam parses the :id path segment; a non-integer id is a 400 before
// any lookup.
func eventIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		RespondBadRequest(ctx, "event id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func pageParams(ctx *gin.Context, defaultLimit int) (pagination.Params, error) {
	limit, err := intQuery(ctx, "limit", defaultLimit)
	if err != nil {
		return pagination.Params{}, err
	}

	offset, err := intQuery(ctx, "offset", 0)
	if err != nil {
		return pagination.Params{}, err
	}

	return pagination.New(limit, offset)
}

func intQuery(ctx *gin.Context, name string, fallback int) (int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.Errorf("%s must be an integer", name)
	}

	return v, nil
}
