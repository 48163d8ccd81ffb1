package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minievents/eventmgmt/internal/domain/attendee"
	"github.com/minievents/eventmgmt/internal/domain/event"
	"github.com/minievents/eventmgmt/internal/http/handlers"
	"github.com/minievents/eventmgmt/internal/validation"
)

// fake store implementing handlers.AttendeesStore

type fakeAttendeesStore struct {
	registerFn func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error)
	listFn     func(ctx context.Context, eventID int64, limit, offset int) ([]attendee.Attendee, int, error)
}

func (f *fakeAttendeesStore) Register(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
	if f.registerFn != nil {
		return f.registerFn(ctx, req)
	}
	return attendee.Attendee{}, nil
}

func (f *fakeAttendeesStore) ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]attendee.Attendee, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, eventID, limit, offset)
	}
	return []attendee.Attendee{}, 0, nil
}

func TestRegisterHandler(t *testing.T) {
	now := time.Now().UTC()
	validBody := `{"name": "Asha", "email": "asha@example.com"}`

	tests := []struct {
		name           string
		url            string
		body           string
		storeSetup     func(*fakeAttendeesStore)
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name: "success",
			url:  "/events/7/register",
			body: validBody,
			storeSetup: func(f *fakeAttendeesStore) {
				f.registerFn = func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
					if req.EventID != 7 {
						return attendee.Attendee{}, errors.New("event id not taken from path")
					}
					return attendee.Attendee{
						ID:           1,
						EventID:      req.EventID,
						Name:         req.Name,
						Email:        req.Email,
						RegisteredAt: now,
					}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "event_not_found",
			url:  "/events/404/register",
			body: validBody,
			storeSetup: func(f *fakeAttendeesStore) {
				f.registerFn = func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
					return attendee.Attendee{}, event.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
			wantErrCode:    "not_found",
		},
		{
			name: "duplicate_registration",
			url:  "/events/7/register",
			body: validBody,
			storeSetup: func(f *fakeAttendeesStore) {
				f.registerFn = func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
					return attendee.Attendee{}, attendee.ErrDuplicateRegistration
				}
			},
			wantStatusCode: http.StatusConflict,
			wantErrCode:    "duplicate_registration",
		},
		{
			// a recased, padded variant of a registered address must reach
			// the store and surface as a duplicate, not as a format error
			name: "duplicate_with_casing_and_padding",
			url:  "/events/7/register",
			body: `{"name": "Asha", "email": " ASHA@Example.COM "}`,
			storeSetup: func(f *fakeAttendeesStore) {
				f.registerFn = func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
					if req.Email != "asha@example.com" {
						return attendee.Attendee{}, errors.New("email not normalized before store call")
					}
					return attendee.Attendee{}, attendee.ErrDuplicateRegistration
				}
			},
			wantStatusCode: http.StatusConflict,
			wantErrCode:    "duplicate_registration",
		},
		{
			name: "capacity_exceeded",
			url:  "/events/7/register",
			body: validBody,
			storeSetup: func(f *fakeAttendeesStore) {
				f.registerFn = func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
					return attendee.Attendee{}, attendee.ErrCapacityExceeded
				}
			},
			wantStatusCode: http.StatusConflict,
			wantErrCode:    "capacity_exceeded",
		},
		{
			name: "event_already_started",
			url:  "/events/7/register",
			body: validBody,
			storeSetup: func(f *fakeAttendeesStore) {
				f.registerFn = func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
					return attendee.Attendee{}, validation.New("Cannot register for event 'GopherCon' - event has already started")
				}
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantErrCode:    "validation_error",
		},
		{
			name:           "missing_email",
			url:            "/events/7/register",
			body:           `{"name": "Asha"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "bad_email",
			url:            "/events/7/register",
			body:           `{"name": "Asha", "email": "not-an-email"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "malformed_json",
			url:            "/events/7/register",
			body:           `{"name": `,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "non_integer_event_id",
			url:            "/events/abc/register",
			body:           validBody,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "store_error",
			url:  "/events/7/register",
			body: validBody,
			storeSetup: func(f *fakeAttendeesStore) {
				f.registerFn = func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
					return attendee.Attendee{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantErrCode:    "internal_error",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeAttendeesStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewAttendeesHandler(store)
			r := setupRouter(http.MethodPost, "/events/:id/register", h.Register)

			req := httptest.NewRequest(http.MethodPost, tt.url, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrCode != "" {
				var resp struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if resp.Error.Code != tt.wantErrCode {
					t.Fatalf("got error code %q, want %q", resp.Error.Code, tt.wantErrCode)
				}
			}
		})
	}
}

func TestRegisterHandlerNormalizesEmail(t *testing.T) {
	var seen attendee.RegisterAttendeeRequest

	store := &fakeAttendeesStore{
		registerFn: func(ctx context.Context, req attendee.RegisterAttendeeRequest) (attendee.Attendee, error) {
			seen = req
			return attendee.Attendee{ID: 1, EventID: req.EventID, Name: req.Name, Email: req.Email}, nil
		},
	}

	h := handlers.NewAttendeesHandler(store)
	r := setupRouter(http.MethodPost, "/events/:id/register", h.Register)

	body := `{"name": "  Asha  ", "email": " ASHA@Example.COM "}`
	req := httptest.NewRequest(http.MethodPost, "/events/7/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if seen.Email != "asha@example.com" {
		t.Fatalf("store saw email %q, want normalized asha@example.com", seen.Email)
	}
	if seen.Name != "Asha" {
		t.Fatalf("store saw name %q, want trimmed Asha", seen.Name)
	}
}

func TestListAttendeesHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		url            string
		storeSetup     func(*fakeAttendeesStore)
		wantStatusCode int
		wantItems      int
		wantHasMore    bool
	}{
		{
			name: "first_page_has_more",
			url:  "/events/7/attendees?limit=3",
			storeSetup: func(f *fakeAttendeesStore) {
				f.listFn = func(ctx context.Context, eventID int64, limit, offset int) ([]attendee.Attendee, int, error) {
					return []attendee.Attendee{
						{ID: 5, EventID: eventID, Name: "E", Email: "e@example.com", RegisteredAt: now},
						{ID: 4, EventID: eventID, Name: "D", Email: "d@example.com", RegisteredAt: now},
						{ID: 3, EventID: eventID, Name: "C", Email: "c@example.com", RegisteredAt: now},
					}, 5, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantItems:      3,
			wantHasMore:    true,
		},
		{
			name: "last_page",
			url:  "/events/7/attendees?limit=3&offset=3",
			storeSetup: func(f *fakeAttendeesStore) {
				f.listFn = func(ctx context.Context, eventID int64, limit, offset int) ([]attendee.Attendee, int, error) {
					return []attendee.Attendee{
						{ID: 2, EventID: eventID, Name: "B", Email: "b@example.com", RegisteredAt: now},
						{ID: 1, EventID: eventID, Name: "A", Email: "a@example.com", RegisteredAt: now},
					}, 5, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantItems:      2,
			wantHasMore:    false,
		},
		{
			name: "event_not_found",
			url:  "/events/404/attendees",
			storeSetup: func(f *fakeAttendeesStore) {
				f.listFn = func(ctx context.Context, eventID int64, limit, offset int) ([]attendee.Attendee, int, error) {
					return nil, 0, event.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "bad_limit",
			url:            "/events/7/attendees?limit=5000",
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "bad_offset",
			url:            "/events/7/attendees?offset=-2",
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "store_error",
			url:  "/events/7/attendees",
			storeSetup: func(f *fakeAttendeesStore) {
				f.listFn = func(ctx context.Context, eventID int64, limit, offset int) ([]attendee.Attendee, int, error) {
					return nil, 0, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeAttendeesStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewAttendeesHandler(store)
			r := setupRouter(http.MethodGet, "/events/:id/attendees", h.ListForEvent)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Attendees []json.RawMessage `json:"attendees"`
					HasMore   bool              `json:"has_more"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if len(resp.Attendees) != tt.wantItems {
					t.Fatalf("got %d attendees, want %d", len(resp.Attendees), tt.wantItems)
				}
				if resp.HasMore != tt.wantHasMore {
					t.Fatalf("has_more = %v, want %v", resp.HasMore, tt.wantHasMore)
				}
			}
		})
	}
}
