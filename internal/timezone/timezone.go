package timezone

import (
	"time"

	"github.com/minievents/eventmgmt/internal/validation"
)

// DefaultZone is used when a caller does not request a zone. It is a fixed
// application default, never the server-local zone.
const DefaultZone = "Asia/Kolkata"

// Load resolves an IANA zone name against the system tz database. An empty
// name falls back to the given default (or DefaultZone). Unknown names are a
// validation failure so callers can reject them at the request boundary,
// before any conversion happens.
func Load(name, fallback string) (*time.Location, error) {
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = DefaultZone
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, validation.Errorf("Invalid timezone: %s", name)
	}

	return loc, nil
}

// Project converts a canonically-UTC instant into loc for display. The zero
// time passes through untouched. DST rules for the instant's calendar date
// apply, and sub-second precision is preserved.
func Project(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}

	// Stored timestamps carry no zone; treat the wall clock as UTC first.
	return t.UTC().In(loc)
}
