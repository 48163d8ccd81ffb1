package pagination

import "github.com/minievents/eventmgmt/internal/validation"

const (
	MinLimit = 1
	MaxLimit = 1000
)

type Params struct {
	Limit  int
	Offset int
}

// New validates limit/offset once at the request boundary.
func New(limit, offset int) (Params, error) {
	if limit < MinLimit || limit > MaxLimit {
		return Params{}, validation.New("Limit must be between 1 and 1000")
	}

	if offset < 0 {
		return Params{}, validation.New("Offset must be non-negative")
	}

	return Params{Limit: limit, Offset: offset}, nil
}

// HasMore reports whether another page exists after the one just returned.
func HasMore(totalCount, offset, returned int) bool {
	return offset+returned < totalCount
}
