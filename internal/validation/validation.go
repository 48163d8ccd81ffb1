package validation

import "fmt"

// Error marks an input as violating a business rule. Handlers map it to 422.
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}

func New(msg string) error {
	return &Error{msg: msg}
}

func Errorf(format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}
