package recurrence

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRule is returned when recurrence rule text fails to parse or a
	// rule violates a structural invariant (unknown frequency token, COUNT and
	// UNTIL together, BYSETPOS combined with BYMONTHDAY, out-of-range values).
	ErrMalformedRule = errors.New("malformed recurrence rule")

	// ErrUnboundedRange is returned when a rule with neither COUNT nor UNTIL is
	// expanded without a bounded range. Such requests are rejected outright,
	// never silently truncated.
	ErrUnboundedRange = errors.New("unbounded expansion range")
)

// ParseError describes why rule text was rejected. It unwraps to
// ErrMalformedRule so callers can match the whole class with errors.Is.
type ParseError struct {
	Rule   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed recurrence rule %q: %s", e.Rule, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformedRule }

func parseError(rule, format string, args ...any) error {
	return &ParseError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}
