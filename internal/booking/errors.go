package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Kind classifies a booking failure.  Callers branch on the kind rather than
// on message text; the HTTP layer maps each kind to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidArgument
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindInvalidState:
		return "invalid_state"
	}
	return "internal"
}

// Sentinels usable with errors.Is against any *Error of the matching kind.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
)

// SeatFailure names a seat and segment that caused an operation to abort.
type SeatFailure struct {
	SeatNumber string        `json:"seat_number"`
	Segment    model.Segment `json:"-"`
	From       int           `json:"from_order"`
	To         int           `json:"to_order"`
	Reason     string        `json:"reason"`
}

func seatFailure(seat string, seg model.Segment, reason string) SeatFailure {
	return SeatFailure{SeatNumber: seat, Segment: seg, From: seg.From, To: seg.To, Reason: reason}
}

// Error is the error type returned by every booking operation that fails for
// a business reason.  Failures is populated when a batch operation is
// aborted because of specific seats.
type Error struct {
	Kind     Kind
	Message  string
	Failures []SeatFailure
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Failures) > 0 {
		parts := make([]string, 0, len(e.Failures))
		for _, f := range e.Failures {
			parts = append(parts, fmt.Sprintf("%s%s: %s", f.SeatNumber, f.Segment, f.Reason))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrInvalidState:
		return e.Kind == KindInvalidState
	}
	return false
}

// KindOf returns the kind of err, or KindInternal for errors that did not
// originate from a business rule.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// FailuresOf returns the seat failures carried by err, if any.
func FailuresOf(err error) []SeatFailure {
	var be *Error
	if errors.As(err, &be) {
		return be.Failures
	}
	return nil
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error { return newError(KindNotFound, format, args...) }
func conflict(format string, args ...any) *Error { return newError(KindConflict, format, args...) }
func invalidArgument(format string, args ...any) *Error {
	return newError(KindInvalidArgument, format, args...)
}
func invalidState(format string, args ...any) *Error {
	return newError(KindInvalidState, format, args...)
}

// lookupErr converts a repository "no record" into NotFound for what and
// passes every other error through unchanged.
func lookupErr(err error, what string, id any) error {
	if errors.Is(err, ErrNoRecord) {
		return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", what, id)}
	}
	return err
}
