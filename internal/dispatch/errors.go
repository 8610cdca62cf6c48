package dispatch

import "errors"

// Kind classifies a dispatch error so callers can tell a business "no"
// apart from a broken backing store.
type Kind int

const (
	KindInvalid     Kind = iota + 1 // malformed input
	KindNotFound                    // referenced booking or shuttle is missing
	KindConflict                    // request clashes with current state
	KindNoCandidate                 // nothing satisfies the selection criteria
	KindStore                       // database or network failure
)

// Error is the structured error returned by every dispatch operation.
// Msg is safe to show to callers; Err holds the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and message so a wrapped store failure still
// compares equal to the sentinel it was built from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Msg == e.Msg
}

var (
	ErrBookingNotFound      = &Error{Kind: KindNotFound, Msg: "Booking not found"}
	ErrShuttleNotFound      = &Error{Kind: KindNotFound, Msg: "Shuttle not found"}
	ErrAlreadyAssigned      = &Error{Kind: KindConflict, Msg: "Booking already assigned"}
	ErrBookingClosed        = &Error{Kind: KindConflict, Msg: "Booking is not open for dispatch"}
	ErrNoSuitablePilots     = &Error{Kind: KindNoCandidate, Msg: "No suitable pilots found"}
	ErrNoPendingAssignments = &Error{Kind: KindNoCandidate, Msg: "No pending assignments found"}
	ErrCreateAssignment     = &Error{Kind: KindStore, Msg: "Failed to create assignment"}
)

func invalid(msg string) error { return &Error{Kind: KindInvalid, Msg: msg} }

func storeErr(msg string, err error) error { return &Error{Kind: KindStore, Msg: msg, Err: err} }

// KindOf returns the kind of err, or KindStore for foreign errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStore
}

// Message returns the caller-facing text for err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return "internal error"
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch KindOf(err) {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindNoCandidate:
		return "no_candidate"
	}
	return "error"
}
