package deck

import (
	"errors"
	"fmt"
)

var (
	// ErrReasoningUnavailable marks a reasoning-gateway call that failed or
	// returned an unparseable structure. Stage-fatal: the session moves to
	// failed and a single error event is emitted.
	ErrReasoningUnavailable = errors.New("reasoning gateway unavailable")

	// ErrRetrievalUnavailable marks a retrieval-gateway failure. Attempt-fatal
	// only: the selection loop retries it under the same policy as an empty
	// result set.
	ErrRetrievalUnavailable = errors.New("retrieval gateway unavailable")

	// ErrUnknownSession is returned for absent or expired session IDs.
	ErrUnknownSession = errors.New("unknown session")
)

// InvalidTransitionError rejects an API call made from the wrong lifecycle
// state. No session state changes when it is returned.
type InvalidTransitionError struct {
	From string
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s from state %q", e.Op, e.From)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
