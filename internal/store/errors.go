package store

import "errors"

var (
	// ErrInvalidFilter reports a filter that cannot be serialized; it is
	// returned before any request is issued.
	ErrInvalidFilter = errors.New("invalid search filter")

	// ErrNoCursor reports a LoadMore call on a session that holds no
	// continuation cursor.
	ErrNoCursor = errors.New("no continuation cursor held")

	// ErrLoadInFlight reports a LoadMore call while another fetch for the
	// session is still outstanding.
	ErrLoadInFlight = errors.New("a fetch is already in flight")

	// ErrSuperseded reports that a newer search replaced the session state
	// before this call's response arrived. It is informational: the late
	// response was discarded and nothing was modified.
	ErrSuperseded = errors.New("search superseded by a newer one")

	// ErrClosed reports an operation on a closed scroll session.
	ErrClosed = errors.New("scroll session closed")
)
