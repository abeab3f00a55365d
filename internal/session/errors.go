package session

import "errors"

var (
	ErrNotFound       = errors.New("session not found")
	ErrNoImage        = errors.New("no image uploaded")
	ErrNoResult       = errors.New("no analysis result to continue from")
	ErrNoContinuation = errors.New("no continuation image generated")
	ErrUnknownView    = errors.New("unknown view")
)

// ErrBusy rejects a second call of the same kind while one is in flight.
var ErrBusy = errors.New("request already in progress")

// ErrStale reports a response that arrived after the session was reset or
// given a new image. The response is dropped.
var ErrStale = errors.New("session changed while the request was in flight")
