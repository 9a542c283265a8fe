package domain

import "errors"

var (
	// ErrTransientFetch covers network failures and timeouts; the candidate is skipped.
	ErrTransientFetch = errors.New("transient fetch error")
	// ErrGone marks a remote resource that no longer exists (404/410).
	ErrGone = errors.New("remote resource gone")
	// ErrResourceExceeded is returned once a full fetch crosses its size cap.
	ErrResourceExceeded = errors.New("resource exceeded size cap")
	// ErrGuardDenied is the backpressure signal that halts a batch.
	ErrGuardDenied = errors.New("download guard denied")
	// ErrMalformedState marks unreadable persisted dedup state.
	ErrMalformedState = errors.New("malformed persisted state")
	// ErrConfiguration marks invalid settings; fatal at startup.
	ErrConfiguration = errors.New("configuration error")
)
