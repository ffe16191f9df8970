package app

import "errors"

var (
	// ErrAuthenticationFailed means connect was rejected; no handle exists.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrNotAMember is surfaced to the caller only, never broadcast.
	ErrNotAMember = errors.New("not a member of room")
	// ErrUnknownTarget means a react/vote named a nonexistent message or target.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrUnknownHandle means the operation referenced an unregistered handle.
	ErrUnknownHandle = errors.New("unknown connection handle")
)
