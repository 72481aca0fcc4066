package domain

import "errors"

var (
	ErrUpstreamStatus   = errors.New("upstream returned non-success status")
	ErrTransport        = errors.New("transport failure")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrLockHeld         = errors.New("lock held by another process")
)
