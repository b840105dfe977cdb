package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidJobType = errors.New("invalid job type")
	ErrJobRunning     = errors.New("job still running")
)
