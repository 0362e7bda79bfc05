package internal

import "errors"

// Error kinds. Builder-time failures wrap one of the first four and are returned
// synchronously; ErrQueryFailed only ever appears inside a failed ReportResult.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrOutOfRange           = errors.New("out of range")
	ErrNotFound             = errors.New("not found")
	ErrConfigurationInvalid = errors.New("invalid service configuration")
	ErrQueryFailed          = errors.New("query failed")
)
