package analytics

import "errors"

var (
	// ErrInvalidRange is returned when a time range is empty or inverted.
	ErrInvalidRange = errors.New("invalid time range: start must be before end")
	// ErrInvalidFunnel is returned for funnels with fewer than two steps or an empty step.
	ErrInvalidFunnel = errors.New("invalid funnel: at least two non-empty steps are required")
	// ErrInvalidArgument is returned for any other rejected input.
	ErrInvalidArgument = errors.New("invalid argument")
)
