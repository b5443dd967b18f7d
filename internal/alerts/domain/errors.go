package alerts

import "errors"

// ErrNotFound is returned when an alert id does not exist.
var ErrNotFound = errors.New("alerts: not found")

// ErrInvalidStatus is returned for an unknown lifecycle status.
var ErrInvalidStatus = errors.New("alerts: invalid status")
