package device

import "errors"

// Callers classify store errors with errors.Is against these sentinels.
var (
	// ErrInvalidInput marks client-attributable failures: malformed ids,
	// unknown device types, empty names, malformed state documents.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when no device has the requested id.
	ErrNotFound = errors.New("device not found")

	// ErrStorage marks server-attributable failures: connectivity, query,
	// constraint and decode errors.
	ErrStorage = errors.New("storage failure")
)
