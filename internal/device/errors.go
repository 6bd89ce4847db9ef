package device

import "errors"

// Errors for the source registry.
//
//	if errors.Is(err, device.ErrInvalidSources) {
//	    // the registry document could not be decoded
//	}
var (
	// ErrInvalidSources is returned when a sources document is not a JSON object.
	ErrInvalidSources = errors.New("device: invalid sources document")

	// ErrInvalidRecord is returned when a record cannot be stored.
	ErrInvalidRecord = errors.New("device: invalid record")

	// ErrNotLoaded is returned by registry reads before the first successful refresh.
	ErrNotLoaded = errors.New("device: registry not loaded")
)
