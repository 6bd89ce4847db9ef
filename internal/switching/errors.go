package switching

import "errors"

// Translation errors. All of them describe a problem with the data in one
// message or in the registry snapshot; none are transient.
var (
	// ErrInvalidNibble is returned when an instance nibble is outside 0-15.
	ErrInvalidNibble = errors.New("switching: invalid instance nibble")

	// ErrInvalidInstance is returned when a switch bank instance is missing
	// or outside 0-255.
	ErrInvalidInstance = errors.New("switching: invalid switch bank instance")

	// ErrNoSwitchField is returned when a Switch Control message carries no
	// SwitchN field.
	ErrNoSwitchField = errors.New("switching: no switch field")

	// ErrAmbiguousSwitchField is returned when a Switch Control message
	// carries more than one SwitchN field.
	ErrAmbiguousSwitchField = errors.New("switching: more than one switch field")

	// ErrInvalidSwitchIndex is returned for Switch0 or a Command parameter
	// position that does not map to a switch (below 2).
	ErrInvalidSwitchIndex = errors.New("switching: invalid switch index")

	// ErrDeviceNotFound is returned when no switch bank in the snapshot has
	// the requested instance.
	ErrDeviceNotFound = errors.New("switching: no switch bank device for instance")

	// ErrMalformedCommand is returned when an eligible Command message has a
	// missing, short or mistyped parameter list.
	ErrMalformedCommand = errors.New("switching: malformed command parameter list")
)
