package switching

import "fmt"

// Instance bit layout. The 8-bit NMEA instance is upper nibble then lower
// nibble, each exactly four bits wide.
const (
	nibbleBits  = 4
	nibbleMask  = 0x0F
	maxNibble   = 15
	maxInstance = 255
)

// ReconstructInstance joins two 4-bit nibbles into an 8-bit switch bank
// instance: upper<<4 | lower.
//
// Both nibbles are treated as fixed 4-bit fields, so a lower nibble of 2
// under an upper nibble of 1 gives 0x12 (18), not 0b110 (6).
//
// Returns ErrInvalidNibble if either input is outside 0-15.
func ReconstructInstance(upper, lower int) (uint8, error) {
	if upper < 0 || upper > maxNibble {
		return 0, fmt.Errorf("%w: upper nibble %d", ErrInvalidNibble, upper)
	}
	if lower < 0 || lower > maxNibble {
		return 0, fmt.Errorf("%w: lower nibble %d", ErrInvalidNibble, lower)
	}
	return uint8(upper<<nibbleBits | lower), nil
}

// SplitInstance is the inverse of ReconstructInstance.
//
// Returns ErrInvalidInstance if instance is outside 0-255.
func SplitInstance(instance int) (upper, lower uint8, err error) {
	if instance < 0 || instance > maxInstance {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidInstance, instance)
	}
	return uint8(instance >> nibbleBits & nibbleMask), uint8(instance & nibbleMask), nil
}

// validInstance checks a decoded instance value and narrows it to a byte.
func validInstance(v int, ok bool) (uint8, error) {
	if !ok {
		return 0, fmt.Errorf("%w: missing or not an integer", ErrInvalidInstance)
	}
	if v < 0 || v > maxInstance {
		return 0, fmt.Errorf("%w: %d", ErrInvalidInstance, v)
	}
	return uint8(v), nil
}
