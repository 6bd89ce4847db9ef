package switching

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// switchFieldPattern matches a whole field name of the form SwitchN.
var switchFieldPattern = regexp.MustCompile(`^Switch([0-9]+)$`)

// ParseChangedSwitch finds the single SwitchN field of a Switch Control
// message and returns its 1-based index and whether it is "On".
//
// Exactly one SwitchN field must be present: none gives ErrNoSwitchField,
// several give ErrAmbiguousSwitchField and the message is rejected as a
// whole. Switch0 gives ErrInvalidSwitchIndex. Any value other than the
// literal "On" is off.
func ParseChangedSwitch(fields Fields) (index int, on bool, err error) {
	var names []string
	for name := range fields {
		if switchFieldPattern.MatchString(name) {
			names = append(names, name)
		}
	}

	switch len(names) {
	case 0:
		return 0, false, ErrNoSwitchField
	case 1:
	default:
		sort.Strings(names)
		return 0, false, fmt.Errorf("%w: %v", ErrAmbiguousSwitchField, names)
	}

	name := names[0]
	digits := switchFieldPattern.FindStringSubmatch(name)[1]
	index, convErr := strconv.Atoi(digits)
	if convErr != nil || index < 1 {
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidSwitchIndex, name)
	}

	state, _ := fields[name].(string)
	return index, state == StateOn, nil
}
