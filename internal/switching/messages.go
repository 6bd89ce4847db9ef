package switching

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Parameter Group Numbers handled by the translator.
const (
	// PGNSwitchControl is the Switch Control broadcast (127502).
	PGNSwitchControl = 127502

	// PGNCommandGroupFunction is the Command/Request/Acknowledge group
	// function (126208).
	PGNCommandGroupFunction = 126208

	// PGNBinarySwitchBankStatus is the PGN wrapped by a switch Command
	// (127501).
	PGNBinarySwitchBankStatus = 127501
)

// Addressing and priority values used on emitted messages.
const (
	// BroadcastAddress is the NMEA 2000 global destination.
	BroadcastAddress = 255

	// MaxSourceAddress is the highest address a device can claim. 254 is
	// the cannot-claim null address and 255 is broadcast.
	MaxSourceAddress = 253

	// CommandPriority is the bus priority of an emitted Command message.
	CommandPriority = 3

	// CommandTargetPriority is the "Priority" field inside the Command,
	// which asks the receiver to leave the target PGN priority unchanged.
	CommandTargetPriority = 8

	// commandParameterCount is the fixed size of a switch Command list.
	commandParameterCount = 2
)

// Field names as produced by the analyzer JSON output.
const (
	FieldSwitchBankInstance = "Switch Bank Instance"
	FieldFunctionCode       = "Function Code"
	FieldPGN                = "PGN"
	FieldPriority           = "Priority"
	FieldParameterCount     = "# of Parameters"
	FieldList               = "list"

	// FunctionCodeCommand is the only function code that is translated.
	FunctionCodeCommand = "Command"

	// StateOn and StateOff are the Switch Control values.
	StateOn  = "On"
	StateOff = "Off"

	// switchFieldPrefix starts every per-switch field name ("Switch3").
	switchFieldPrefix = "Switch"

	// commandValueOn is the textual "on" a Command value may carry.
	commandValueOn = "on"
)

// Fields is the decoded field set of one message.
//
// Values are whatever the analyzer JSON decoder produced: strings, float64
// or json.Number for numbers, and []any of map[string]any for the Command
// list. Messages built in Go may also hold ints and []Parameter directly.
type Fields map[string]any

// InboundMessage is one decoded bus message. It is treated as immutable.
type InboundMessage struct {
	PGN    int    `json:"pgn"`
	Src    int    `json:"src,omitempty"`
	Dst    int    `json:"dst,omitempty"`
	Prio   int    `json:"prio,omitempty"`
	Fields Fields `json:"fields"`
}

// OutboundMessage is a message ready for the bus emitter.
type OutboundMessage struct {
	PGN    int    `json:"pgn"`
	Dst    int    `json:"dst"`
	Prio   int    `json:"prio,omitempty"`
	Fields Fields `json:"fields"`
}

// Parameter is one entry of a Command parameter list. Position 1 is always
// the bank instance; position 2 onward addresses switch (position - 1).
type Parameter struct {
	Parameter int `json:"Parameter"`
	Value     any `json:"Value"`
}

// Int returns the named field as an integer.
// It reports false if the field is missing or not integral.
func (f Fields) Int(name string) (int, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	return asInt(v)
}

// Text returns the named field as a string.
// It reports false if the field is missing or not a string.
func (f Fields) Text(name string) (string, bool) {
	v, ok := f[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Parameters returns the Command parameter list in order.
func (f Fields) Parameters() ([]Parameter, error) {
	raw, ok := f[FieldList]
	if !ok {
		return nil, fmt.Errorf("%w: no %q field", ErrMalformedCommand, FieldList)
	}

	switch list := raw.(type) {
	case []Parameter:
		return list, nil
	case []any:
		params := make([]Parameter, 0, len(list))
		for i, item := range list {
			p, err := toParameter(item)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: %w", ErrMalformedCommand, i, err)
			}
			params = append(params, p)
		}
		return params, nil
	default:
		return nil, fmt.Errorf("%w: %q is %T", ErrMalformedCommand, FieldList, raw)
	}
}

// toParameter converts one decoded list entry.
func toParameter(item any) (Parameter, error) {
	switch p := item.(type) {
	case Parameter:
		return p, nil
	case map[string]any:
		pos, ok := asInt(lookupKey(p, "Parameter"))
		if !ok {
			return Parameter{}, fmt.Errorf("parameter position is %v", lookupKey(p, "Parameter"))
		}
		return Parameter{Parameter: pos, Value: lookupKey(p, "Value")}, nil
	default:
		return Parameter{}, fmt.Errorf("unexpected entry type %T", item)
	}
}

// lookupKey reads key, falling back to its lower-case spelling.
func lookupKey(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	return m[strings.ToLower(key)]
}

// asInt normalises the numeric types a decoder or caller may hand us.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// switchFieldName builds "SwitchN".
func switchFieldName(index int) string {
	return fmt.Sprintf("%s%d", switchFieldPrefix, index)
}
