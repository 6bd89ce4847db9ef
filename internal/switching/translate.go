package switching

import "fmt"

// SwitchControlToCommand translates a Switch Control message (127502) into
// a Command (126208) addressed to the switch bank that owns the instance.
//
// The switch index becomes parameter position index+1 and the state becomes
// 1 (On) or 0 (anything else). The destination is resolved from snapshot;
// if no switch bank matches, ErrDeviceNotFound is returned and nothing may
// be emitted.
func SwitchControlToCommand(msg InboundMessage, snapshot Snapshot) (OutboundMessage, error) {
	instance, err := validInstance(msg.Fields.Int(FieldSwitchBankInstance))
	if err != nil {
		return OutboundMessage{}, err
	}

	switchIndex, on, err := ParseChangedSwitch(msg.Fields)
	if err != nil {
		return OutboundMessage{}, err
	}

	parameterIndex := switchIndex + 1
	value := 0
	if on {
		value = 1
	}

	device, err := FindDeviceByInstance(snapshot, instance)
	if err != nil {
		return OutboundMessage{}, err
	}

	return OutboundMessage{
		PGN:  PGNCommandGroupFunction,
		Dst:  device.Address,
		Prio: CommandPriority,
		Fields: Fields{
			FieldFunctionCode:   FunctionCodeCommand,
			FieldPGN:            PGNBinarySwitchBankStatus,
			FieldPriority:       CommandTargetPriority,
			FieldParameterCount: commandParameterCount,
			FieldList: []Parameter{
				{Parameter: 1, Value: int(instance)},
				{Parameter: parameterIndex, Value: value},
			},
		},
	}, nil
}

// IsSwitchCommand reports whether a Command message carries switch bank
// control: function code "Command" targeting PGN 127501.
func IsSwitchCommand(fields Fields) bool {
	code, _ := fields.Text(FieldFunctionCode)
	if code != FunctionCodeCommand {
		return false
	}
	pgn, ok := fields.Int(FieldPGN)
	return ok && pgn == PGNBinarySwitchBankStatus
}

// CommandToSwitchControl translates a switch Command (126208) into a
// broadcast Switch Control message (127502).
//
// Commands that are not switch commands are skipped: ok is false and err is
// nil. A value of 1 or "on" becomes "On"; everything else is "Off".
func CommandToSwitchControl(msg InboundMessage) (out OutboundMessage, ok bool, err error) {
	if !IsSwitchCommand(msg.Fields) {
		return OutboundMessage{}, false, nil
	}

	params, err := msg.Fields.Parameters()
	if err != nil {
		return OutboundMessage{}, false, err
	}
	if len(params) < commandParameterCount {
		return OutboundMessage{}, false, fmt.Errorf("%w: %d parameters, want %d",
			ErrMalformedCommand, len(params), commandParameterCount)
	}

	instance, err := validInstance(asInt(params[0].Value))
	if err != nil {
		return OutboundMessage{}, false, err
	}

	parameterIndex := params[1].Parameter
	switchIndex := parameterIndex - 1
	if switchIndex < 1 {
		return OutboundMessage{}, false, fmt.Errorf("%w: parameter position %d", ErrInvalidSwitchIndex, parameterIndex)
	}

	state := StateOff
	if commandValueIsOn(params[1].Value) {
		state = StateOn
	}

	return OutboundMessage{
		PGN: PGNSwitchControl,
		Dst: BroadcastAddress,
		Fields: Fields{
			FieldSwitchBankInstance:     int(instance),
			switchFieldName(switchIndex): state,
		},
	}, true, nil
}

// commandValueIsOn accepts the numeric 1 or the lower-case token "on".
func commandValueIsOn(v any) bool {
	if s, isString := v.(string); isString {
		return s == commandValueOn
	}
	n, isInt := asInt(v)
	return isInt && n == 1
}
