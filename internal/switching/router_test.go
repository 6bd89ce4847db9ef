package switching

import (
	"errors"
	"testing"
)

type staticSource struct {
	snapshot Snapshot
	calls    int
}

func (s *staticSource) Snapshot() Snapshot {
	s.calls++
	return s.snapshot
}

type recordingEmitter struct {
	sent []OutboundMessage
	err  error
}

func (e *recordingEmitter) Emit(msg OutboundMessage) error {
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, msg)
	return nil
}

type recordingDiagnostics struct {
	events []Event
}

func (d *recordingDiagnostics) Report(ev Event) {
	d.events = append(d.events, ev)
}

func switchControl(instance int, field, state string) InboundMessage {
	return InboundMessage{PGN: PGNSwitchControl, Src: 1, Fields: Fields{
		FieldSwitchBankInstance: instance,
		field:                   state,
	}}
}

func switchCommand(instance, position, value int) InboundMessage {
	return InboundMessage{PGN: PGNCommandGroupFunction, Src: 2, Dst: 34, Prio: 3, Fields: Fields{
		FieldFunctionCode: FunctionCodeCommand,
		FieldPGN:          PGNBinarySwitchBankStatus,
		FieldList:         []Parameter{{Parameter: 1, Value: instance}, {Parameter: position, Value: value}},
	}}
}

func newTestRouter(t *testing.T, opts Options) (*Router, *staticSource, *recordingEmitter, *recordingDiagnostics) {
	t.Helper()
	source := &staticSource{snapshot: Snapshot{switchBank("bank", 34, 0, 10)}}
	emitter := &recordingEmitter{}
	diag := &recordingDiagnostics{}
	r, err := NewRouter(RouterOptions{Options: opts, Source: source, Emitter: emitter, Diagnostics: diag})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return r, source, emitter, diag
}

func TestNewRouter_Validation(t *testing.T) {
	if _, err := NewRouter(RouterOptions{Emitter: &recordingEmitter{}}); err == nil {
		t.Error("NewRouter() without source should fail")
	}
	if _, err := NewRouter(RouterOptions{Source: &staticSource{}}); err == nil {
		t.Error("NewRouter() without emitter should fail")
	}
}

func TestRoute_FlagGating(t *testing.T) {
	control := switchControl(10, "Switch1", StateOn)
	command := switchCommand(10, 2, 1)
	snapshot := Snapshot{switchBank("bank", 34, 0, 10)}

	tests := []struct {
		name          string
		opts          Options
		msg           InboundMessage
		wantDirection Direction
		wantOutcome   Outcome
	}{
		{"both off control", Options{}, control, DirectionNone, OutcomeIgnored},
		{"both off command", Options{}, command, DirectionNone, OutcomeIgnored},
		{"control enabled", Options{ConvertSwitchControlToCommand: true}, control, DirectionSwitchControlToCommand, OutcomeTranslated},
		{"control enabled ignores command", Options{ConvertSwitchControlToCommand: true}, command, DirectionNone, OutcomeIgnored},
		{"command enabled", Options{ConvertCommandToSwitchControl: true}, command, DirectionCommandToSwitchControl, OutcomeTranslated},
		{"command enabled ignores control", Options{ConvertCommandToSwitchControl: true}, control, DirectionNone, OutcomeIgnored},
		{"other pgn", Options{ConvertSwitchControlToCommand: true, ConvertCommandToSwitchControl: true}, InboundMessage{PGN: 127501}, DirectionNone, OutcomeIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Route(tt.msg, tt.opts, snapshot)
			if res.Direction != tt.wantDirection {
				t.Errorf("Direction = %s, want %s", res.Direction, tt.wantDirection)
			}
			if res.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.wantOutcome)
			}
			if (res.Output != nil) != (tt.wantOutcome == OutcomeTranslated) {
				t.Errorf("Output = %v for outcome %s", res.Output, res.Outcome)
			}
		})
	}
}

func TestRouter_Handle_Translates(t *testing.T) {
	r, source, emitter, diag := newTestRouter(t, Options{
		ConvertSwitchControlToCommand: true,
		ConvertCommandToSwitchControl: true,
	})

	ev := r.Handle(switchControl(10, "Switch3", StateOn))
	if ev.Outcome != OutcomeTranslated {
		t.Fatalf("Outcome = %s, want translated (err %v)", ev.Outcome, ev.Err)
	}
	if ev.ID == "" {
		t.Error("event ID is empty")
	}
	if ev.InputPGN != PGNSwitchControl {
		t.Errorf("InputPGN = %d", ev.InputPGN)
	}
	if len(emitter.sent) != 1 || emitter.sent[0].Dst != 34 {
		t.Fatalf("emitted %+v, want one message to 34", emitter.sent)
	}
	if source.calls != 1 {
		t.Errorf("snapshot fetched %d times, want 1", source.calls)
	}

	r.Handle(switchCommand(10, 4, 1))
	if len(emitter.sent) != 2 || emitter.sent[1].PGN != PGNSwitchControl {
		t.Fatalf("emitted %+v, want a Switch Control second", emitter.sent)
	}
	if source.calls != 1 {
		t.Errorf("Command direction fetched the snapshot")
	}
	if len(diag.events) != 2 {
		t.Errorf("reported %d events, want 2", len(diag.events))
	}
}

func TestRouter_Handle_SkipIsNotAnError(t *testing.T) {
	r, _, emitter, diag := newTestRouter(t, Options{ConvertCommandToSwitchControl: true})

	msg := switchCommand(10, 2, 1)
	msg.Fields[FieldFunctionCode] = "Acknowledge"

	ev := r.Handle(msg)
	if ev.Outcome != OutcomeSkipped {
		t.Fatalf("Outcome = %s, want skipped", ev.Outcome)
	}
	if ev.Err != nil || ev.Error != "" {
		t.Errorf("skip carried error %v", ev.Err)
	}
	if len(emitter.sent) != 0 {
		t.Errorf("skip emitted %d messages", len(emitter.sent))
	}
	if len(diag.events) != 1 {
		t.Errorf("reported %d events, want 1", len(diag.events))
	}
}

func TestRouter_Handle_ErrorsAreContained(t *testing.T) {
	r, _, emitter, diag := newTestRouter(t, Options{ConvertSwitchControlToCommand: true})

	bad := r.Handle(switchControl(99, "Switch1", StateOn))
	if bad.Outcome != OutcomeFailed || !errors.Is(bad.Err, ErrDeviceNotFound) {
		t.Fatalf("Outcome = %s err %v, want failed with ErrDeviceNotFound", bad.Outcome, bad.Err)
	}
	if bad.Error == "" {
		t.Error("failed event has no error text")
	}

	good := r.Handle(switchControl(10, "Switch1", StateOff))
	if good.Outcome != OutcomeTranslated {
		t.Fatalf("message after a failure: Outcome = %s, err %v", good.Outcome, good.Err)
	}
	if len(emitter.sent) != 1 {
		t.Errorf("emitted %d messages, want 1", len(emitter.sent))
	}
	if len(diag.events) != 2 || diag.events[0].Outcome != OutcomeFailed {
		t.Errorf("diagnostics = %+v", diag.events)
	}
}

func TestRouter_Handle_EmitFailure(t *testing.T) {
	r, _, emitter, _ := newTestRouter(t, Options{ConvertSwitchControlToCommand: true})
	emitter.err = errors.New("broker down")

	ev := r.Handle(switchControl(10, "Switch1", StateOn))
	if ev.Outcome != OutcomeFailed {
		t.Fatalf("Outcome = %s, want failed", ev.Outcome)
	}
	if !errors.Is(ev.Err, ErrEmitFailed) {
		t.Errorf("Err = %v, want ErrEmitFailed", ev.Err)
	}
	if ev.Output == nil {
		t.Error("failed emit should keep the translated output for diagnostics")
	}
}

func TestRouter_Options(t *testing.T) {
	opts := Options{ConvertCommandToSwitchControl: true}
	r, _, _, _ := newTestRouter(t, opts)
	if r.Options() != opts {
		t.Errorf("Options() = %+v, want %+v", r.Options(), opts)
	}
}
