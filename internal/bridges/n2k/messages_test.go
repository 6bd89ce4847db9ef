package n2k

import (
	"errors"
	"testing"

	"github.com/nerrad567/n2k-switching-core/internal/switching"
)

func TestDecodeInbound(t *testing.T) {
	msg, err := DecodeInbound([]byte(switchControlPayload))
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}

	if msg.PGN != switching.PGNSwitchControl || msg.Src != 1 || msg.Dst != 255 || msg.Prio != 3 {
		t.Errorf("header = %+v", msg)
	}
	if inst, ok := msg.Fields.Int(switching.FieldSwitchBankInstance); !ok || inst != 10 {
		t.Errorf("instance = (%d, %v), want (10, true)", inst, ok)
	}
	if state, _ := msg.Fields.Text("Switch3"); state != switching.StateOn {
		t.Errorf("Switch3 = %q, want On", state)
	}
}

func TestDecodeInbound_CommandList(t *testing.T) {
	msg, err := DecodeInbound([]byte(commandPayload))
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}

	params, err := msg.Fields.Parameters()
	if err != nil {
		t.Fatalf("Parameters() error = %v", err)
	}
	if len(params) != 2 || params[1].Parameter != 4 {
		t.Errorf("params = %+v", params)
	}
}

func TestDecodeInbound_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"garbage", "{pgn"},
		{"no pgn", `{"src":1}`},
		{"negative pgn", `{"pgn":-1}`},
		{"pgn as string", `{"pgn":"127502"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.payload))
			if !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("DecodeInbound() error = %v, want ErrInvalidMessage", err)
			}
		})
	}
}

func TestEncodeOutbound(t *testing.T) {
	out := switching.OutboundMessage{
		PGN: switching.PGNSwitchControl,
		Dst: switching.BroadcastAddress,
		Fields: switching.Fields{
			switching.FieldSwitchBankInstance: 10,
			"Switch3":                         switching.StateOff,
		},
	}

	payload, err := EncodeOutbound(out)
	if err != nil {
		t.Fatalf("EncodeOutbound() error = %v", err)
	}

	want := `{"pgn":127502,"dst":255,"fields":{"Switch Bank Instance":10,"Switch3":"Off"}}`
	if string(payload) != want {
		t.Errorf("EncodeOutbound() = %s, want %s", payload, want)
	}
}
