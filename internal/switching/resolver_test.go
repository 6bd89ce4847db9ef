package switching

import (
	"errors"
	"testing"
)

func switchBank(sourceID string, address, upper, lower int) DeviceRecord {
	return DeviceRecord{
		SourceID:        sourceID,
		DeviceID:        "c0ffee",
		Address:         address,
		HardwareVersion: "1.0",
		DeviceFunction:  SwitchBankDeviceFunction,
		InstanceUpper:   upper,
		InstanceLower:   lower,
	}
}

func TestFindDeviceByInstance(t *testing.T) {
	noHardware := switchBank("no-hw", 10, 0, 10)
	noHardware.HardwareVersion = ""

	wrongFunction := switchBank("wrong-fn", 11, 0, 10)
	wrongFunction.DeviceFunction = 130

	badNibble := switchBank("bad-nibble", 12, 0, 26)
	highAddress := switchBank("high-address", 300, 0, 5)
	negativeAddress := switchBank("negative-address", -4, 0, 5)
	nullAddress := switchBank("null-address", 254, 0, 7)

	snapshot := Snapshot{
		noHardware,
		wrongFunction,
		badNibble,
		highAddress,
		negativeAddress,
		nullAddress,
		switchBank("bank-a", 34, 0, 10),
		switchBank("bank-d", 253, 0, 7),
		switchBank("bank-b", 35, 0, 10),
		switchBank("bank-c", 36, 1, 2),
	}

	tests := []struct {
		name     string
		instance uint8
		wantAddr int
		wantErr  error
	}{
		{"first qualifying match wins", 10, 34, nil},
		{"nibbles joined at fixed width", 0x12, 36, nil},
		{"unpadded join does not match", 6, 0, ErrDeviceNotFound},
		{"unknown instance", 200, 0, ErrDeviceNotFound},
		{"out of range addresses skipped", 5, 0, ErrDeviceNotFound},
		{"null address skipped, highest claimable matches", 7, 253, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindDeviceByInstance(snapshot, tt.instance)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got.Address != tt.wantAddr {
				t.Errorf("Address = %d, want %d", got.Address, tt.wantAddr)
			}
		})
	}
}

func TestFindDeviceByInstance_EmptySnapshot(t *testing.T) {
	if _, err := FindDeviceByInstance(nil, 0); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("error = %v, want ErrDeviceNotFound", err)
	}
}

func TestHasValidAddress(t *testing.T) {
	for addr, want := range map[int]bool{-1: false, 0: true, 253: true, 254: false, 255: false, 300: false} {
		if got := (DeviceRecord{Address: addr}).HasValidAddress(); got != want {
			t.Errorf("HasValidAddress(%d) = %v, want %v", addr, got, want)
		}
	}
}

func TestSnapshot_SwitchBanks(t *testing.T) {
	other := switchBank("other", 1, 0, 0)
	other.DeviceFunction = 150

	banks := Snapshot{other, switchBank("a", 2, 0, 1), switchBank("b", 3, 0, 2)}.SwitchBanks()
	if len(banks) != 2 {
		t.Fatalf("len(SwitchBanks) = %d, want 2", len(banks))
	}
	if banks[0].SourceID != "a" || banks[1].SourceID != "b" {
		t.Errorf("SwitchBanks order = %s,%s, want a,b", banks[0].SourceID, banks[1].SourceID)
	}
}
