package switching

import "fmt"

// SwitchBankDeviceFunction is the NMEA device function code of a switch
// bank module.
const SwitchBankDeviceFunction = 140

// DeviceRecord is one device entry of the external source registry.
type DeviceRecord struct {
	// SourceID and DeviceID identify the entry in the registry.
	SourceID string `json:"source_id"`
	DeviceID string `json:"device_id"`

	// Address is the device's source address on the bus.
	Address int `json:"address"`

	// HardwareVersion is empty when the device never reported one.
	HardwareVersion string `json:"hardware_version,omitempty"`

	DeviceFunction int `json:"device_function"`
	InstanceLower  int `json:"device_instance_lower"`
	InstanceUpper  int `json:"device_instance_upper"`

	Manufacturer string `json:"manufacturer,omitempty"`
	ModelID      string `json:"model_id,omitempty"`
}

// HasHardwareVersion reports whether the device exposed product
// information. Devices without it have not completed address claiming and
// product discovery, and are never command targets.
func (d DeviceRecord) HasHardwareVersion() bool {
	return d.HardwareVersion != ""
}

// HasValidAddress reports whether Address is a claimable source address.
func (d DeviceRecord) HasValidAddress() bool {
	return d.Address >= 0 && d.Address <= MaxSourceAddress
}

// IsSwitchBank reports whether the device qualifies as a switch bank.
func (d DeviceRecord) IsSwitchBank() bool {
	return d.HasHardwareVersion() && d.DeviceFunction == SwitchBankDeviceFunction
}

// Instance rebuilds the device's 8-bit instance from its two nibbles.
func (d DeviceRecord) Instance() (uint8, error) {
	return ReconstructInstance(d.InstanceUpper, d.InstanceLower)
}

// Snapshot is a read-only view of the source registry for one dispatch.
// Its order is the registry's iteration order.
type Snapshot []DeviceRecord

// SwitchBanks returns the qualifying switch bank devices in snapshot order.
func (s Snapshot) SwitchBanks() []DeviceRecord {
	var banks []DeviceRecord
	for _, d := range s {
		if d.IsSwitchBank() {
			banks = append(banks, d)
		}
	}
	return banks
}

// FindDeviceByInstance returns the first switch bank in the snapshot whose
// rebuilt instance equals instance.
//
// A candidate must have a hardware version, device function 140, a source
// address in 0-253 and valid instance nibbles. When several devices share an instance the first one in
// snapshot order wins; the registry does not promise a stable order, so such
// installations may address a different module between refreshes.
//
// Returns ErrDeviceNotFound if nothing qualifies.
func FindDeviceByInstance(snapshot Snapshot, instance uint8) (DeviceRecord, error) {
	for _, d := range snapshot {
		if !d.IsSwitchBank() || !d.HasValidAddress() {
			continue
		}
		got, err := d.Instance()
		if err != nil {
			continue
		}
		if got == instance {
			return d, nil
		}
	}
	return DeviceRecord{}, fmt.Errorf("%w: %d", ErrDeviceNotFound, instance)
}
