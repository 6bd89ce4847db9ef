// Package switching translates between the two NMEA 2000 message families
// used to drive switch banks.
//
// Switch Control (PGN 127502) is a broadcast carrying the bank instance and
// one "SwitchN" field. Some equipment only understands a Command Group
// Function (PGN 126208, function code "Command") that wraps PGN 127501 as a
// two-entry parameter list:
//
//	parameter 1: switch bank instance
//	parameter N: switch N-1, value 1 (on) or 0 (off)
//
// The parameter position of a switch is always its Switch index plus one,
// because position 1 is taken by the instance.
//
// Command messages are unicast, so translating Switch Control into a Command
// needs the bus address of the switch bank. That address is resolved from a
// read-only registry Snapshot by matching the 8-bit instance rebuilt from the
// device's two 4-bit instance fields.
//
// # Components
//
//   - ReconstructInstance / SplitInstance: nibble arithmetic
//   - FindDeviceByInstance: registry lookup
//   - ParseChangedSwitch: picks the single SwitchN field out of a message
//   - SwitchControlToCommand / CommandToSwitchControl: the translators
//   - Route / Router: flag-gated dispatch with diagnostics
//
// Everything in this package is a pure function of one InboundMessage and a
// Snapshot. There is no package-level mutable state.
package switching
