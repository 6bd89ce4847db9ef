package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/nerrad567/n2k-switching-core/internal/switching"
)

// missingNibble marks an absent instance nibble. It is outside 0-15, so
// the resolver never matches such a record.
const missingNibble = -1

// n2kInfo is the product and address information a source carries.
type n2kInfo struct {
	Src                 json.RawMessage `json:"src"`
	HardwareVersion     json.RawMessage `json:"hardwareVersion"`
	DeviceFunction      *int            `json:"deviceFunction"`
	DeviceInstanceLower *int            `json:"deviceInstanceLower"`
	DeviceInstanceUpper *int            `json:"deviceInstanceUpper"`
	ManufacturerName    string          `json:"manufacturerName"`
	ModelID             string          `json:"modelId"`
}

// ParseSources flattens a nested sources document into registry records.
//
// The document maps a source label to a map of device ids, each holding an
// "n2k" object:
//
//	{"can0": {"type": "NMEA2000",
//	          "34": {"n2k": {"src": "34", "hardwareVersion": "1.0",
//	                         "deviceFunction": 140,
//	                         "deviceInstanceLower": 10, "deviceInstanceUpper": 0}}}}
//
// Values that are not objects are skipped at both levels, as are entries
// without an "n2k" object or a "src" address in 0-253. Records come out in sorted
// label then id order.
func ParseSources(data []byte) (switching.Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSources, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidSources)
	}

	var snapshot switching.Snapshot
	for _, label := range sortedKeys(top) {
		devices, ok := asObject(top[label])
		if !ok {
			continue
		}
		for _, id := range sortedKeys(devices) {
			rec, ok := parseSourceEntry(label, id, devices[id])
			if ok {
				snapshot = append(snapshot, rec)
			}
		}
	}
	return snapshot, nil
}

// parseSourceEntry decodes one device entry. It reports false for entries
// that are not devices.
func parseSourceEntry(label, id string, raw json.RawMessage) (switching.DeviceRecord, bool) {
	entry, ok := asObject(raw)
	if !ok {
		return switching.DeviceRecord{}, false
	}
	n2kRaw, ok := entry["n2k"]
	if !ok {
		return switching.DeviceRecord{}, false
	}

	var info n2kInfo
	if err := json.Unmarshal(n2kRaw, &info); err != nil {
		return switching.DeviceRecord{}, false
	}
	src, ok := rawInt(info.Src)
	if !ok || src < 0 || src > switching.MaxSourceAddress {
		return switching.DeviceRecord{}, false
	}

	rec := switching.DeviceRecord{
		SourceID:        label,
		DeviceID:        id,
		Address:         src,
		HardwareVersion: rawText(info.HardwareVersion),
		InstanceLower:   intOr(info.DeviceInstanceLower, missingNibble),
		InstanceUpper:   intOr(info.DeviceInstanceUpper, missingNibble),
		Manufacturer:    info.ManufacturerName,
		ModelID:         info.ModelID,
	}
	if info.DeviceFunction != nil {
		rec.DeviceFunction = *info.DeviceFunction
	}
	return rec, true
}

// asObject decodes raw as a JSON object; false for any other JSON value.
func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, false
	}
	return m, true
}

// rawInt reads a number or a numeric string.
func rawInt(raw json.RawMessage) (int, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// rawText reads a string, or the literal text of any other value. Values
// a source uses to mean "absent" (null, false, 0, "") read as empty.
func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil && n == 0 {
		return ""
	}
	return string(trimmed)
}

func intOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
