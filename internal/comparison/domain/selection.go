package comparison

import (
	"fmt"
	"time"

	devices "device-insight/internal/devices/domain"
)

// MaxSelected caps how many devices are compared side by side.
const MaxSelected = 4

// Selection is an ordered, de-duplicated set of devices to compare.
type Selection struct {
	devices []devices.Device
}

// NewSelection keeps the first occurrence of each device id.
func NewSelection(list []devices.Device) (Selection, error) {
	seen := make(map[string]struct{}, len(list))
	out := make([]devices.Device, 0, len(list))
	for _, device := range list {
		if _, ok := seen[device.DeviceID]; ok {
			continue
		}
		seen[device.DeviceID] = struct{}{}
		out = append(out, device)
	}
	if len(out) > MaxSelected {
		return Selection{}, fmt.Errorf("%w: %d > %d", ErrTooManyDevices, len(out), MaxSelected)
	}
	return Selection{devices: out}, nil
}

// Devices returns a copy of the selected devices.
func (s Selection) Devices() []devices.Device {
	return append([]devices.Device(nil), s.devices...)
}

// IDs returns the selected device ids in order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s.devices))
	for _, device := range s.devices {
		ids = append(ids, device.DeviceID)
	}
	return ids
}

func (s Selection) Len() int { return len(s.devices) }

// HardwareRow is one attribute laid out across the selected devices.
type HardwareRow struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
	// HighlightIndex points at the largest numeric value, or -1.
	HighlightIndex int `json:"highlight_index"`
}

// HardwareRows builds the side-by-side hardware table.
func HardwareRows(selected []devices.Device, sensorCounts map[string]int) []HardwareRow {
	text := func(label string, value func(devices.Device) string) HardwareRow {
		row := HardwareRow{Label: label, Values: make([]string, 0, len(selected)), HighlightIndex: -1}
		for _, device := range selected {
			row.Values = append(row.Values, orDash(value(device)))
		}
		return row
	}
	numeric := func(label string, value func(devices.Device) float64, format func(float64) string) HardwareRow {
		row := HardwareRow{Label: label, Values: make([]string, 0, len(selected))}
		nums := make([]float64, 0, len(selected))
		for _, device := range selected {
			v := value(device)
			nums = append(nums, v)
			row.Values = append(row.Values, format(v))
		}
		row.HighlightIndex = highlightMax(nums)
		return row
	}
	gb := func(v float64) string { return fmt.Sprintf("%.1f GB", v) }
	count := func(v float64) string { return fmt.Sprintf("%d", int(v)) }

	return []HardwareRow{
		text("Manufacturer", func(d devices.Device) string { return d.Manufacturer }),
		text("Brand", func(d devices.Device) string { return d.Brand }),
		text("Android version", func(d devices.Device) string { return d.AndroidVersion }),
		numeric("SDK", func(d devices.Device) float64 { return float64(d.SDKVersion) }, count),
		numeric("CPU cores", func(d devices.Device) float64 { return float64(d.CPUCores) }, count),
		numeric("Memory", func(d devices.Device) float64 { return d.TotalMemoryGB }, gb),
		numeric("Storage", func(d devices.Device) float64 { return d.TotalStorageGB }, gb),
		numeric("Sensors", func(d devices.Device) float64 { return float64(sensorCounts[d.DeviceID]) }, count),
		text("Carrier", func(d devices.Device) string { return d.CarrierName }),
		text("Registered", func(d devices.Device) string {
			if d.CreatedAt.IsZero() {
				return ""
			}
			return d.CreatedAt.UTC().Format(time.DateOnly)
		}),
	}
}

func highlightMax(values []float64) int {
	best := -1
	for i, v := range values {
		if v <= 0 {
			continue
		}
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
