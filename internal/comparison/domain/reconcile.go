package comparison

import (
	"sort"

	devices "device-insight/internal/devices/domain"
)

// Entry is one distinct sensor capability in a comparison.
type Entry struct {
	Type     int    `json:"type"`
	TypeName string `json:"type_name"`
	Name     string `json:"name"`
}

// Group collects entries sharing a type name.
type Group struct {
	TypeName string  `json:"type_name"`
	Entries  []Entry `json:"entries"`
}

// SensorDetail describes how one device implements a sensor type.
type SensorDetail struct {
	Vendor       string `json:"vendor"`
	Version      int    `json:"version"`
	OriginalName string `json:"original_name"`
}

// Result is the sensor reconciliation of a set of devices.
type Result struct {
	Groups      []Group `json:"groups"`
	CommonCount int     `json:"common_count"`
	TotalCount  int     `json:"total_count"`

	deviceIDs []string
	sensors   map[string][]devices.Sensor
}

// Reconcile merges the sensor lists of the selected devices by numeric type.
// The first name seen for a type wins; type names only drive grouping.
func Reconcile(selected []devices.Device, sensorsByDevice map[string][]devices.Sensor) Result {
	result := Result{
		Groups:    []Group{},
		deviceIDs: make([]string, 0, len(selected)),
		sensors:   sensorsByDevice,
	}
	if len(selected) == 0 {
		return result
	}

	registry := make(map[int]Entry)
	for _, device := range selected {
		result.deviceIDs = append(result.deviceIDs, device.DeviceID)
		for _, sensor := range sensorsByDevice[device.DeviceID] {
			if _, seen := registry[sensor.Type]; seen {
				continue
			}
			registry[sensor.Type] = Entry{Type: sensor.Type, TypeName: sensor.TypeName, Name: sensor.Name}
		}
	}
	result.TotalCount = len(registry)

	byName := make(map[string][]Entry)
	for _, entry := range registry {
		byName[entry.TypeName] = append(byName[entry.TypeName], entry)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entries := byName[name]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Type < entries[j].Type })
		result.Groups = append(result.Groups, Group{TypeName: name, Entries: entries})
	}

	perDevice := make([]map[int]struct{}, 0, len(selected))
	for _, device := range selected {
		types := make(map[int]struct{})
		for _, sensor := range sensorsByDevice[device.DeviceID] {
			types[sensor.Type] = struct{}{}
		}
		perDevice = append(perDevice, types)
	}
	for sensorType := range registry {
		common := true
		for _, types := range perDevice {
			if _, ok := types[sensorType]; !ok {
				common = false
				break
			}
		}
		if common {
			result.CommonCount++
		}
	}
	return result
}

// Presence looks up the sensor of the given type on a device.
func (r Result) Presence(deviceID string, sensorType int) (SensorDetail, bool) {
	for _, sensor := range r.sensors[deviceID] {
		if sensor.Type == sensorType {
			return SensorDetail{Vendor: sensor.Vendor, Version: sensor.Version, OriginalName: sensor.Name}, true
		}
	}
	return SensorDetail{}, false
}

// Cell is the presence of one entry on one device.
type Cell struct {
	DeviceID string        `json:"device_id"`
	Present  bool          `json:"present"`
	Detail   *SensorDetail `json:"detail,omitempty"`
}

// Row is one entry across all selected devices.
type Row struct {
	Entry
	Cells []Cell `json:"cells"`
}

// Matrix lists every entry, in group order, with per-device presence.
func (r Result) Matrix() []Row {
	var rows []Row
	for _, group := range r.Groups {
		for _, entry := range group.Entries {
			row := Row{Entry: entry, Cells: make([]Cell, 0, len(r.deviceIDs))}
			for _, id := range r.deviceIDs {
				cell := Cell{DeviceID: id}
				if detail, ok := r.Presence(id, entry.Type); ok {
					d := detail
					cell.Present = true
					cell.Detail = &d
				}
				row.Cells = append(row.Cells, cell)
			}
			rows = append(rows, row)
		}
	}
	return rows
}
