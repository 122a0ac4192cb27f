package filtering

import (
	"cmp"
	"slices"
	"strings"

	devices "device-insight/internal/devices/domain"
	tiering "device-insight/internal/tiering/domain"
)

// Apply returns the devices matching every active criterion, sorted as
// requested. The input slice is never modified.
func Apply(list []devices.Device, c Criteria, sensorCounts map[string]int, scorer tiering.Scorer) []devices.Device {
	if scorer == nil {
		scorer = tiering.Direct
	}
	m := newMatcher(c)
	out := make([]devices.Device, 0, len(list))
	for _, device := range list {
		if m.match(device, sensorCounts, scorer) {
			out = append(out, device)
		}
	}
	Sort(out, c.SortBy, c.Order(), sensorCounts, scorer)
	return out
}

// Sort orders list in place by key. Equal keys fall back to device id and
// then row id, so the result is the same on every call.
func Sort(list []devices.Device, key SortKey, order SortOrder, sensorCounts map[string]int, scorer tiering.Scorer) {
	if key == SortNone || len(list) < 2 {
		return
	}
	if scorer == nil {
		scorer = tiering.Direct
	}
	rows := make([]ranked, len(list))
	for i, device := range list {
		rows[i].device = device
		if key == SortTierScore {
			rows[i].score = scorer.Evaluate(device, sensorCounts[device.DeviceID]).Score
		}
	}

	slices.SortFunc(rows, func(x, y ranked) int {
		a, b := x.device, y.device
		var c int
		switch key {
		case SortModel:
			c = cmp.Compare(strings.ToLower(a.Model), strings.ToLower(b.Model))
		case SortSensorCount:
			c = cmp.Compare(sensorCounts[a.DeviceID], sensorCounts[b.DeviceID])
		case SortTierScore:
			c = cmp.Compare(x.score, y.score)
		case SortCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case SortMemory:
			c = cmp.Compare(a.TotalMemoryGB, b.TotalMemoryGB)
		case SortStorage:
			c = cmp.Compare(a.TotalStorageGB, b.TotalStorageGB)
		}
		if order == OrderDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c = cmp.Compare(a.DeviceID, b.DeviceID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for i := range rows {
		list[i] = rows[i].device
	}
}

// ranked carries a row's score next to it so rows sharing a device id keep
// their own scores while sorting.
type ranked struct {
	device devices.Device
	score  int
}

type matcher struct {
	search        string
	manufacturers map[string]struct{}
	versions      map[string]struct{}
	tiers         map[tiering.Tier]struct{}
	cores         map[int]struct{}
	memory        *Range
	storage       *Range
}

func newMatcher(c Criteria) matcher {
	m := matcher{
		search:  strings.ToLower(strings.TrimSpace(c.SearchTerm)),
		memory:  c.MemoryRange,
		storage: c.StorageRange,
	}
	m.manufacturers = toSet(c.Manufacturers)
	m.versions = toSet(c.AndroidVersions)
	m.tiers = toSet(c.Tiers)
	m.cores = toSet(c.CPUCores)
	return m
}

func (m matcher) match(d devices.Device, sensorCounts map[string]int, scorer tiering.Scorer) bool {
	if m.search != "" &&
		!strings.Contains(strings.ToLower(d.Model), m.search) &&
		!strings.Contains(strings.ToLower(d.Manufacturer), m.search) &&
		!strings.Contains(strings.ToLower(d.Brand), m.search) {
		return false
	}
	if m.manufacturers != nil {
		if _, ok := m.manufacturers[d.Manufacturer]; !ok {
			return false
		}
	}
	if m.versions != nil {
		if _, ok := m.versions[d.AndroidVersion]; !ok {
			return false
		}
	}
	if m.cores != nil {
		if _, ok := m.cores[d.CPUCores]; !ok {
			return false
		}
	}
	if m.memory != nil && !m.memory.Contains(d.TotalMemoryGB) {
		return false
	}
	if m.storage != nil && !m.storage.Contains(d.TotalStorageGB) {
		return false
	}
	if m.tiers != nil {
		info := scorer.Evaluate(d, sensorCounts[d.DeviceID])
		if _, ok := m.tiers[info.Tier]; !ok {
			return false
		}
	}
	return true
}

func toSet[T comparable](values []T) map[T]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
