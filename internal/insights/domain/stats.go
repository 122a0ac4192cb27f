package insights

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	devices "device-insight/internal/devices/domain"
	tiering "device-insight/internal/tiering/domain"
)

// DefaultTopSensors is how many sensor names FleetStats reports.
const DefaultTopSensors = 10

// memoryBucketGB is the width of a memory distribution bucket.
const memoryBucketGB = 4

// Bucket is one histogram bar.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FleetStats summarises a device fleet.
type FleetStats struct {
	TotalDevices       int      `json:"total_devices"`
	TotalSensors       int      `json:"total_sensors"`
	AndroidVersions    []Bucket `json:"android_versions"`
	Manufacturers      []Bucket `json:"manufacturers"`
	AvgMemoryGB        float64  `json:"avg_memory_gb"`
	AvgStorageGB       float64  `json:"avg_storage_gb"`
	TopSensors         []Bucket `json:"top_sensors"`
	MemoryDistribution []Bucket `json:"memory_distribution"`
}

// ComputeFleetStats builds fleet statistics from devices and the name of every
// sensor row. topN <= 0 uses DefaultTopSensors.
func ComputeFleetStats(list []devices.Device, sensorNames []string, topN int) FleetStats {
	if topN <= 0 {
		topN = DefaultTopSensors
	}
	stats := FleetStats{
		TotalDevices:       len(list),
		TotalSensors:       len(sensorNames),
		AndroidVersions:    versionHistogram(list),
		Manufacturers:      manufacturerHistogram(list),
		TopSensors:         topNames(sensorNames, topN),
		MemoryDistribution: memoryDistribution(list),
	}

	var memSum, storageSum float64
	var withBoth int
	for _, d := range list {
		if !positive(d.TotalMemoryGB) || !positive(d.TotalStorageGB) {
			continue
		}
		memSum += d.TotalMemoryGB
		storageSum += d.TotalStorageGB
		withBoth++
	}
	if withBoth > 0 {
		stats.AvgMemoryGB = memSum / float64(withBoth)
		stats.AvgStorageGB = storageSum / float64(withBoth)
	}
	return stats
}

func versionHistogram(list []devices.Device) []Bucket {
	counts := make(map[string]int)
	for _, d := range list {
		version := d.AndroidVersion
		if version == "" {
			version = "unknown"
		}
		counts[version]++
	}
	out := toBuckets(counts)
	slices.SortFunc(out, func(a, b Bucket) int {
		if c := cmp.Compare(tiering.ParseVersion(b.Label), tiering.ParseVersion(a.Label)); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

func manufacturerHistogram(list []devices.Device) []Bucket {
	counts := make(map[string]int)
	for _, d := range list {
		name := d.Manufacturer
		if name == "" {
			name = "unknown"
		}
		counts[name]++
	}
	out := toBuckets(counts)
	slices.SortFunc(out, byCountDesc)
	return out
}

func topNames(names []string, n int) []Bucket {
	counts := make(map[string]int)
	for _, name := range names {
		if name == "" {
			continue
		}
		counts[name]++
	}
	out := toBuckets(counts)
	slices.SortFunc(out, byCountDesc)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func memoryDistribution(list []devices.Device) []Bucket {
	counts := make(map[int]int)
	for _, d := range list {
		if !positive(d.TotalMemoryGB) {
			continue
		}
		counts[int(math.Floor(d.TotalMemoryGB/memoryBucketGB))]++
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		lo := k * memoryBucketGB
		out = append(out, Bucket{Label: fmt.Sprintf("%d-%dGB", lo, lo+memoryBucketGB-1), Count: counts[k]})
	}
	return out
}

func toBuckets(counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for label, count := range counts {
		out = append(out, Bucket{Label: label, Count: count})
	}
	return out
}

func byCountDesc(a, b Bucket) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(a.Label, b.Label)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
