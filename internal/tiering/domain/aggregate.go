package tiering

import (
	devices "device-insight/internal/devices/domain"
)

// TierStats summarizes the devices that fell into one tier.
type TierStats struct {
	Count        int              `json:"count"`
	AvgMemoryGB  float64          `json:"avg_memory_gb"`
	AvgStorageGB float64          `json:"avg_storage_gb"`
	AvgSensors   float64          `json:"avg_sensors"`
	Members      []devices.Device `json:"members"`
}

// Stats maps every tier to its statistics. All four tiers are always present.
type Stats map[Tier]*TierStats

// TierSummary is one row of Stats in display order.
type TierSummary struct {
	Tier Tier `json:"tier"`
	TierStats
}

// Aggregate partitions devices by tier and averages each partition.
func Aggregate(list []devices.Device, sensorCounts map[string]int) Stats {
	return AggregateWith(Direct, list, sensorCounts)
}

// AggregateWith is Aggregate using the given scorer.
func AggregateWith(scorer Scorer, list []devices.Device, sensorCounts map[string]int) Stats {
	if scorer == nil {
		scorer = Direct
	}
	stats := make(Stats, len(severityOrder))
	for _, tier := range severityOrder {
		stats[tier] = &TierStats{Members: []devices.Device{}}
	}

	for _, device := range list {
		info := scorer.Evaluate(device, sensorCounts[device.DeviceID])
		bucket := stats[info.Tier]
		bucket.Count++
		bucket.Members = append(bucket.Members, device)
	}

	for _, bucket := range stats {
		if bucket.Count == 0 {
			continue
		}
		var memory, storage, sensors float64
		for _, device := range bucket.Members {
			memory += device.TotalMemoryGB
			storage += device.TotalStorageGB
			sensors += float64(sensorCounts[device.DeviceID])
		}
		n := float64(bucket.Count)
		bucket.AvgMemoryGB = memory / n
		bucket.AvgStorageGB = storage / n
		bucket.AvgSensors = sensors / n
	}
	return stats
}

// Total returns the number of aggregated devices.
func (s Stats) Total() int {
	total := 0
	for _, bucket := range s {
		if bucket != nil {
			total += bucket.Count
		}
	}
	return total
}

// Ordered lists the tiers from flagship to entry.
func (s Stats) Ordered() []TierSummary {
	out := make([]TierSummary, 0, len(severityOrder))
	for _, tier := range severityOrder {
		bucket := s[tier]
		if bucket == nil {
			bucket = &TierStats{Members: []devices.Device{}}
		}
		out = append(out, TierSummary{Tier: tier, TierStats: *bucket})
	}
	return out
}

// Representative is the top-scoring device of a tier.
type Representative struct {
	Tier   Tier           `json:"tier"`
	Device devices.Device `json:"device"`
	Info   Info           `json:"info"`
}

// Representatives picks the highest-scoring member of each non-empty tier,
// breaking ties by device id. Results follow the severity order.
func Representatives(scorer Scorer, stats Stats, sensorCounts map[string]int) []Representative {
	if scorer == nil {
		scorer = Direct
	}
	var out []Representative
	for _, tier := range severityOrder {
		bucket := stats[tier]
		if bucket == nil || bucket.Count == 0 {
			continue
		}
		var best *Representative
		for _, device := range bucket.Members {
			info := scorer.Evaluate(device, sensorCounts[device.DeviceID])
			if best == nil || info.Score > best.Info.Score ||
				(info.Score == best.Info.Score && device.DeviceID < best.Device.DeviceID) {
				best = &Representative{Tier: tier, Device: device, Info: info}
			}
		}
		out = append(out, *best)
	}
	return out
}
