package tiering

import (
	"math"
	"strconv"
	"strings"

	devices "device-insight/internal/devices/domain"
)

// Profile holds the hardware attributes the scorer reads.
type Profile struct {
	TotalMemoryGB  float64
	TotalStorageGB float64
	OSVersion      string
}

// ProfileOf extracts the scoring profile of a device.
func ProfileOf(d devices.Device) Profile {
	return Profile{
		TotalMemoryGB:  d.TotalMemoryGB,
		TotalStorageGB: d.TotalStorageGB,
		OSVersion:      d.AndroidVersion,
	}
}

// Info is the scoring result for one device.
type Info struct {
	Tier  Tier `json:"tier"`
	Score int  `json:"score"`
}

// Breakdown lists the points each band contributed.
type Breakdown struct {
	Memory  int `json:"memory"`
	Storage int `json:"storage"`
	Sensors int `json:"sensors"`
	OS      int `json:"os"`
}

// Total is the clamped sum of all bands.
func (b Breakdown) Total() int {
	return clampScore(b.Memory + b.Storage + b.Sensors + b.OS)
}

type step struct {
	min    float64
	points int
}

// band is a step function: thresholds are checked from the highest down and
// the first satisfied one wins.
type band struct {
	steps    []step
	fallback int
}

func (b band) points(value float64) int {
	if math.IsNaN(value) {
		value = 0
	}
	for _, s := range b.steps {
		if value >= s.min {
			return s.points
		}
	}
	return b.fallback
}

var (
	memoryBand = band{
		steps:    []step{{16, 40}, {12, 35}, {8, 25}, {6, 15}, {4, 10}},
		fallback: 5,
	}
	storageBand = band{
		steps:    []step{{512, 30}, {256, 25}, {128, 20}, {64, 15}, {32, 10}},
		fallback: 5,
	}
	sensorBand = band{
		steps:    []step{{25, 20}, {20, 17}, {15, 14}, {10, 10}, {5, 6}},
		fallback: 3,
	}
	osBand = band{
		steps:    []step{{14, 10}, {13, 8}, {12, 6}, {11, 4}},
		fallback: 2,
	}
)

// Explain returns the per-band points for a profile.
func Explain(p Profile, sensorCount int) Breakdown {
	if sensorCount < 0 {
		sensorCount = 0
	}
	return Breakdown{
		Memory:  memoryBand.points(p.TotalMemoryGB),
		Storage: storageBand.points(p.TotalStorageGB),
		Sensors: sensorBand.points(float64(sensorCount)),
		OS:      osBand.points(ParseVersion(p.OSVersion)),
	}
}

// Score computes the 0..100 composite score.
func Score(p Profile, sensorCount int) int {
	return Explain(p, sensorCount).Total()
}

// Evaluate scores a profile and resolves its tier.
func Evaluate(p Profile, sensorCount int) Info {
	score := Score(p, sensorCount)
	return Info{Tier: TierOf(score), Score: score}
}

// EvaluateDevice is Evaluate over a device record.
func EvaluateDevice(d devices.Device, sensorCount int) Info {
	return Evaluate(ProfileOf(d), sensorCount)
}

// ParseVersion reads the leading decimal number of a version string.
// "13.1" is 13.1, "13.1.2" is 13.1, "12L" is 12, and "" or "beta" is 0.
func ParseVersion(value string) float64 {
	value = strings.TrimSpace(value)
	end := 0
	if end < len(value) && (value[end] == '-' || value[end] == '+') {
		end++
	}
	digits := 0
	for end < len(value) && isDigit(value[end]) {
		end++
		digits++
	}
	if end < len(value) && value[end] == '.' {
		frac := end + 1
		for frac < len(value) && isDigit(value[frac]) {
			frac++
			digits++
		}
		if frac > end+1 {
			end = frac
		}
	}
	if digits == 0 {
		return 0
	}
	parsed, err := strconv.ParseFloat(value[:end], 64)
	if err != nil {
		return 0
	}
	return parsed
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func clampScore(score int) int {
	if score > MaxScore {
		return MaxScore
	}
	if score < 0 {
		return 0
	}
	return score
}
