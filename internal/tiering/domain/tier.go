package tiering

import "strings"

// Tier is an ordinal device-quality class derived from a score.
type Tier string

const (
	TierFlagship Tier = "flagship"
	TierPremium  Tier = "premium"
	TierMidRange Tier = "mid-range"
	TierEntry    Tier = "entry"
)

const (
	flagshipMinScore = 85
	premiumMinScore  = 70
	midRangeMinScore = 50

	// MaxScore is the upper bound of a composite score.
	MaxScore = 100
)

var severityOrder = []Tier{TierFlagship, TierPremium, TierMidRange, TierEntry}

// Tiers returns all tiers from highest to lowest.
func Tiers() []Tier {
	out := make([]Tier, len(severityOrder))
	copy(out, severityOrder)
	return out
}

// IsValid reports whether t is one of the four tiers.
func (t Tier) IsValid() bool {
	switch t {
	case TierFlagship, TierPremium, TierMidRange, TierEntry:
		return true
	default:
		return false
	}
}

// Rank orders tiers for display: flagship is 4, entry is 1, unknown is 0.
func (t Tier) Rank() int {
	switch t {
	case TierFlagship:
		return 4
	case TierPremium:
		return 3
	case TierMidRange:
		return 2
	case TierEntry:
		return 1
	default:
		return 0
	}
}

// ParseTier normalizes a tier name.
func ParseTier(value string) (Tier, error) {
	tier := Tier(strings.ToLower(strings.TrimSpace(value)))
	if !tier.IsValid() {
		return "", ErrInvalidTier
	}
	return tier, nil
}

// TierOf maps a score to its tier. Ranges are [85,100], [70,84], [50,69], [0,49].
func TierOf(score int) Tier {
	switch {
	case score >= flagshipMinScore:
		return TierFlagship
	case score >= premiumMinScore:
		return TierPremium
	case score >= midRangeMinScore:
		return TierMidRange
	default:
		return TierEntry
	}
}
