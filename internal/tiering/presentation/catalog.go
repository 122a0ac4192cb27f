package presentation

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	tiering "device-insight/internal/tiering/domain"
)

// Style is the display metadata bound to a tier.
type Style struct {
	Label           string `yaml:"label" json:"label"`
	Color           string `yaml:"color" json:"color"`
	BackgroundColor string `yaml:"background_color" json:"background_color"`
	Icon            string `yaml:"icon" json:"icon"`
	Level           string `yaml:"level" json:"level"`
	Bars            int    `yaml:"bars" json:"bars"`
	Description     string `yaml:"description" json:"description"`
}

// Badge is a scored tier joined with its style.
type Badge struct {
	Tier  tiering.Tier `json:"tier"`
	Score int          `json:"score"`
	Style
}

// Catalog maps tiers to styles.
type Catalog struct {
	styles map[tiering.Tier]Style
}

type fileFormat struct {
	Tiers map[string]Style `yaml:"tiers"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{styles: map[tiering.Tier]Style{
		tiering.TierFlagship: {
			Label:           "Flagship",
			Color:           "#B45309",
			BackgroundColor: "#FEF3C7",
			Icon:            "👑",
			Level:           "Top",
			Bars:            5,
			Description:     "Latest hardware with the highest performance",
		},
		tiering.TierPremium: {
			Label:           "Premium",
			Color:           "#7C3AED",
			BackgroundColor: "#EDE9FE",
			Icon:            "💎",
			Level:           "High",
			Bars:            4,
			Description:     "Strong performance and a broad feature set",
		},
		tiering.TierMidRange: {
			Label:           "Mid-range",
			Color:           "#1D4ED8",
			BackgroundColor: "#DBEAFE",
			Icon:            "⭐",
			Level:           "Medium",
			Bars:            3,
			Description:     "Balanced performance for the price",
		},
		tiering.TierEntry: {
			Label:           "Entry",
			Color:           "#374151",
			BackgroundColor: "#F3F4F6",
			Icon:            "📱",
			Level:           "Basic",
			Bars:            2,
			Description:     "Covers the essentials",
		},
	}}
}

// Load reads a YAML file and overlays it on the defaults. An empty path
// returns the defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tier presentation: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML data on the defaults. Only non-empty fields override.
func Parse(data []byte) (*Catalog, error) {
	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("tier presentation: %w", err)
	}
	catalog := Default()
	for name, override := range file.Tiers {
		tier, err := tiering.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("tier presentation: %q: %w", name, err)
		}
		if override.Bars < 0 || override.Bars > 5 {
			return nil, errors.New("tier presentation: bars must be between 0 and 5")
		}
		catalog.styles[tier] = merge(catalog.styles[tier], override)
	}
	return catalog, nil
}

// Style returns the style of a tier.
func (c *Catalog) Style(tier tiering.Tier) Style {
	if c == nil {
		return Default().styles[tier]
	}
	return c.styles[tier]
}

// Badge joins a scoring result with its style.
func (c *Catalog) Badge(info tiering.Info) Badge {
	return Badge{Tier: info.Tier, Score: info.Score, Style: c.Style(info.Tier)}
}

func merge(base, override Style) Style {
	if override.Label != "" {
		base.Label = override.Label
	}
	if override.Color != "" {
		base.Color = override.Color
	}
	if override.BackgroundColor != "" {
		base.BackgroundColor = override.BackgroundColor
	}
	if override.Icon != "" {
		base.Icon = override.Icon
	}
	if override.Level != "" {
		base.Level = override.Level
	}
	if override.Bars != 0 {
		base.Bars = override.Bars
	}
	if override.Description != "" {
		base.Description = override.Description
	}
	return base
}
