package filtering

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	tiering "device-insight/internal/tiering/domain"
)

// SortKey selects the comparison key of a device list.
type SortKey string

const (
	SortNone        SortKey = ""
	SortModel       SortKey = "model"
	SortSensorCount SortKey = "sensor_count"
	SortTierScore   SortKey = "tier_score"
	SortCreatedAt   SortKey = "created_at"
	SortMemory      SortKey = "memory"
	SortStorage     SortKey = "storage"
)

// IsValid reports whether k is a recognized key. The empty key means unsorted.
func (k SortKey) IsValid() bool {
	switch k {
	case SortNone, SortModel, SortSensorCount, SortTierScore, SortCreatedAt, SortMemory, SortStorage:
		return true
	default:
		return false
	}
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// IsValid reports whether o is asc, desc or empty (desc).
func (o SortOrder) IsValid() bool {
	return o == "" || o == OrderAsc || o == OrderDesc
}

// Range is an inclusive numeric bound.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Criteria is the closed set of device list options. Empty fields are inactive.
type Criteria struct {
	SearchTerm      string         `json:"search_term"`
	Manufacturers   []string       `json:"manufacturers"`
	AndroidVersions []string       `json:"android_versions"`
	Tiers           []tiering.Tier `json:"tiers"`
	MemoryRange     *Range         `json:"memory_range,omitempty"`
	StorageRange    *Range         `json:"storage_range,omitempty"`
	CPUCores        []int          `json:"cpu_cores"`
	SortBy          SortKey        `json:"sort_by"`
	SortOrder       SortOrder      `json:"sort_order"`
}

// Query parameter names understood by ParseCriteria.
const (
	ParamSearch         = "search"
	ParamManufacturer   = "manufacturer"
	ParamAndroidVersion = "android_version"
	ParamTier           = "tier"
	ParamMinMemory      = "min_memory_gb"
	ParamMaxMemory      = "max_memory_gb"
	ParamMinStorage     = "min_storage_gb"
	ParamMaxStorage     = "max_storage_gb"
	ParamCPUCores       = "cpu_cores"
	ParamSortBy         = "sort_by"
	ParamSortOrder      = "sort_order"
)

var knownParams = map[string]struct{}{
	ParamSearch:         {},
	ParamManufacturer:   {},
	ParamAndroidVersion: {},
	ParamTier:           {},
	ParamMinMemory:      {},
	ParamMaxMemory:      {},
	ParamMinStorage:     {},
	ParamMaxStorage:     {},
	ParamCPUCores:       {},
	ParamSortBy:         {},
	ParamSortOrder:      {},
}

// ParseCriteria reads criteria from query parameters. Parameters that are
// neither criteria fields nor listed in extra are rejected.
func ParseCriteria(values url.Values, extra ...string) (Criteria, error) {
	allowed := make(map[string]struct{}, len(extra))
	for _, key := range extra {
		allowed[key] = struct{}{}
	}
	unknown := make([]string, 0)
	for key := range values {
		if _, ok := knownParams[key]; ok {
			continue
		}
		if _, ok := allowed[key]; ok {
			continue
		}
		unknown = append(unknown, key)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Criteria{}, fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(unknown, ", "))
	}

	c := Criteria{
		SearchTerm:      strings.TrimSpace(values.Get(ParamSearch)),
		Manufacturers:   splitValues(values[ParamManufacturer]),
		AndroidVersions: splitValues(values[ParamAndroidVersion]),
		SortBy:          SortKey(values.Get(ParamSortBy)),
		SortOrder:       SortOrder(values.Get(ParamSortOrder)),
	}
	for _, raw := range splitValues(values[ParamTier]) {
		tier, err := tiering.ParseTier(raw)
		if err != nil {
			return Criteria{}, fmt.Errorf("%s=%q: %w", ParamTier, raw, err)
		}
		c.Tiers = append(c.Tiers, tier)
	}
	for _, raw := range splitValues(values[ParamCPUCores]) {
		cores, err := strconv.Atoi(raw)
		if err != nil || cores < 0 {
			return Criteria{}, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, ParamCPUCores, raw)
		}
		c.CPUCores = append(c.CPUCores, cores)
	}

	var err error
	if c.MemoryRange, err = parseRange(values, ParamMinMemory, ParamMaxMemory); err != nil {
		return Criteria{}, err
	}
	if c.StorageRange, err = parseRange(values, ParamMinStorage, ParamMaxStorage); err != nil {
		return Criteria{}, err
	}
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// DecodeCriteria reads JSON criteria, rejecting unknown fields.
func DecodeCriteria(r io.Reader) (Criteria, error) {
	var c Criteria
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return Criteria{}, fmt.Errorf("%w: %s", ErrUnknownField, strings.TrimPrefix(err.Error(), "json: unknown field "))
		}
		return Criteria{}, err
	}
	c.SearchTerm = strings.TrimSpace(c.SearchTerm)
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// Validate checks enum fields and ranges.
func (c Criteria) Validate() error {
	if !c.SortBy.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSortKey, c.SortBy)
	}
	if !c.SortOrder.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSortOrder, c.SortOrder)
	}
	for _, tier := range c.Tiers {
		if !tier.IsValid() {
			return fmt.Errorf("tier %q: %w", tier, tiering.ErrInvalidTier)
		}
	}
	for _, r := range []*Range{c.MemoryRange, c.StorageRange} {
		if r != nil && r.Min > r.Max {
			return ErrInvalidRange
		}
	}
	return nil
}

// Order returns the effective sort order.
func (c Criteria) Order() SortOrder {
	if c.SortOrder == "" {
		return OrderDesc
	}
	return c.SortOrder
}

func parseRange(values url.Values, minKey, maxKey string) (*Range, error) {
	rawMin := strings.TrimSpace(values.Get(minKey))
	rawMax := strings.TrimSpace(values.Get(maxKey))
	if rawMin == "" && rawMax == "" {
		return nil, nil
	}
	r := &Range{Min: 0, Max: maxRange}
	if rawMin != "" {
		v, err := strconv.ParseFloat(rawMin, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, minKey, rawMin)
		}
		r.Min = v
	}
	if rawMax != "" {
		v, err := strconv.ParseFloat(rawMax, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, maxKey, rawMax)
		}
		r.Max = v
	}
	return r, nil
}

const maxRange = 1 << 53

func splitValues(raw []string) []string {
	var out []string
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
