package application

import (
	"context"
	"fmt"
	"time"

	comparison "device-insight/internal/comparison/domain"
	devices "device-insight/internal/devices/domain"
	filtering "device-insight/internal/filtering/domain"
	insights "device-insight/internal/insights/domain"
	"device-insight/internal/observability/metrics"
	tiering "device-insight/internal/tiering/domain"
	"device-insight/internal/tiering/presentation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Service answers device insight queries over a fleet snapshot.
type Service struct {
	snapshots  devices.SnapshotSource
	sensors    devices.SensorRepository
	scorer     tiering.Scorer
	styles     *presentation.Catalog
	clock      devices.Clock
	topSensors int
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithScorer replaces the direct scorer, typically with a tiering.Memo.
func WithScorer(scorer tiering.Scorer) ServiceOption {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithPresentation sets the tier presentation catalog.
func WithPresentation(styles *presentation.Catalog) ServiceOption {
	return func(s *Service) {
		if styles != nil {
			s.styles = styles
		}
	}
}

// WithClock assigns a clock.
func WithClock(clock devices.Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTopSensors sets how many sensor names fleet statistics report.
func WithTopSensors(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.topSensors = n
		}
	}
}

// NewService constructs an insights service.
func NewService(snapshots devices.SnapshotSource, sensors devices.SensorRepository, opts ...ServiceOption) (*Service, error) {
	if snapshots == nil || sensors == nil {
		return nil, devices.ErrNilRepository
	}
	service := &Service{
		snapshots:  snapshots,
		sensors:    sensors,
		scorer:     tiering.Direct,
		styles:     presentation.Default(),
		clock:      devices.SystemClock{},
		topSensors: insights.DefaultTopSensors,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Page selects a window of a result list. Zero values mean page 1 and
// DefaultPageSize.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() (Page, error) {
	if p.Number == 0 {
		p.Number = 1
	}
	if p.Size == 0 {
		p.Size = DefaultPageSize
	}
	if p.Number < 1 || p.Size < 1 || p.Size > MaxPageSize {
		return Page{}, fmt.Errorf("%w: page=%d size=%d", ErrInvalidPage, p.Number, p.Size)
	}
	return p, nil
}

// DeviceView is a device with its sensor count and tier badge.
type DeviceView struct {
	devices.Device
	SensorCount int                `json:"sensor_count"`
	Badge       presentation.Badge `json:"tier"`
}

// DevicePage is one page of a filtered device list.
type DevicePage struct {
	Items      []DeviceView `json:"items"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// ListDevices filters, sorts and paginates the fleet.
func (s *Service) ListDevices(ctx context.Context, criteria filtering.Criteria, page Page) (DevicePage, error) {
	if s == nil {
		return DevicePage{}, ErrNilService
	}
	page, err := page.normalize()
	if err != nil {
		return DevicePage{}, err
	}
	views, err := s.FilterDevices(ctx, criteria)
	if err != nil {
		return DevicePage{}, err
	}

	result := DevicePage{
		Items:      []DeviceView{},
		Total:      len(views),
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: (len(views) + page.Size - 1) / page.Size,
	}
	start := (page.Number - 1) * page.Size
	if start < len(views) {
		end := min(start+page.Size, len(views))
		result.Items = views[start:end]
	}
	return result, nil
}

// FilterDevices returns every device matching criteria, sorted.
func (s *Service) FilterDevices(ctx context.Context, criteria filtering.Criteria) ([]DeviceView, error) {
	if s == nil {
		return nil, ErrNilService
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	matched := filtering.Apply(snapshot.Devices, criteria, snapshot.SensorCounts, s.scorer)
	views := make([]DeviceView, 0, len(matched))
	for _, device := range matched {
		views = append(views, s.view(device, snapshot.SensorCount(device.DeviceID)))
	}
	return views, nil
}

// TierDetail explains the tier of one device.
type TierDetail struct {
	DeviceView
	Breakdown tiering.Breakdown `json:"breakdown"`
}

// DeviceTier scores one device.
func (s *Service) DeviceTier(ctx context.Context, deviceID string) (TierDetail, error) {
	if s == nil {
		return TierDetail{}, ErrNilService
	}
	device, snapshot, err := s.find(ctx, deviceID)
	if err != nil {
		return TierDetail{}, err
	}
	count := snapshot.SensorCount(deviceID)
	return TierDetail{
		DeviceView: s.view(device, count),
		Breakdown:  tiering.Explain(tiering.ProfileOf(device), count),
	}, nil
}

// Sensors lists the sensors of one device ordered by name.
func (s *Service) Sensors(ctx context.Context, deviceID string) ([]devices.Sensor, error) {
	if s == nil {
		return nil, ErrNilService
	}
	if _, _, err := s.find(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.sensors.ListByDevice(ctx, deviceID)
}

// TierRow is one tier of a tier report.
type TierRow struct {
	Tier         tiering.Tier       `json:"tier"`
	Style        presentation.Style `json:"style"`
	Count        int                `json:"count"`
	Share        float64            `json:"share"`
	AvgMemoryGB  float64            `json:"avg_memory_gb"`
	AvgStorageGB float64            `json:"avg_storage_gb"`
	AvgSensors   float64            `json:"avg_sensors"`
	DeviceIDs    []string           `json:"device_ids"`
}

// RepresentativeView is the top device of a tier with its badge.
type RepresentativeView struct {
	Tier   tiering.Tier `json:"tier"`
	Device DeviceView   `json:"device"`
}

// TierReport is the fleet partitioned by tier.
type TierReport struct {
	GeneratedAt     time.Time            `json:"generated_at"`
	Total           int                  `json:"total"`
	Tiers           []TierRow            `json:"tiers"`
	Representatives []RepresentativeView `json:"representatives"`
}

// TierReport aggregates the fleet by tier.
func (s *Service) TierReport(ctx context.Context) (TierReport, error) {
	if s == nil {
		return TierReport{}, ErrNilService
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return TierReport{}, err
	}
	stats := tiering.AggregateWith(s.scorer, snapshot.Devices, snapshot.SensorCounts)
	report := TierReport{
		GeneratedAt:     s.clock.Now(),
		Total:           stats.Total(),
		Tiers:           make([]TierRow, 0, len(tiering.Tiers())),
		Representatives: []RepresentativeView{},
	}
	for _, summary := range stats.Ordered() {
		row := TierRow{
			Tier:         summary.Tier,
			Style:        s.styles.Style(summary.Tier),
			Count:        summary.Count,
			AvgMemoryGB:  summary.AvgMemoryGB,
			AvgStorageGB: summary.AvgStorageGB,
			AvgSensors:   summary.AvgSensors,
			DeviceIDs:    make([]string, 0, len(summary.Members)),
		}
		if report.Total > 0 {
			row.Share = float64(summary.Count) / float64(report.Total)
		}
		for _, member := range summary.Members {
			row.DeviceIDs = append(row.DeviceIDs, member.DeviceID)
		}
		report.Tiers = append(report.Tiers, row)
	}
	for _, rep := range tiering.Representatives(s.scorer, stats, snapshot.SensorCounts) {
		report.Representatives = append(report.Representatives, RepresentativeView{
			Tier:   rep.Tier,
			Device: s.view(rep.Device, snapshot.SensorCount(rep.Device.DeviceID)),
		})
	}
	return report, nil
}

// Comparison is a side-by-side view of selected devices.
type Comparison struct {
	Devices  []DeviceView             `json:"devices"`
	Sensors  comparison.Result        `json:"sensors"`
	Matrix   []comparison.Row         `json:"matrix"`
	Hardware []comparison.HardwareRow `json:"hardware"`
}

// Compare reconciles the sensors of up to comparison.MaxSelected devices.
func (s *Service) Compare(ctx context.Context, deviceIDs []string) (Comparison, error) {
	if s == nil {
		return Comparison{}, ErrNilService
	}
	result, err := s.compare(ctx, deviceIDs)
	if err != nil {
		metrics.ObserveCompare(metrics.ResultError, 0)
		return Comparison{}, err
	}
	metrics.ObserveCompare(metrics.ResultSuccess, len(result.Devices))
	return result, nil
}

func (s *Service) compare(ctx context.Context, deviceIDs []string) (Comparison, error) {
	if len(deviceIDs) == 0 {
		return Comparison{}, comparison.ErrEmptySelection
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return Comparison{}, err
	}
	picked := make([]devices.Device, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		device, ok := snapshot.Find(id)
		if !ok {
			return Comparison{}, fmt.Errorf("%w: %s", devices.ErrDeviceNotFound, id)
		}
		picked = append(picked, device)
	}
	selection, err := comparison.NewSelection(picked)
	if err != nil {
		return Comparison{}, err
	}
	selected := selection.Devices()
	sensorsByDevice, err := s.sensors.ListByDevices(ctx, selection.IDs())
	if err != nil {
		return Comparison{}, err
	}

	// Counts come from the sensor rows just read, not the snapshot, so the
	// hardware rows and badges agree with the reconciled list.
	counts := make(map[string]int, len(selected))
	for _, id := range selection.IDs() {
		counts[id] = len(sensorsByDevice[id])
	}

	result := comparison.Reconcile(selected, sensorsByDevice)
	out := Comparison{
		Devices:  make([]DeviceView, 0, len(selected)),
		Sensors:  result,
		Matrix:   result.Matrix(),
		Hardware: comparison.HardwareRows(selected, counts),
	}
	for _, device := range selected {
		out.Devices = append(out.Devices, s.view(device, counts[device.DeviceID]))
	}
	return out, nil
}

// FleetStats summarises the whole fleet.
func (s *Service) FleetStats(ctx context.Context) (insights.FleetStats, error) {
	if s == nil {
		return insights.FleetStats{}, ErrNilService
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return insights.FleetStats{}, err
	}
	names, err := s.sensors.ListNames(ctx)
	if err != nil {
		return insights.FleetStats{}, err
	}
	return insights.ComputeFleetStats(snapshot.Devices, names, s.topSensors), nil
}

func (s *Service) load(ctx context.Context) (*devices.Snapshot, error) {
	start := time.Now()
	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		metrics.ObserveSnapshotLoad(metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	metrics.ObserveSnapshotLoad(metrics.ResultSuccess, time.Since(start))
	if snapshot == nil {
		snapshot = &devices.Snapshot{}
	}
	return snapshot, nil
}

func (s *Service) find(ctx context.Context, deviceID string) (devices.Device, *devices.Snapshot, error) {
	if deviceID == "" {
		return devices.Device{}, nil, devices.ErrEmptyDeviceID
	}
	snapshot, err := s.load(ctx)
	if err != nil {
		return devices.Device{}, nil, err
	}
	device, ok := snapshot.Find(deviceID)
	if !ok {
		return devices.Device{}, nil, fmt.Errorf("%w: %s", devices.ErrDeviceNotFound, deviceID)
	}
	return device, snapshot, nil
}

func (s *Service) view(device devices.Device, sensorCount int) DeviceView {
	return DeviceView{
		Device:      device,
		SensorCount: sensorCount,
		Badge:       s.styles.Badge(s.scorer.Evaluate(device, sensorCount)),
	}
}
