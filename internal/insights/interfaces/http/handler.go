package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"device-insight/internal/audit"
	comparison "device-insight/internal/comparison/domain"
	devices "device-insight/internal/devices/domain"
	filtering "device-insight/internal/filtering/domain"
	insightsapp "device-insight/internal/insights/application"
	"device-insight/internal/observability/metrics"
	tiering "device-insight/internal/tiering/domain"
)

const (
	paramPage     = "page"
	paramPageSize = "page_size"
	paramIDs      = "ids"
)

// Handler provides device insight HTTP endpoints.
type Handler struct {
	service *insightsapp.Service
	audit   audit.Logger
	logger  *log.Logger
	now     func() time.Time
}

// Option configures the handler.
type Option func(*Handler)

// WithAuditLogger records exports.
func WithAuditLogger(logger audit.Logger) Option {
	return func(h *Handler) {
		h.audit = logger
	}
}

// WithLogger sets the error logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a handler.
func NewHandler(service *insightsapp.Service, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, errors.New("insights handler: nil service")
	}
	h := &Handler{
		service: service,
		logger:  log.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts every route on router.
func (h *Handler) Register(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/devices", h.instrument("devices", h.handleListDevices)).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/tier", h.instrument("device_tier", h.handleDeviceTier)).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/sensors", h.instrument("device_sensors", h.handleDeviceSensors)).Methods(http.MethodGet)
	api.HandleFunc("/tiers", h.instrument("tiers", h.handleTiers)).Methods(http.MethodGet)
	api.HandleFunc("/compare", h.instrument("compare", h.handleCompare)).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.instrument("stats", h.handleStats)).Methods(http.MethodGet)
	api.HandleFunc("/exports/devices.csv", h.instrument("export_devices_csv", h.handleExportDevicesCSV)).Methods(http.MethodGet)
	api.HandleFunc("/exports/devices.json", h.instrument("export_devices_json", h.handleExportDevicesJSON)).Methods(http.MethodGet)
	api.HandleFunc("/exports/tiers.xlsx", h.instrument("export_tiers_xlsx", h.handleExportTiersXLSX)).Methods(http.MethodGet)
	api.HandleFunc("/exports/tiers.pdf", h.instrument("export_tiers_pdf", h.handleExportTiersPDF)).Methods(http.MethodGet)
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	criteria, err := filtering.ParseCriteria(query, paramPage, paramPageSize)
	if err != nil {
		h.respondError(w, err)
		return
	}
	page, err := parsePage(query)
	if err != nil {
		h.respondError(w, err)
		return
	}
	result, err := h.service.ListDevices(r.Context(), criteria, page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) handleDeviceTier(w http.ResponseWriter, r *http.Request) {
	if err := rejectQuery(r.URL.Query()); err != nil {
		h.respondError(w, err)
		return
	}
	detail, err := h.service.DeviceTier(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, detail)
}

func (h *Handler) handleDeviceSensors(w http.ResponseWriter, r *http.Request) {
	if err := rejectQuery(r.URL.Query()); err != nil {
		h.respondError(w, err)
		return
	}
	sensors, err := h.service.Sensors(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, sensors)
}

func (h *Handler) handleTiers(w http.ResponseWriter, r *http.Request) {
	if err := rejectQuery(r.URL.Query()); err != nil {
		h.respondError(w, err)
		return
	}
	report, err := h.service.TierReport(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := rejectQuery(query, paramIDs); err != nil {
		h.respondError(w, err)
		return
	}
	var ids []string
	for _, raw := range query[paramIDs] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	result, err := h.service.Compare(r.Context(), ids)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if err := rejectQuery(r.URL.Query()); err != nil {
		h.respondError(w, err)
		return
	}
	stats, err := h.service.FleetStats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, stats)
}

func (h *Handler) handleExportDevicesCSV(w http.ResponseWriter, r *http.Request) {
	h.exportDevices(w, r, "csv", func(views []insightsapp.DeviceView) error {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment("devices", "csv", h.now()))
		return WriteDevicesCSV(w, views)
	})
}

func (h *Handler) handleExportDevicesJSON(w http.ResponseWriter, r *http.Request) {
	h.exportDevices(w, r, "json", func(views []insightsapp.DeviceView) error {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", attachment("devices", "json", h.now()))
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(DeviceExport{GeneratedAt: h.now(), Total: len(views), Devices: views})
	})
}

func (h *Handler) exportDevices(w http.ResponseWriter, r *http.Request, format string, write func([]insightsapp.DeviceView) error) {
	start := time.Now()
	criteria, err := filtering.ParseCriteria(r.URL.Query())
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.respondError(w, err)
		return
	}
	views, err := h.service.FilterDevices(r.Context(), criteria)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.respondError(w, err)
		return
	}
	if err := write(views); err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.logger.Printf("export devices %s: %v", format, err)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
	h.logAudit(r, "devices", format, map[string]any{"format": format, "rows": len(views)})
}

func (h *Handler) handleExportTiersXLSX(w http.ResponseWriter, r *http.Request) {
	h.exportTiers(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", BuildTierReportXLSX)
}

func (h *Handler) handleExportTiersPDF(w http.ResponseWriter, r *http.Request) {
	h.exportTiers(w, r, "pdf", "application/pdf", BuildTierReportPDF)
}

func (h *Handler) exportTiers(w http.ResponseWriter, r *http.Request, format, contentType string, build func(insightsapp.TierReport) ([]byte, error)) {
	start := time.Now()
	if err := rejectQuery(r.URL.Query()); err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.respondError(w, err)
		return
	}
	report, err := h.service.TierReport(r.Context())
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.respondError(w, err)
		return
	}
	data, err := build(report)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.logger.Printf("export tiers %s: %v", format, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
	h.logAudit(r, "tier_report", format, map[string]any{"format": format, "devices": report.Total})

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment("tiers", format, report.GeneratedAt))
	_, _ = w.Write(data)
}

func (h *Handler) logAudit(r *http.Request, resourceType, format string, metadata map[string]any) {
	if h.audit == nil {
		return
	}
	entry := audit.FromRequest(r, "export", resourceType, format, metadata)
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Printf("audit export %s: %v", resourceType, err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, filtering.ErrUnknownField),
		errors.Is(err, filtering.ErrInvalidSortKey),
		errors.Is(err, filtering.ErrInvalidSortOrder),
		errors.Is(err, filtering.ErrInvalidRange),
		errors.Is(err, filtering.ErrInvalidNumber),
		errors.Is(err, tiering.ErrInvalidTier),
		errors.Is(err, insightsapp.ErrInvalidPage),
		errors.Is(err, devices.ErrEmptyDeviceID),
		errors.Is(err, comparison.ErrEmptySelection),
		errors.Is(err, comparison.ErrTooManyDevices):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, devices.ErrDeviceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		h.logger.Printf("insights: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) instrument(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		fn(sw, r)
		metrics.ObserveAPIRequest(route, sw.status, time.Since(start))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func parsePage(query url.Values) (insightsapp.Page, error) {
	var page insightsapp.Page
	var err error
	if page.Number, err = intParam(query, paramPage); err != nil {
		return insightsapp.Page{}, err
	}
	if page.Size, err = intParam(query, paramPageSize); err != nil {
		return insightsapp.Page{}, err
	}
	return page, nil
}

func intParam(query url.Values, key string) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %s=%q", insightsapp.ErrInvalidPage, key, raw)
	}
	return v, nil
}

// rejectQuery fails on any query parameter not listed in allowed.
func rejectQuery(query url.Values, allowed ...string) error {
	for key := range query {
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %s", filtering.ErrUnknownField, key)
		}
	}
	return nil
}

func attachment(name, ext string, at time.Time) string {
	return fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.%s", name, at.UTC().Format("20060102"), ext))
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
