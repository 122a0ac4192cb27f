package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"

	"device-insight/internal/audit"
	devices "device-insight/internal/devices/domain"
	"device-insight/internal/devices/infrastructure/memory"
	insightsapp "device-insight/internal/insights/application"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Log(ctx context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func newTestRouter(t *testing.T) (*mux.Router, *recordingAudit) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	fleet := []struct {
		device  devices.Device
		sensors int
	}{
		{devices.Device{ID: 1, DeviceID: "s24", Model: "SM-S921N", Manufacturer: "Samsung", AndroidVersion: "14", CPUABIs: []string{"arm64-v8a"}, TotalMemoryGB: 12, TotalStorageGB: 512, CreatedAt: base.Add(3 * time.Hour)}, 30},
		{devices.Device{ID: 2, DeviceID: "px8", Model: "Pixel 8 Pro", Manufacturer: "Google", AndroidVersion: "14", TotalMemoryGB: 16, TotalStorageGB: 512, CreatedAt: base.Add(2 * time.Hour)}, 28},
		{devices.Device{ID: 3, DeviceID: "a15", Model: "SM-A155N", Manufacturer: "Samsung", AndroidVersion: "13", TotalMemoryGB: 4, TotalStorageGB: 64, CreatedAt: base.Add(1 * time.Hour)}, 12},
	}
	for _, entry := range fleet {
		if err := store.AddDevice(entry.device); err != nil {
			t.Fatalf("add device: %v", err)
		}
		for i := 1; i <= entry.sensors; i++ {
			if err := store.AddSensor(devices.Sensor{DeviceID: entry.device.DeviceID, Name: fmt.Sprintf("sensor-%02d", i), Type: i, TypeName: "android.sensor.test"}); err != nil {
				t.Fatalf("add sensor: %v", err)
			}
		}
	}
	catalog, err := devices.NewCatalog(store, store, nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	service, err := insightsapp.NewService(catalog, store)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	recorder := &recordingAudit{}
	handler, err := NewHandler(service, WithAuditLogger(recorder), WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	router := mux.NewRouter()
	handler.Register(router)
	return router, recorder
}

func do(router http.Handler, method, target string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(method, target, nil))
	return resp
}

func TestListDevicesEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/devices?manufacturer=Samsung&tier=flagship")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var page insightsapp.DevicePage
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || page.Items[0].DeviceID != "s24" || page.Items[0].Badge.Score != 95 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestListDevicesRejectsBadQuery(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, target := range []string{
		"/api/v1/devices?colour=red",
		"/api/v1/devices?page_size=500",
		"/api/v1/devices?page=0",
		"/api/v1/devices?sort_by=price",
		"/api/v1/devices?tier=legendary",
		"/api/v1/tiers?verbose=1",
	} {
		if resp := do(router, http.MethodGet, target); resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, resp.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t)
	if resp := do(router, http.MethodPost, "/api/v1/devices"); resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestDeviceTierEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/devices/a15/tier")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var detail insightsapp.TierDetail
	if err := json.Unmarshal(resp.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Badge.Score != 43 || detail.Breakdown.Storage != 15 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if resp := do(router, http.MethodGet, "/api/v1/devices/ghost/tier"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeviceSensorsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/devices/a15/sensors")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var sensors []devices.Sensor
	if err := json.Unmarshal(resp.Body.Bytes(), &sensors); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sensors) != 12 {
		t.Fatalf("expected 12 sensors, got %d", len(sensors))
	}
}

func TestCompareEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/compare?ids=s24,a15")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Sensors struct {
			TotalCount  int `json:"total_count"`
			CommonCount int `json:"common_count"`
		} `json:"sensors"`
		Hardware []struct {
			Label string `json:"label"`
		} `json:"hardware"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Sensors.TotalCount != 30 || body.Sensors.CommonCount != 12 {
		t.Fatalf("unexpected counts %+v", body.Sensors)
	}
	if len(body.Hardware) == 0 {
		t.Fatalf("expected hardware rows")
	}

	if resp := do(router, http.MethodGet, "/api/v1/compare"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty selection, got %d", resp.Code)
	}
	if resp := do(router, http.MethodGet, "/api/v1/compare?ids=s24,ghost"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown device, got %d", resp.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/stats")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var stats struct {
		TotalDevices int `json:"total_devices"`
		TotalSensors int `json:"total_sensors"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalDevices != 3 || stats.TotalSensors != 70 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestExportDevicesCSV(t *testing.T) {
	router, recorder := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/exports/devices.csv?manufacturer=Samsung&sort_by=model&sort_order=asc")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %s", ct)
	}
	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if records[1][1] != "a15" || records[2][1] != "s24" {
		t.Fatalf("unexpected row order %v", records)
	}
	if records[2][8] != "arm64-v8a" || records[2][15] != "flagship" {
		t.Fatalf("unexpected s24 row %v", records[2])
	}
	if len(recorder.entries) != 1 || recorder.entries[0].ResourceType != "devices" {
		t.Fatalf("expected one audit entry, got %+v", recorder.entries)
	}
}

func TestExportDevicesJSON(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/exports/devices.json")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var doc DeviceExport
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Total != 3 || len(doc.Devices) != 3 {
		t.Fatalf("unexpected export %+v", doc)
	}
}

func TestExportTiersXLSX(t *testing.T) {
	router, recorder := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/exports/tiers.xlsx")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	f, err := excelize.OpenReader(bytes.NewReader(resp.Body.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	title, err := f.GetCellValue("tiers", "A1")
	if err != nil || title != "Device Tier Report" {
		t.Fatalf("unexpected title %q %v", title, err)
	}
	flagshipCount, _ := f.GetCellValue("tiers", "C6")
	if flagshipCount != "2" {
		t.Fatalf("expected 2 flagship devices, got %q", flagshipCount)
	}
	rep, _ := f.GetCellValue("representatives", "B2")
	if rep != "px8" {
		t.Fatalf("expected px8 as flagship representative, got %q", rep)
	}
	if len(recorder.entries) != 1 || recorder.entries[0].ResourceID != "xlsx" {
		t.Fatalf("unexpected audit entries %+v", recorder.entries)
	}
}

func TestExportTiersPDF(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/v1/exports/tiers.pdf")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected PDF payload")
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, ".pdf") {
		t.Fatalf("unexpected disposition %s", cd)
	}
}

func TestNewHandlerValidation(t *testing.T) {
	if _, err := NewHandler(nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}
