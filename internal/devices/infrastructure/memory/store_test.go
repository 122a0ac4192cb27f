package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	devices "device-insight/internal/devices/domain"
)

const dataset = `{
  "devices": [
    {"id": 1, "device_id": "old", "model": "G7", "created_at": "2025-01-01T00:00:00Z"},
    {"id": 2, "device_id": "new", "model": "S24", "created_at": "2026-01-01T00:00:00Z"}
  ],
  "sensors": [
    {"id": 10, "device_id": "new", "name": "Light", "type": 5},
    {"id": 11, "device_id": "new", "name": "Accel", "type": 1},
    {"id": 12, "device_id": "old", "name": "Accel", "type": 1}
  ]
}`

func TestDecodeAndQuery(t *testing.T) {
	store, err := Decode(strings.NewReader(dataset))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ctx := context.Background()

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].DeviceID != "new" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	sensors, err := store.ListByDevice(ctx, "new")
	if err != nil {
		t.Fatalf("list sensors: %v", err)
	}
	if len(sensors) != 2 || sensors[0].Name != "Accel" {
		t.Fatalf("expected sensors ordered by name, got %+v", sensors)
	}

	if total, _ := store.Count(ctx); total != 2 {
		t.Fatalf("expected 2 devices, got %d", total)
	}

	counts, _ := store.CountByDevice(ctx)
	if counts["new"] != 2 || counts["old"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}

	names, _ := store.ListNames(ctx)
	if strings.Join(names, ",") != "Accel,Accel,Light" {
		t.Fatalf("unexpected names %v", names)
	}

	byDevice, _ := store.ListByDevices(ctx, []string{"old", "missing"})
	if len(byDevice) != 1 || len(byDevice["old"]) != 1 {
		t.Fatalf("unexpected grouping %v", byDevice)
	}
}

func TestGet(t *testing.T) {
	store := NewStore()
	if err := store.AddDevice(devices.Device{DeviceID: "a", Model: "one"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddDevice(devices.Device{DeviceID: "a", Model: "two"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := store.Get(context.Background(), "a")
	if err != nil || got == nil || got.Model != "two" {
		t.Fatalf("expected replaced device, got %+v %v", got, err)
	}
	missing, err := store.Get(context.Background(), "b")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing device, got %+v %v", missing, err)
	}
	if err := store.AddDevice(devices.Device{}); !errors.Is(err, devices.ErrEmptyDeviceID) {
		t.Fatalf("expected ErrEmptyDeviceID, got %v", err)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"devices": [`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := Decode(strings.NewReader(`{"sensors": [{"name": "x"}]}`)); !errors.Is(err, devices.ErrEmptyDeviceID) {
		t.Fatalf("expected ErrEmptyDeviceID, got %v", err)
	}
}
