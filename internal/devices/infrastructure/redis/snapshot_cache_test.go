package redis

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	devices "device-insight/internal/devices/domain"
)

type fakeClient struct {
	data   map[string][]byte
	getErr error
	ttl    time.Duration
	sets   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string][]byte)}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttl = expiration
	f.sets++
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) Load(ctx context.Context) (*devices.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &devices.Snapshot{
		Devices:      []devices.Device{{DeviceID: "px8", Model: "Pixel 8 Pro"}},
		SensorCounts: map[string]int{"px8": 28},
	}, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSnapshotCacheAside(t *testing.T) {
	client := newFakeClient()
	source := &countingSource{}
	var hits, misses int
	cache, err := NewSnapshotCache(client, source,
		WithTTL(time.Minute),
		WithLogger(quietLogger()),
		WithObserver(func(hit bool) {
			if hit {
				hits++
			} else {
				misses++
			}
		}),
	)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		snapshot, err := cache.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if snapshot.SensorCount("px8") != 28 {
			t.Fatalf("unexpected snapshot %+v", snapshot)
		}
	}
	if source.calls != 1 {
		t.Fatalf("expected one source load, got %d", source.calls)
	}
	if hits != 2 || misses != 1 {
		t.Fatalf("expected 2 hits 1 miss, got %d/%d", hits, misses)
	}
	if client.ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %s", client.ttl)
	}

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d", source.calls)
	}
}

func TestSnapshotCacheFallsThroughOnRedisError(t *testing.T) {
	client := newFakeClient()
	client.getErr = errors.New("connection refused")
	source := &countingSource{}
	cache, err := NewSnapshotCache(client, source, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if _, err := cache.Load(context.Background()); err != nil {
		t.Fatalf("expected fallback load, got %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source load, got %d", source.calls)
	}
}

func TestSnapshotCacheCorruptEntry(t *testing.T) {
	client := newFakeClient()
	client.data[defaultKey] = []byte("{not json")
	source := &countingSource{}
	cache, _ := NewSnapshotCache(client, source, WithLogger(quietLogger()))
	if _, err := cache.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if source.calls != 1 || client.sets != 1 {
		t.Fatalf("expected reload and rewrite, got calls=%d sets=%d", source.calls, client.sets)
	}
}

func TestSnapshotCacheSourceError(t *testing.T) {
	source := &countingSource{err: errors.New("db down")}
	cache, _ := NewSnapshotCache(newFakeClient(), source, WithLogger(quietLogger()))
	if _, err := cache.Load(context.Background()); err == nil {
		t.Fatalf("expected source error")
	}
}

func TestNewSnapshotCacheValidation(t *testing.T) {
	if _, err := NewSnapshotCache(nil, &countingSource{}); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewSnapshotCache(newFakeClient(), nil); !errors.Is(err, devices.ErrNilRepository) {
		t.Fatalf("expected ErrNilRepository, got %v", err)
	}
}

func TestSnapshotCacheRedisIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	source := &countingSource{}
	cache, err := NewSnapshotCache(client, source, WithKey("device-insight:itest"), WithTTL(5*time.Second))
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer cache.Invalidate(ctx)

	_ = cache.Invalidate(ctx)
	for i := 0; i < 2; i++ {
		if _, err := cache.Load(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if source.calls != 1 {
		t.Fatalf("expected one source load, got %d", source.calls)
	}
}
