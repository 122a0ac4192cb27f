package tiering

import (
	"math"
	"sync"

	devices "device-insight/internal/devices/domain"
)

const defaultMemoSize = 4096

type memoKey struct {
	profile     Profile
	sensorCount int
}

// newMemoKey normalizes the inputs the same way Explain does, so equal keys
// always produce equal scores.
func newMemoKey(d devices.Device, sensorCount int) memoKey {
	p := ProfileOf(d)
	if math.IsNaN(p.TotalMemoryGB) {
		p.TotalMemoryGB = 0
	}
	if math.IsNaN(p.TotalStorageGB) {
		p.TotalStorageGB = 0
	}
	if sensorCount < 0 {
		sensorCount = 0
	}
	return memoKey{profile: p, sensorCount: sensorCount}
}

// Memo caches tier results per (scoring profile, sensor count). The score
// reads nothing else, so rows sharing a device id but differing in hardware
// get their own entries.
type Memo struct {
	mu       sync.RWMutex
	entries  map[memoKey]Info
	maxSize  int
	onLookup func(hit bool)
}

// MemoOption configures a Memo.
type MemoOption func(*Memo)

// WithMemoSize bounds the number of cached entries. The memo is cleared when
// the bound is reached.
func WithMemoSize(size int) MemoOption {
	return func(m *Memo) {
		if size > 0 {
			m.maxSize = size
		}
	}
}

// WithLookupHook registers a callback invoked on every lookup.
func WithLookupHook(fn func(hit bool)) MemoOption {
	return func(m *Memo) {
		m.onLookup = fn
	}
}

// NewMemo constructs a Memo.
func NewMemo(opts ...MemoOption) *Memo {
	m := &Memo{entries: make(map[memoKey]Info), maxSize: defaultMemoSize}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Evaluate returns the cached result or scores the device.
// A nil Memo scores without caching.
func (m *Memo) Evaluate(d devices.Device, sensorCount int) Info {
	if m == nil {
		return EvaluateDevice(d, sensorCount)
	}
	key := newMemoKey(d, sensorCount)

	m.mu.RLock()
	info, ok := m.entries[key]
	m.mu.RUnlock()
	m.record(ok)
	if ok {
		return info
	}

	info = EvaluateDevice(d, sensorCount)
	m.mu.Lock()
	if len(m.entries) >= m.maxSize {
		m.entries = make(map[memoKey]Info)
	}
	m.entries[key] = info
	m.mu.Unlock()
	return info
}

// Len returns the number of cached entries.
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Reset drops all cached entries.
func (m *Memo) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.entries = make(map[memoKey]Info)
	m.mu.Unlock()
}

func (m *Memo) record(hit bool) {
	if m.onLookup != nil {
		m.onLookup(hit)
	}
}

// Scorer resolves a tier for a device given its sensor count.
// Both *Memo and ScoreFunc satisfy it.
type Scorer interface {
	Evaluate(d devices.Device, sensorCount int) Info
}

// ScoreFunc adapts a function to Scorer.
type ScoreFunc func(d devices.Device, sensorCount int) Info

// Evaluate calls f.
func (f ScoreFunc) Evaluate(d devices.Device, sensorCount int) Info {
	return f(d, sensorCount)
}

// Direct scores without caching.
var Direct Scorer = ScoreFunc(EvaluateDevice)
