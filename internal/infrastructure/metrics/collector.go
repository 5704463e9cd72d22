package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/asakaida/propaccess/pkg/cache"
)

// Collector keeps in-process request and session-store statistics.
// It backs the Prometheus exporter and can be queried directly in tests.
type Collector struct {
	apiRequests sync.Map // method -> *uint64
	apiErrors   sync.Map // method + "|" + code -> *uint64
	apiDuration sync.Map // method -> *durationValue

	store cache.Cache
}

type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// SessionStoreMetrics holds session store statistics.
type SessionStoreMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	Evictions   uint64
	Expirations uint64

	// KeysCurrent and MemoryBytes stay zero for stores that cannot report their size
	KeysCurrent int64
	MemoryBytes int64
}

// APIMetrics holds API request metrics.
type APIMetrics struct {
	RequestCounts        map[string]uint64
	ErrorCounts          map[string]uint64 // keyed by "method|code"
	TotalDurationSeconds map[string]float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetSessionStore sets the session store whose statistics are reported.
func (c *Collector) SetSessionStore(store cache.Cache) {
	c.store = store
}

// RecordRequest records an API request.
func (c *Collector) RecordRequest(method string) {
	atomic.AddUint64(c.counter(&c.apiRequests, method), 1)
}

// RecordError records a failed API request with its status code name.
func (c *Collector) RecordError(method, code string) {
	atomic.AddUint64(c.counter(&c.apiErrors, method+"|"+code), 1)
}

// RecordDuration records the duration of an API call in seconds.
func (c *Collector) RecordDuration(method string, durationSeconds float64) {
	val, _ := c.apiDuration.LoadOrStore(method, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// GetSessionStoreMetrics returns current session store metrics.
func (c *Collector) GetSessionStoreMetrics() *SessionStoreMetrics {
	if c.store == nil {
		return &SessionStoreMetrics{}
	}

	m := c.store.Metrics()
	if m == nil {
		return &SessionStoreMetrics{}
	}

	result := &SessionStoreMetrics{
		Hits:        m.Hits,
		Misses:      m.Misses,
		HitRate:     m.HitRate(),
		Evictions:   m.KeysEvicted,
		Expirations: m.KeysExpired,
	}

	if sizer, ok := c.store.(cache.Sizer); ok {
		result.KeysCurrent = int64(sizer.Len())
		result.MemoryBytes = sizer.Size()
	}

	return result
}

// GetAPIMetrics returns a snapshot of API metrics.
func (c *Collector) GetAPIMetrics() *APIMetrics {
	result := &APIMetrics{
		RequestCounts:        make(map[string]uint64),
		ErrorCounts:          make(map[string]uint64),
		TotalDurationSeconds: make(map[string]float64),
	}

	c.apiRequests.Range(func(key, value interface{}) bool {
		result.RequestCounts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.apiErrors.Range(func(key, value interface{}) bool {
		result.ErrorCounts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.apiDuration.Range(func(key, value interface{}) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	return result
}

func (c *Collector) counter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}
