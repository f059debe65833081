package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu                sync.Mutex
	requestCount      map[string]int64
	errorCount        map[string]int64
	notificationCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:      make(map[string]int64),
		errorCount:        make(map[string]int64),
		notificationCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordNotification tracks dispatch outcomes per channel.
func (m *Metrics) RecordNotification(channel string, delivered bool) {
	if m == nil {
		return
	}
	key := channel + "|" + strconv.FormatBool(delivered)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationCount[key]++
}

// NotificationCount returns the counter for a channel/outcome pair.
func (m *Metrics) NotificationCount(channel string, delivered bool) int64 {
	if m == nil {
		return 0
	}
	key := channel + "|" + strconv.FormatBool(delivered)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationCount[key]
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
