package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	requestTime   map[string]time.Duration
	errorCount    map[string]int64
	collaborators map[string]int64
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests             []RequestStat    `json:"requests"`
	Errors               map[string]int64 `json:"errors"`
	CollaboratorFailures map[string]int64 `json:"collaborator_failures"`
}

// RequestStat aggregates one route, method and status.
type RequestStat struct {
	Key       string  `json:"key"`
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		requestTime:   make(map[string]time.Duration),
		errorCount:    make(map[string]int64),
		collaborators: make(map[string]int64),
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
	m.requestTime[key] += duration
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

// RecordCollaboratorFailure counts a swallowed assistant or blob store failure.
func (m *Metrics) RecordCollaboratorFailure(collaborator string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collaborators[collaborator]++
}

// Snapshot copies the counters. Requests are sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Errors: map[string]int64{}, CollaboratorFailures: map[string]int64{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, count := range m.requestCount {
		avg := float64(m.requestTime[key].Microseconds()) / 1000 / float64(count)
		snap.Requests = append(snap.Requests, RequestStat{Key: key, Count: count, AvgMillis: avg})
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].Key < snap.Requests[j].Key })
	for key, count := range m.errorCount {
		snap.Errors[key] = count
	}
	for key, count := range m.collaborators {
		snap.CollaboratorFailures[key] = count
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
