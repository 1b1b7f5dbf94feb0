package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metric names recorded during an activation run.
const (
	RequestsTotal      = "http_requests_total"
	RequestDuration    = "http_request_duration_seconds"
	TransportErrors    = "http_transport_errors_total"
	PollsTotal         = "job_polls_total"
	ActivationDuration = "activation_duration_seconds"
)

// historyLimit caps the observations kept per histogram.
const historyLimit = 100

// Collector is an in-process metrics store. A nil *Collector is valid and
// records nothing.
type Collector struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
	now     func() time.Time
}

// Metric is one counter or histogram series.
type Metric struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	History   []float64         `json:"history,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		metrics: make(map[string]*Metric),
		now:     time.Now,
	}
}

// IncCounter adds one to the counter.
func (c *Collector) IncCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

// AddCounter adds value to the counter.
func (c *Collector) AddCounter(name string, value float64, labels map[string]string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	if metric, exists := c.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = c.now().Unix()
		return
	}
	c.metrics[key] = &Metric{
		Name:      name,
		Type:      "counter",
		Value:     value,
		Labels:    labels,
		Timestamp: c.now().Unix(),
	}
}

// ObserveHistogram records one observation. Value holds the latest one.
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	if metric, exists := c.metrics[key]; exists {
		metric.Value = value
		metric.History = append(metric.History, value)
		if len(metric.History) > historyLimit {
			metric.History = metric.History[1:]
		}
		metric.Timestamp = c.now().Unix()
		return
	}
	c.metrics[key] = &Metric{
		Name:      name,
		Type:      "histogram",
		Value:     value,
		Labels:    labels,
		History:   []float64{value},
		Timestamp: c.now().Unix(),
	}
}

// RecordRequest records one completed HTTP exchange.
func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.IncCounter(RequestsTotal, map[string]string{
		"method": method,
		"status": strconv.Itoa(status),
	})
	c.ObserveHistogram(RequestDuration, duration.Seconds(), map[string]string{"method": method})
}

// RecordTransportError records an HTTP call that produced no response.
func (c *Collector) RecordTransportError(method string) {
	c.IncCounter(TransportErrors, map[string]string{"method": method})
}

// RecordPoll records one observed job status, by label.
func (c *Collector) RecordPoll(status string) {
	c.IncCounter(PollsTotal, map[string]string{"status": status})
}

// RecordActivation records how long the activation took and how it ended.
func (c *Collector) RecordActivation(outcome string, duration time.Duration) {
	c.ObserveHistogram(ActivationDuration, duration.Seconds(), map[string]string{"outcome": outcome})
}

// buildKey renders name plus labels sorted by key.
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteString(":")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(labels[k])
	}
	return sb.String()
}

// GetMetrics returns a copy of every series.
func (c *Collector) GetMetrics() map[string]*Metric {
	result := make(map[string]*Metric)
	if c == nil {
		return result
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.metrics {
		copied := *v
		copied.History = append([]float64(nil), v.History...)
		result[k] = &copied
	}
	return result
}

// Summary folds the series into the figures logged at the end of a run.
func (c *Collector) Summary() map[string]any {
	var (
		requests, transportErrors, polls float64
		durationSum                      float64
		durationCount                    int
	)
	summary := make(map[string]any)

	for _, metric := range c.GetMetrics() {
		switch metric.Name {
		case RequestsTotal:
			requests += metric.Value
		case TransportErrors:
			transportErrors += metric.Value
		case PollsTotal:
			polls += metric.Value
		case RequestDuration:
			for _, v := range metric.History {
				durationSum += v
			}
			durationCount += len(metric.History)
		case ActivationDuration:
			summary["activation_seconds"] = metric.Value
			summary["outcome"] = metric.Labels["outcome"]
		}
	}

	summary["http_requests_total"] = int64(requests)
	summary["http_transport_errors_total"] = int64(transportErrors)
	summary["job_polls_total"] = int64(polls)
	if durationCount > 0 {
		summary["avg_http_duration_seconds"] = durationSum / float64(durationCount)
	}
	return summary
}
