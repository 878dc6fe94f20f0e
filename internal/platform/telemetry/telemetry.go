// Package telemetry records HTTP and prescription-session metrics and
// serves them in the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// histogram stores non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	mu           sync.Mutex
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{boundaries: boundaries, bucketCounts: make([]int64, len(boundaries))}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	for {
		old := atomic.LoadUint64(&h.sum)
		if atomic.CompareAndSwapUint64(&h.sum, old, math.Float64bits(math.Float64frombits(old)+v)) {
			break
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 { return atomic.LoadInt64(&h.count) }

func (h *histogram) Sum() float64 { return math.Float64frombits(atomic.LoadUint64(&h.sum)) }

func (h *histogram) cumulative() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int64, len(h.bucketCounts))
	var running int64
	for i, c := range h.bucketCounts {
		running += c
		out[i] = running
	}
	return out
}

// Label is one name/value pair on a counter.
type Label struct {
	Name  string
	Value string
}

// L is shorthand for building a Label.
func L(name, value string) Label { return Label{Name: name, Value: value} }

type counter struct {
	name   string
	labels []Label
	value  int64
}

// Registry holds every metric the service exports.
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*counter
	durations map[string]*histogram
	active    int64
	namespace string
}

// NewRegistry creates an empty registry. Exported metric names are prefixed
// with namespace when it is non-empty.
func NewRegistry(namespace string) *Registry {
	return &Registry{
		counters:  make(map[string]*counter),
		durations: make(map[string]*histogram),
		namespace: namespace,
	}
}

func counterKey(name string, labels []Label) string {
	var b strings.Builder
	b.WriteString(name)
	for _, l := range labels {
		b.WriteByte('|')
		b.WriteString(l.Name)
		b.WriteByte('=')
		b.WriteString(l.Value)
	}
	return b.String()
}

// Inc adds one to the counter identified by name and labels.
func (r *Registry) Inc(name string, labels ...Label) {
	key := counterKey(name, labels)

	r.mu.RLock()
	c, ok := r.counters[key]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		if c, ok = r.counters[key]; !ok {
			c = &counter{name: name, labels: append([]Label(nil), labels...)}
			r.counters[key] = c
		}
		r.mu.Unlock()
	}
	atomic.AddInt64(&c.value, 1)
}

// Counter returns the current value of a counter, zero if it was never
// incremented.
func (r *Registry) Counter(name string, labels ...Label) int64 {
	r.mu.RLock()
	c, ok := r.counters[counterKey(name, labels)]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(&c.value)
}

func durationKey(method, route, status string) string {
	return method + "|" + route + "|" + status
}

func (r *Registry) duration(key string) *histogram {
	r.mu.RLock()
	h, ok := r.durations[key]
	r.mu.RUnlock()
	if ok {
		return h
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok = r.durations[key]; !ok {
		h = newHistogram(defaultDurationBuckets)
		r.durations[key] = h
	}
	return h
}

// MetricsMiddleware records request duration by method, route and status.
func (r *Registry) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&r.active, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&r.active, -1)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
			}
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			r.duration(durationKey(c.Request().Method, route, strconv.Itoa(status))).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (r *Registry) metricName(name string) string {
	if r.namespace == "" {
		return name
	}
	return r.namespace + "_" + name
}

// PrometheusHandler serves all metrics in text exposition format.
func (r *Registry) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, r.exposition())
	}
}

func (r *Registry) exposition() string {
	r.mu.RLock()
	counters := make([]*counter, 0, len(r.counters))
	for _, c := range r.counters {
		counters = append(counters, c)
	}
	durationKeys := make([]string, 0, len(r.durations))
	durations := make(map[string]*histogram, len(r.durations))
	for k, h := range r.durations {
		durationKeys = append(durationKeys, k)
		durations[k] = h
	}
	r.mu.RUnlock()

	var b strings.Builder

	name := r.metricName("http_server_request_duration_seconds")
	fmt.Fprintf(&b, "# HELP %s Duration of HTTP requests in seconds.\n", name)
	fmt.Fprintf(&b, "# TYPE %s histogram\n", name)
	sort.Strings(durationKeys)
	for _, key := range durationKeys {
		parts := strings.SplitN(key, "|", 3)
		labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
		h := durations[key]
		for i, cum := range h.cumulative() {
			fmt.Fprintf(&b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, h.boundaries[i], cum)
		}
		fmt.Fprintf(&b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, h.Count())
		fmt.Fprintf(&b, "%s_sum{%s} %g\n", name, labels, h.Sum())
		fmt.Fprintf(&b, "%s_count{%s} %d\n", name, labels, h.Count())
	}
	b.WriteByte('\n')

	name = r.metricName("http_server_active_requests")
	fmt.Fprintf(&b, "# HELP %s Number of active HTTP requests.\n", name)
	fmt.Fprintf(&b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(&b, "%s %d\n\n", name, atomic.LoadInt64(&r.active))

	sort.Slice(counters, func(i, j int) bool {
		return counterKey(counters[i].name, counters[i].labels) < counterKey(counters[j].name, counters[j].labels)
	})
	last := ""
	for _, c := range counters {
		name := r.metricName(c.name) + "_total"
		if name != last {
			fmt.Fprintf(&b, "# TYPE %s counter\n", name)
			last = name
		}
		fmt.Fprintf(&b, "%s%s %d\n", name, formatLabels(c.labels), atomic.LoadInt64(&c.value))
	}
	return b.String()
}

func formatLabels(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%q", l.Name, l.Value)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
