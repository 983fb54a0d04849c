package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type collector interface {
	write(sb *strings.Builder)
}

type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type gaugeVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

type histogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.RWMutex
	values map[string]*histogramValue
}

type histogramValue struct {
	counts []uint64
	sum    float64
	total  uint64
}

var (
	collectors []collector

	requests       = newCounterVec("cipherlab_requests_total", "Total number of cipher requests handled, by transport, endpoint and status.", []string{"transport", "endpoint", "status"})
	requestErrors  = newCounterVec("cipherlab_request_errors_total", "Total number of failed cipher requests, by error kind.", []string{"transport", "endpoint", "kind"})
	requestLatency = newHistogramVec("cipherlab_request_duration_seconds", "Latency of cipher request handlers.", []string{"transport", "endpoint"})
	inflight       = newGaugeVec("cipherlab_requests_inflight", "Number of requests currently being served.", []string{"transport"})
	rateLimited    = newCounterVec("cipherlab_rate_limited_total", "Number of requests rejected by the rate limiter.", []string{"transport"})
	hypotheses     = newCounterVec("cipherlab_bruteforce_hypotheses_total", "Number of Caesar shift hypotheses evaluated by brute force attacks.", nil)
	desBlocks      = newCounterVec("cipherlab_des_blocks_total", "Number of 64-bit DES blocks processed.", []string{"direction"})
	keysGenerated  = newCounterVec("cipherlab_keys_generated_total", "Number of keys drawn from the secure random source.", []string{"cipher"})

	totalRequests uint64
)

func init() {
	collectors = []collector{requests, requestErrors, requestLatency, inflight, rateLimited, hypotheses, desBlocks, keysGenerated}
}

func newCounterVec(name, help string, labels []string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newGaugeVec(name, help string, labels []string) *gaugeVec {
	return &gaugeVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newHistogramVec(name, help string, labels []string) *histogramVec {
	buckets := []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	return &histogramVec{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: buckets,
		values:  make(map[string]*histogramValue),
	}
}

func labelKey(labels, values []string) string {
	if len(values) != len(labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(labels), len(values)))
	}
	return strings.Join(values, ",")
}

func (cv *counterVec) add(delta float64, values ...string) {
	key := labelKey(cv.labels, values)
	cv.mu.Lock()
	cv.values[key] += delta
	cv.mu.Unlock()
}

func (cv *counterVec) IncWith(values ...string) {
	cv.add(1, values...)
}

func (cv *counterVec) AddWith(delta float64, values ...string) {
	cv.add(delta, values...)
}

func (cv *counterVec) value(values ...string) float64 {
	key := labelKey(cv.labels, values)
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	return cv.values[key]
}

func (cv *counterVec) write(sb *strings.Builder) {
	writeHeader(sb, cv.name, cv.help, "counter")
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	for _, key := range sortedKeys(cv.values) {
		sb.WriteString(cv.name)
		writeLabels(sb, cv.labels, key, "")
		sb.WriteString(fmt.Sprintf(" %g\n", cv.values[key]))
	}
}

func (gv *gaugeVec) Add(values []string, delta float64) {
	key := labelKey(gv.labels, values)
	gv.mu.Lock()
	gv.values[key] += delta
	gv.mu.Unlock()
}

func (gv *gaugeVec) write(sb *strings.Builder) {
	writeHeader(sb, gv.name, gv.help, "gauge")
	gv.mu.RLock()
	defer gv.mu.RUnlock()
	for _, key := range sortedKeys(gv.values) {
		sb.WriteString(gv.name)
		writeLabels(sb, gv.labels, key, "")
		sb.WriteString(fmt.Sprintf(" %g\n", gv.values[key]))
	}
}

func (hv *histogramVec) Observe(values []string, sample float64) {
	key := labelKey(hv.labels, values)
	hv.mu.Lock()
	defer hv.mu.Unlock()
	entry, ok := hv.values[key]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(hv.buckets)+1)}
		hv.values[key] = entry
	}
	entry.sum += sample
	entry.total++
	placed := false
	for i, bucket := range hv.buckets {
		if sample <= bucket {
			entry.counts[i]++
			placed = true
			break
		}
	}
	if !placed {
		entry.counts[len(hv.buckets)]++
	}
}

func (hv *histogramVec) write(sb *strings.Builder) {
	writeHeader(sb, hv.name, hv.help, "histogram")
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	keys := make([]string, 0, len(hv.values))
	for k := range hv.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entry := hv.values[key]
		cumulative := uint64(0)
		for i, upper := range hv.buckets {
			cumulative += entry.counts[i]
			sb.WriteString(hv.name)
			sb.WriteString("_bucket")
			writeLabels(sb, hv.labels, key, fmt.Sprintf("le=\"%g\"", upper))
			sb.WriteString(fmt.Sprintf(" %d\n", cumulative))
		}
		cumulative += entry.counts[len(hv.buckets)]
		sb.WriteString(hv.name)
		sb.WriteString("_bucket")
		writeLabels(sb, hv.labels, key, "le=\"+Inf\"")
		sb.WriteString(fmt.Sprintf(" %d\n", cumulative))

		sb.WriteString(hv.name)
		sb.WriteString("_sum")
		writeLabels(sb, hv.labels, key, "")
		sb.WriteString(fmt.Sprintf(" %g\n", entry.sum))

		sb.WriteString(hv.name)
		sb.WriteString("_count")
		writeLabels(sb, hv.labels, key, "")
		sb.WriteString(fmt.Sprintf(" %d\n", entry.total))
	}
}

func sortedKeys(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeLabels renders {a="x",b="y"} for a joined label key, with an optional
// trailing pair such as le="0.5".
func writeLabels(sb *strings.Builder, labels []string, key, extra string) {
	if len(labels) == 0 && extra == "" {
		return
	}
	sb.WriteString("{")
	if len(labels) > 0 {
		parts := strings.Split(key, ",")
		for i, label := range labels {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(label)
			sb.WriteString("=\"")
			sb.WriteString(escapeLabel(parts[i]))
			sb.WriteString("\"")
		}
		if extra != "" {
			sb.WriteString(",")
		}
	}
	sb.WriteString(extra)
	sb.WriteString("}")
}

func writeHeader(sb *strings.Builder, name, help, metricType string) {
	sb.WriteString("# HELP ")
	sb.WriteString(name)
	sb.WriteString(" ")
	sb.WriteString(help)
	sb.WriteString("\n# TYPE ")
	sb.WriteString(name)
	sb.WriteString(" ")
	sb.WriteString(metricType)
	sb.WriteString("\n")
}

func escapeLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\n", "\\n")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, ",", "_")
	return value
}

// Handler exposes the metrics registry as an http.Handler compatible with Prometheus.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		for _, collector := range collectors {
			collector.write(&sb)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(sb.String()))
	})
}

// RecordRequest counts a finished request. status is an HTTP status code or
// a gRPC code name.
func RecordRequest(transport, endpoint, status string) {
	requests.IncWith(normalise(transport), normalise(endpoint), normalise(status))
	atomic.AddUint64(&totalRequests, 1)
}

// RecordError counts a failed request by error kind.
func RecordError(transport, endpoint, kind string) {
	requestErrors.IncWith(normalise(transport), normalise(endpoint), normalise(kind))
}

// ObserveRequestDuration records the time spent serving one request.
func ObserveRequestDuration(transport, endpoint string, dur time.Duration) {
	requestLatency.Observe([]string{normalise(transport), normalise(endpoint)}, dur.Seconds())
}

// TrackInflight increments the in-flight gauge and returns the func that
// decrements it.
func TrackInflight(transport string) func() {
	labels := []string{normalise(transport)}
	inflight.Add(labels, 1)
	return func() { inflight.Add(labels, -1) }
}

// RecordRateLimited counts a request turned away by the rate limiter.
func RecordRateLimited(transport string) {
	rateLimited.IncWith(normalise(transport))
}

// RecordBruteForce counts evaluated Caesar shift hypotheses.
func RecordBruteForce(count int) {
	if count <= 0 {
		return
	}
	hypotheses.AddWith(float64(count))
}

// RecordDESBlocks counts DES blocks processed in one direction
// ("encrypt" or "decrypt").
func RecordDESBlocks(direction string, count int) {
	if count <= 0 {
		return
	}
	desBlocks.AddWith(float64(count), normalise(direction))
}

// RecordKeyGenerated counts a key drawn for cipher.
func RecordKeyGenerated(cipher string) {
	keysGenerated.IncWith(normalise(cipher))
}

// TotalRequests returns the total number of requests served since process start.
func TotalRequests() uint64 {
	return atomic.LoadUint64(&totalRequests)
}

func normalise(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unspecified"
	}
	return value
}
