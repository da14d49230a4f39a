package metricsprom

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-order-verify/core"
)

// Recorder backs the metrics contract with prometheus collectors. Vectors
// are created lazily on first use; a metric's label set is fixed by its
// first observation.
type Recorder struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewRecorder(registerer prometheus.Registerer) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Recorder{
		registerer: registerer,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	metric := sanitizeMetricName(name)
	if metric == "" {
		return
	}
	labels := labelKeys(tags)

	r.mu.Lock()
	vec, ok := r.counters[metric]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: metric}, labels)
		if err := r.registerer.Register(vec); err != nil {
			if already, isDup := err.(prometheus.AlreadyRegisteredError); isDup {
				if existing, isVec := already.ExistingCollector.(*prometheus.CounterVec); isVec {
					vec = existing
				}
			} else {
				r.mu.Unlock()
				return
			}
		}
		r.counters[metric] = vec
	}
	r.mu.Unlock()

	vec.With(prometheus.Labels(tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	metric := sanitizeMetricName(name)
	if metric == "" {
		return
	}
	labels := labelKeys(tags)

	r.mu.Lock()
	vec, ok := r.histograms[metric]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metric,
			Buckets: prometheus.DefBuckets,
		}, labels)
		if err := r.registerer.Register(vec); err != nil {
			if already, isDup := err.(prometheus.AlreadyRegisteredError); isDup {
				if existing, isVec := already.ExistingCollector.(*prometheus.HistogramVec); isVec {
					vec = existing
				}
			} else {
				r.mu.Unlock()
				return
			}
		}
		r.histograms[metric] = vec
	}
	r.mu.Unlock()

	vec.With(prometheus.Labels(tags)).Observe(value)
}

// sanitizeMetricName maps dotted runtime metric names onto the prometheus
// charset.
func sanitizeMetricName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			builder.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}

func labelKeys(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ core.MetricsRecorder = (*Recorder)(nil)
