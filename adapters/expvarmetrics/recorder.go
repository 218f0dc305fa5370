// Package expvarmetrics publishes core metrics through expvar.
package expvarmetrics

import (
	"context"
	"expvar"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-ado-alerts/core"
)

const DefaultName = "alerthook_metrics"

type histogram struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Max   float64 `json:"max"`
}

// Recorder keeps counters and histogram summaries keyed by metric name plus
// sorted tags, e.g. alerts.ingest.total{status=success}.
type Recorder struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]histogram
}

func NewRecorder() *Recorder {
	return &Recorder{
		counters:   map[string]int64{},
		histograms: map[string]histogram{},
	}
}

// Publish exposes the recorder under name on /debug/vars. Publishing a name
// that is already taken is a no-op and returns false.
func (r *Recorder) Publish(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if expvar.Get(name) != nil {
		return false
	}
	expvar.Publish(name, expvar.Func(func() any {
		return r.Snapshot()
	}))
	return true
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil {
		return
	}
	key := metricKey(name, tags)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[key] += value
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	key := metricKey(name, tags)
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.histograms[key]
	current.Count++
	current.Sum += value
	if current.Count == 1 || value > current.Max {
		current.Max = value
	}
	r.histograms[key] = current
}

func (r *Recorder) Counter(name string, tags map[string]string) int64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[metricKey(name, tags)]
}

func (r *Recorder) Snapshot() map[string]any {
	if r == nil {
		return map[string]any{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	counters := make(map[string]int64, len(r.counters))
	for key, value := range r.counters {
		counters[key] = value
	}
	histograms := make(map[string]histogram, len(r.histograms))
	for key, value := range r.histograms {
		histograms[key] = value
	}
	return map[string]any{
		"counters":   counters,
		"histograms": histograms,
	}
}

func metricKey(name string, tags map[string]string) string {
	name = strings.TrimSpace(name)
	if len(tags) == 0 {
		return name
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+tags[key])
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

var _ core.MetricsRecorder = (*Recorder)(nil)
