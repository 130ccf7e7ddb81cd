package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type uniqueSubmitters struct {
	counter prometheus.Gauge
	cache   map[string]struct{}
	mu      sync.RWMutex
}

const submittersCountPerWeek = "submitters_count_per_week"

var totalUniqueSubmittersPerWeekMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: foldPlanner,
		Name:      submittersCountPerWeek,
		Help:      "number of distinct clients that submitted a sequence this week",
	},
)

// UniqueSubmittersPerWeek is reset every week by the metrics server.
var UniqueSubmittersPerWeek = &uniqueSubmitters{
	counter: totalUniqueSubmittersPerWeekMetric,
	cache:   make(map[string]struct{}),
}

func (v *uniqueSubmitters) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cache = make(map[string]struct{})
	v.counter.Set(0)
}

func (v *uniqueSubmitters) Add(client string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.cache[client]; exists {
		return
	}

	v.cache[client] = struct{}{}
	v.counter.Inc()
}

func (v *uniqueSubmitters) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.cache)
}
