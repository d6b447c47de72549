package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Family is a metric family that holds a replaceable set of label records.
type Family interface {
	// Clear removes every published label combination.
	Clear()
	// Publish adds one label record. Values follow the family's label schema.
	Publish(labelValues ...string)
	// Len returns the number of distinct label combinations published.
	Len() int
}

// InfoFamily is a Family of info-style gauges: every record has value 1.
// It is a prometheus.Collector and is registered like one.
type InfoFamily struct {
	vec *prometheus.GaugeVec

	mu     sync.Mutex
	series map[string]struct{}
}

var _ Family = (*InfoFamily)(nil)

// NewInfoFamily creates an unregistered family with a fixed label schema.
func NewInfoFamily(name, help string, labels ...string) *InfoFamily {
	return &InfoFamily{
		vec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: help,
		}, labels),
		series: make(map[string]struct{}),
	}
}

func (f *InfoFamily) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vec.Reset()
	clear(f.series)
}

func (f *InfoFamily) Publish(labelValues ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vec.WithLabelValues(labelValues...).Set(1)
	f.series[strings.Join(labelValues, "\xff")] = struct{}{}
}

func (f *InfoFamily) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.series)
}

func (f *InfoFamily) Describe(ch chan<- *prometheus.Desc) {
	f.vec.Describe(ch)
}

func (f *InfoFamily) Collect(ch chan<- prometheus.Metric) {
	f.vec.Collect(ch)
}
