package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ruteri/ddssec-engine/handles"
)

// CommandMetrics counts and times every command run through a session. It
// satisfies ta.Observer.
type CommandMetrics struct {
	Commands *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewCommandMetrics(namespace string, reg prometheus.Registerer) (*CommandMetrics, error) {
	m := &CommandMetrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Engine commands by command name and result.",
		}, []string{"command", "result"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Engine command latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"command"}),
	}
	for _, c := range []prometheus.Collector{m.Commands, m.Latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *CommandMetrics) ObserveCommand(command, result string, duration time.Duration) {
	m.Commands.WithLabelValues(command, result).Inc()
	m.Latency.WithLabelValues(command).Observe(duration.Seconds())
}

// PoolSource reports handle pool occupancy by pool name.
type PoolSource interface {
	Pools() map[string]handles.Info
}

// PoolCollector exports the capacity and allocation of every handle pool at
// scrape time.
type PoolCollector struct {
	source    PoolSource
	allocated *prometheus.Desc
	capacity  *prometheus.Desc
}

func NewPoolCollector(namespace string, source PoolSource) *PoolCollector {
	return &PoolCollector{
		source: source,
		allocated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "handles_allocated"),
			"Handles currently allocated in a pool.",
			[]string{"pool"}, nil),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "handles_capacity"),
			"Fixed capacity of a handle pool.",
			[]string{"pool"}, nil),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocated
	ch <- c.capacity
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for name, info := range c.source.Pools() {
		ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.GaugeValue, float64(info.Allocated), name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(info.Capacity), name)
	}
}
