package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "primepool"

// Collector exposes a Metrics value to Prometheus.
type Collector struct {
	m *Metrics

	tasksAssigned  *prometheus.Desc
	tasksProcessed *prometheus.Desc
	primesFound    *prometheus.Desc
	idlePolls      *prometheus.Desc
	avgLatency     *prometheus.Desc
	p99Latency     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading from m.
func NewCollector(m *Metrics) *Collector {
	return &Collector{
		m: m,
		tasksAssigned: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tasks_assigned_total"),
			"Number of tasks placed into worker slots.", nil, nil),
		tasksProcessed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tasks_processed_total"),
			"Number of tasks checked by workers.", nil, nil),
		primesFound: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "primes_found_total"),
			"Number of tasks classified as prime.", nil, nil),
		idlePolls: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "idle_polls_total"),
			"Number of slot polls or dispatch scans that found nothing to do.", nil, nil),
		avgLatency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "oracle_latency_avg_seconds"),
			"Average time of one primality check.", nil, nil),
		p99Latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "oracle_latency_p99_seconds"),
			"Sampled 99th percentile time of one primality check.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tasksAssigned
	ch <- c.tasksProcessed
	ch <- c.primesFound
	ch <- c.idlePolls
	ch <- c.avgLatency
	ch <- c.p99Latency
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.tasksAssigned, prometheus.CounterValue, float64(snap.TasksAssigned))
	ch <- prometheus.MustNewConstMetric(c.tasksProcessed, prometheus.CounterValue, float64(snap.TasksProcessed))
	ch <- prometheus.MustNewConstMetric(c.primesFound, prometheus.CounterValue, float64(snap.PrimesFound))
	ch <- prometheus.MustNewConstMetric(c.idlePolls, prometheus.CounterValue, float64(snap.IdlePolls))
	ch <- prometheus.MustNewConstMetric(c.avgLatency, prometheus.GaugeValue, snap.AverageLatency.Seconds())
	ch <- prometheus.MustNewConstMetric(c.p99Latency, prometheus.GaugeValue, snap.P99Latency.Seconds())
}
