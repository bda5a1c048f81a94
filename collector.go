package spandump

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports registry state as Prometheus metrics.
// Safe for concurrent use by multiple goroutines.
type Collector struct {
	registry Registry

	open          *prometheus.Desc
	created       *prometheus.Desc
	closed        *prometheus.Desc
	overwritten   *prometheus.Desc
	unknownClosed *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for r. Metric names are prefixed with
// namespace when it is not empty.
func NewCollector(namespace string, r Registry) *Collector {
	return &Collector{
		registry: r,
		open: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "open_spans"),
			"Number of spans created and not yet closed.",
			nil, nil),
		created: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "spans_created_total"),
			"Total span creations recorded.",
			nil, nil),
		closed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "spans_closed_total"),
			"Total span closes that removed an open span.",
			nil, nil),
		overwritten: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "span_id_overwrites_total"),
			"Total creations that replaced a still-open span with the same id.",
			nil, nil),
		unknownClosed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "unknown_span_closes_total"),
			"Total closes for span ids that were not open.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.created
	ch <- c.closed
	ch <- c.overwritten
	ch <- c.unknownClosed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.registry.Stats()

	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(c.registry.Len()))
	ch <- prometheus.MustNewConstMetric(c.created, prometheus.CounterValue, float64(stats.Created))
	ch <- prometheus.MustNewConstMetric(c.closed, prometheus.CounterValue, float64(stats.Closed))
	ch <- prometheus.MustNewConstMetric(c.overwritten, prometheus.CounterValue, float64(stats.Overwritten))
	ch <- prometheus.MustNewConstMetric(c.unknownClosed, prometheus.CounterValue, float64(stats.UnknownClosed))
}
