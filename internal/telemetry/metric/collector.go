package metric

import "github.com/prometheus/client_golang/prometheus"

// StoreSnapshot is the store state reported on each scrape.
type StoreSnapshot struct {
	Keys        int
	Channels    int
	Subscribers int
	Published   uint64
	Delivered   uint64
	Dropped     uint64
	Expired     uint64
}

// StoreCollector reports store gauges by sampling a snapshot function at
// scrape time.
type StoreCollector struct {
	snapshot func() StoreSnapshot

	keys        *prometheus.Desc
	channels    *prometheus.Desc
	subscribers *prometheus.Desc
	published   *prometheus.Desc
	delivered   *prometheus.Desc
	dropped     *prometheus.Desc
	expired     *prometheus.Desc
}

// NewStoreCollector creates a collector backed by snapshot.
func NewStoreCollector(snapshot func() StoreSnapshot) *StoreCollector {
	return &StoreCollector{
		snapshot: snapshot,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "keys"),
			"Number of keys currently stored", nil, nil),
		channels: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pubsub", "channels"),
			"Number of channels with at least one subscriber", nil, nil),
		subscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pubsub", "subscribers"),
			"Number of active channel subscriptions", nil, nil),
		published: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pubsub", "published_total"),
			"Total number of published messages", nil, nil),
		delivered: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pubsub", "delivered_total"),
			"Messages accepted into a subscriber backlog", nil, nil),
		dropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pubsub", "dropped_total"),
			"Messages lost because a subscriber backlog was full", nil, nil),
		expired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "expired_total"),
			"Keys removed because their TTL elapsed", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.channels
	ch <- c.subscribers
	ch <- c.published
	ch <- c.delivered
	ch <- c.dropped
	ch <- c.expired
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(s.Keys))
	ch <- prometheus.MustNewConstMetric(c.channels, prometheus.GaugeValue, float64(s.Channels))
	ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(s.Subscribers))
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(c.delivered, prometheus.CounterValue, float64(s.Delivered))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(s.Expired))
}
