package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/valtok-go/pkg/dataprotect"
)

// KeyRingCollector reports the state of the live key ring at scrape time.
type KeyRingCollector struct {
	load func() *dataprotect.KeyRing

	keys           *prometheus.Desc
	defaultCreated *prometheus.Desc
}

// NewKeyRingCollector creates a collector reading the ring from load, which
// may return nil while no ring is loaded.
func NewKeyRingCollector(load func() *dataprotect.KeyRing) *KeyRingCollector {
	return &KeyRingCollector{
		load: load,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyring", "keys"),
			"Number of keys in the active key ring",
			nil, nil,
		),
		defaultCreated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyring", "default_key_created_timestamp_seconds"),
			"Creation time of the key used to protect new tokens",
			[]string{"key_id"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *KeyRingCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.defaultCreated
}

// Collect implements prometheus.Collector.
func (c *KeyRingCollector) Collect(ch chan<- prometheus.Metric) {
	ring := c.load()
	if ring == nil {
		ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(ring.Len()))

	id := ring.DefaultKeyID()
	created := float64(id.Time()) / 1e3
	ch <- prometheus.MustNewConstMetric(c.defaultCreated, prometheus.GaugeValue, created, id.String())
}
