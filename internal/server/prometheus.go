// prometheus.go - /metrics endpoint and the storage gauges computed per scrape.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"file-intake/internal/storage"
)

// storageCollector reports the number and total size of stored files.
type storageCollector struct {
	store  storage.Store
	logger *slog.Logger

	files *prometheus.Desc
	bytes *prometheus.Desc
}

func newStorageCollector(store storage.Store, logger *slog.Logger) *storageCollector {
	return &storageCollector{
		store:  store,
		logger: logger,
		files: prometheus.NewDesc(
			"sfd_storage_files",
			"Number of stored files",
			nil, nil,
		),
		bytes: prometheus.NewDesc(
			"sfd_storage_bytes",
			"Total size of stored files in bytes",
			nil, nil,
		),
	}
}

func (c *storageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.files
	ch <- c.bytes
}

func (c *storageCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	files, err := c.store.List(ctx)
	if err != nil {
		c.logger.Warn("storage metrics unavailable", "err", err)
		return
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	ch <- prometheus.MustNewConstMetric(c.files, prometheus.GaugeValue, float64(len(files)))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(total))
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
