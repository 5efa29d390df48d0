package metrics

import (
	"os"
	"time"

	"media-catalog/internal/logging"
)

// StatsProvider supplies current catalog statistics.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the catalog counts exported as gauges.
type Stats struct {
	TotalAssets  int
	TotalImages  int
	TotalStories int
	TotalTags    int
}

// Collector periodically collects and updates catalog and storage metrics.
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. dbPath may be empty to skip
// database file size collection.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider != nil {
		stats := c.statsProvider.GetStats()

		CatalogAssetsTotal.WithLabelValues("image").Set(float64(stats.TotalImages))
		CatalogAssetsTotal.WithLabelValues("story").Set(float64(stats.TotalStories))
		CatalogTagsTotal.Set(float64(stats.TotalTags))

		logging.Debug("Metrics collected: assets=%d, images=%d, stories=%d, tags=%d",
			stats.TotalAssets, stats.TotalImages, stats.TotalStories, stats.TotalTags)
	}

	c.collectDBSizes()
}

func (c *Collector) collectDBSizes() {
	if c.dbPath == "" {
		return
	}

	for suffix, label := range map[string]string{
		"":     "main",
		"-wal": "wal",
		"-shm": "shm",
	} {
		info, err := os.Stat(c.dbPath + suffix)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
