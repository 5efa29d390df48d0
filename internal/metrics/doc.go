// Package metrics provides Prometheus instrumentation for the media catalog.
//
// All metrics are prefixed with "media_catalog_" to avoid naming collisions
// with other applications, and are registered with the default Prometheus
// registry via promauto. Mount promhttp.Handler() on the metrics endpoint to
// expose them.
//
// The metrics fall into these categories:
//
//   - HTTP: request counts, durations, and in-flight gauge
//   - Database: query counts and durations by operation, transaction
//     durations by outcome, connection and file size gauges
//   - Scanner: scan runs, errors, last run timestamp/duration, assets
//     indexed, artists processed, in-progress gauge
//   - Search: query counts by status, durations, result set sizes
//   - Thumbnail: generation counts by status, durations, cache hits/misses
//   - Catalog: asset counts by type and distinct tag count
//   - Authentication: login attempts by status and active session gauge
//
// To record metrics from other packages, use the exported variables:
//
//	metrics.DBQueryTotal.WithLabelValues("query_assets", "success").Inc()
//	metrics.SearchDuration.Observe(0.012)
//
// The [Collector] type periodically gathers catalog statistics from a
// [StatsProvider] and database file sizes from disk, and updates the
// corresponding gauges:
//
//	collector := metrics.NewCollector(db, dbPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
