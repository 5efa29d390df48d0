package metrics

// InitializeMetrics pre-populates expected label combinations so that every
// metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	dbOps := []string{
		"query_assets", "get_asset_by_id", "get_asset_by_path", "tag_counts",
		"wipe_all", "vacuum", "create_user", "update_password",
		"validate_password", "create_session", "validate_session",
		"delete_session", "clean_expired_sessions",
	}
	for _, op := range dbOps {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error"} {
		SearchQueriesTotal.WithLabelValues(status)
		AuthAttemptsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "error", "error_not_found", "error_decode"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, t := range []string{"image", "story"} {
		CatalogAssetsTotal.WithLabelValues(t)
	}
}
