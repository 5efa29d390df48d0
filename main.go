package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-catalog/internal/classify"
	"media-catalog/internal/database"
	"media-catalog/internal/handlers"
	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
	"media-catalog/internal/media"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/search"
	"media-catalog/internal/startup"
)

func main() {
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Fatal("Database initialization failed: %v", err)
	}

	classifier := classify.New(classify.Config{
		Tags:       config.AllowedTags,
		Extensions: config.AllowedExtensions,
	})
	scanner := indexer.NewScanner(db, classifier, config.MediaDir)
	engine := search.NewEngine(db, config.PageSize)

	thumbGen, err := media.NewThumbnailGenerator(config.MediaDir, config.ThumbnailDir)
	if err != nil {
		logging.Fatal("Thumbnail cache initialization failed: %v", err)
	}

	h := handlers.New(db, scanner, engine, thumbGen, config)

	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)

	collector := metrics.NewCollector(statsAdapter{db}, config.DatabasePath, time.Minute)
	collector.Start()

	// Expired sessions are swept hourly for the lifetime of the process.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			db.CleanExpiredSessions(ctx)
			db.UpdateDBMetrics()
		}
	}()

	if config.ScanOnStart {
		if scanID, err := scanner.TriggerScan(); err != nil {
			logging.Warn("Initial scan did not start: %v", err)
		} else {
			logging.Info("Initial scan started: %s", scanID)
		}
	}

	router := setupRouter(h)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = h.AuthMiddleware(router)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, db, collector)

	startup.LogServerStarted(config)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health and version
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)

	// Authentication
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/setup-required", h.CheckSetupRequired).Methods(http.MethodGet)
	auth.HandleFunc("/setup", h.Setup).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	auth.HandleFunc("/check", h.CheckAuth).Methods(http.MethodGet)
	auth.HandleFunc("/change-password", h.ChangePassword).Methods(http.MethodPost)

	// Catalog API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/tags", h.GetTags).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/scan", h.TriggerScan).Methods(http.MethodPost)
	api.HandleFunc("/scan/status", h.ScanStatus).Methods(http.MethodGet)
	api.HandleFunc("/scan/events", h.ScanEvents).Methods(http.MethodGet)
	api.HandleFunc("/reset", h.ResetCatalog).Methods(http.MethodPost)
	api.HandleFunc("/asset/{id}", h.GetAsset).Methods(http.MethodGet)
	api.HandleFunc("/thumbnail/{id}", h.GetThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/file/{path:.*}", h.ServeFile).Methods(http.MethodGet)
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./static")))

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, db *database.Database, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collector.Stop()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	}

	startup.LogShutdownComplete()
}

// statsAdapter exposes the cached catalog statistics to the metrics
// collector.
type statsAdapter struct {
	db *database.Database
}

func (s statsAdapter) GetStats() metrics.Stats {
	stats := s.db.GetStats()
	return metrics.Stats{
		TotalAssets:  stats.TotalAssets,
		TotalImages:  stats.TotalImages,
		TotalStories: stats.TotalStories,
		TotalTags:    stats.TotalTags,
	}
}
