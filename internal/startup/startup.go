package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"media-catalog/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// defaultExtensions are the indexable file extensions when
// ALLOWED_EXTENSIONS is unset.
var defaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff"}

// Config holds all application configuration.
type Config struct {
	MediaDir    string
	CacheDir    string
	DatabaseDir string
	Port        string
	MetricsPort string

	// AllowedTags is the tag-folder allowlist in canonical casing.
	AllowedTags []string
	// AllowedExtensions are the indexable file extensions.
	AllowedExtensions []string

	PageSize        int
	ScanOnStart     bool
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool

	// Derived paths
	DatabasePath string
	ThumbnailDir string
}

// LoadConfig loads and validates configuration from the environment. A .env
// file in the working directory is read first if present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Info("Loaded environment from .env file")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	cfg := &Config{
		MediaDir:          getEnv("MEDIA_DIR", "/media"),
		CacheDir:          getEnv("CACHE_DIR", "/cache"),
		DatabaseDir:       getEnv("DATABASE_DIR", "/database"),
		Port:              getEnv("PORT", "8080"),
		MetricsPort:       getEnv("METRICS_PORT", "9090"),
		AllowedTags:       getEnvList("ALLOWED_TAGS", nil),
		AllowedExtensions: getEnvList("ALLOWED_EXTENSIONS", defaultExtensions),
		PageSize:          getEnvInt("PAGE_SIZE", 60),
		ScanOnStart:       getEnvBool("SCAN_ON_START", true),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		LogStaticFiles:    getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:   getEnvBool("LOG_HEALTH_CHECKS", true),
	}

	logging.Info("  MEDIA_DIR:           %s", cfg.MediaDir)
	logging.Info("  CACHE_DIR:           %s", cfg.CacheDir)
	logging.Info("  DATABASE_DIR:        %s", cfg.DatabaseDir)
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  METRICS_PORT:        %s", cfg.MetricsPort)
	logging.Info("  ALLOWED_TAGS:        %d tags", len(cfg.AllowedTags))
	logging.Info("  ALLOWED_EXTENSIONS:  %s", strings.Join(cfg.AllowedExtensions, " "))
	logging.Info("  PAGE_SIZE:           %d", cfg.PageSize)
	logging.Info("  SCAN_ON_START:       %s", enabledString(cfg.ScanOnStart))
	logging.Info("  METRICS_ENABLED:     %s", enabledString(cfg.MetricsEnabled))
	logging.Info("")

	if len(cfg.AllowedTags) == 0 {
		logging.Warn("ALLOWED_TAGS is empty; every directory with spaces or unknown tokens becomes a story")
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}

	if err := ensureDirectory(cfg.MediaDir, "media"); err != nil {
		return nil, err
	}
	if err := ensureDirectory(cfg.CacheDir, "cache"); err != nil {
		return nil, err
	}
	if err := ensureDirectory(cfg.DatabaseDir, "database"); err != nil {
		return nil, err
	}

	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "catalog.db")
	cfg.ThumbnailDir = filepath.Join(cfg.CacheDir, "thumbnails")

	return cfg, nil
}

// LogServerStarted announces the listening addresses.
func LogServerStarted(cfg *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER READY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Catalog API:  http://0.0.0.0:%s", cfg.Port)
	if cfg.MetricsEnabled {
		logging.Info("  Metrics:      http://0.0.0.0:%s/metrics", cfg.MetricsPort)
	}
	logging.Info("")
}

// LogShutdownInitiated logs the start of a graceful shutdown.
func LogShutdownInitiated(signal string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN (%s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownComplete logs the end of a graceful shutdown.
func LogShutdownComplete() {
	logging.Info("Shutdown complete")
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___          ______      __        __
   /  |/  /__  ____/ (_)___ _   / ____/___ _/ /_____ _/ /___  ____ _
  / /|_/ / _ \/ __  / / __ '/  / /   / __ '/ __/ __ '/ / __ \/ __ '/
 / /  / /  __/ /_/ / / /_/ /  / /___/ /_/ / /_/ /_/ / / /_/ / /_/ /
/_/  /_/\___/\__,_/_/\__,_/   \____/\__,_/\__/\__,_/_/\____/\__, /
                                                           /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("  Creating %s directory: %s", name, path)
			if err := os.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf("failed to create %s directory %s: %w", name, path, err)
			}
			return nil
		}
		return fmt.Errorf("failed to stat %s directory %s: %w", name, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path %s is not a directory", name, path)
	}
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvList parses a comma-separated environment value, trimming whitespace
// and dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
