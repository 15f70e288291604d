// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the cache database, the remote catalog client, paging, rate
// limiting and observability settings.
//
// A .env file in the working directory, when present, is loaded first;
// variables already set in the environment take precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DogsAPIConfig configures the remote breed catalog client.
type DogsAPIConfig struct {
	BaseURL       string        // DOGS_API_BASE_URL
	APIKey        string        // DOGS_API_KEY (optional)
	ImagesBaseURL string        // DOGS_API_IMAGES_URL
	Timeout       time.Duration // DOGS_API_TIMEOUT
	RPS           float64       // DOGS_API_RPS; 0 disables client-side limiting
	Burst         int           // DOGS_API_BURST
}

// PagingConfig tunes the page load coordinator and paging sessions.
type PagingConfig struct {
	PageSize         int  // PAGE_SIZE
	PrefetchDistance int  // PREFETCH_DISTANCE
	InitialRefresh   bool // INITIAL_REFRESH
	ReplaceOnRefresh bool // REPLACE_ON_REFRESH
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // 0 keeps event streams open
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // graceful drain on SIGTERM
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// Cache
	DBPath        string // SQLite path
	SchemaVersion int    // bump to wipe the cache on the next start

	// Remote catalog + paging
	DogsAPI         DogsAPIConfig
	Paging          PagingConfig
	ConnectivityTTL time.Duration // how long a reachability probe is reused

	// Rate limiting (inbound)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// Load reads .env (when present) and the environment, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 0),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Cache
		DBPath:        getenv("DB_PATH", "dogbreeds.db"),
		SchemaVersion: getint("SCHEMA_VERSION", 1),

		// Remote catalog
		DogsAPI: DogsAPIConfig{
			BaseURL:       strings.TrimRight(getenv("DOGS_API_BASE_URL", "https://api.thedogapi.com/v1"), "/"),
			APIKey:        getenv("DOGS_API_KEY", ""),
			ImagesBaseURL: strings.TrimRight(getenv("DOGS_API_IMAGES_URL", "https://cdn2.thedogapi.com/images"), "/"),
			Timeout:       getdur("DOGS_API_TIMEOUT", 10*time.Second),
			RPS:           getfloat("DOGS_API_RPS", 2.0),
			Burst:         getint("DOGS_API_BURST", 4),
		},
		Paging: PagingConfig{
			PageSize:         getint("PAGE_SIZE", 10),
			PrefetchDistance: getint("PREFETCH_DISTANCE", 3),
			InitialRefresh:   getbool("INITIAL_REFRESH", true),
			ReplaceOnRefresh: getbool("REPLACE_ON_REFRESH", true),
		},
		ConnectivityTTL: getdur("CONNECTIVITY_TTL", 5*time.Second),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-dogbreeds"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.WriteTimeout < 0 {
		return errors.New("WRITE_TIMEOUT must be >= 0")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if cfg.SchemaVersion < 1 {
		return errors.New("SCHEMA_VERSION must be >= 1")
	}
	if err := absURL("DOGS_API_BASE_URL", cfg.DogsAPI.BaseURL); err != nil {
		return err
	}
	if err := absURL("DOGS_API_IMAGES_URL", cfg.DogsAPI.ImagesBaseURL); err != nil {
		return err
	}
	if cfg.DogsAPI.Timeout <= 0 {
		return errors.New("DOGS_API_TIMEOUT must be > 0")
	}
	if cfg.DogsAPI.RPS < 0 || cfg.DogsAPI.Burst < 1 {
		return errors.New("DOGS_API_RPS must be >= 0 and DOGS_API_BURST >= 1")
	}
	if cfg.Paging.PageSize < 1 || cfg.Paging.PageSize > 100 {
		return errors.New("PAGE_SIZE must be between 1 and 100")
	}
	if cfg.Paging.PrefetchDistance < 0 {
		return errors.New("PREFETCH_DISTANCE must be >= 0")
	}
	if cfg.ConnectivityTTL < 0 {
		return errors.New("CONNECTIVITY_TTL must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// LoadEnvFile loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func absURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
