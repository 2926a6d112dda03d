// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// gateway, auth, and tasks services: server timeouts, logging, database paths,
// upstream URLs, JWT parameters, rate limiting, caching, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/taskgate/go-task-gateway/internal/sysutil"
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

// JWTConfig holds the shared-secret token parameters. The gateway uses them to
// verify bearer tokens; the auth service uses the same values to issue them.
type JWTConfig struct {
	Secret   string        // JWT_SECRET
	Audience string        // JWT_AUD
	Issuer   string        // JWT_ISS
	TokenTTL time.Duration // JWT_TTL (auth service only)
}

// GatewayConfig holds settings specific to the gateway service.
type GatewayConfig struct {
	AuthBaseURL     string        // AUTH_BASE_URL
	TasksBaseURL    string        // TASKS_BASE_URL
	RateLimit       int           // GATEWAY_RATE_LIMIT: requests per window per client
	RateWindow      time.Duration // GATEWAY_RATE_WINDOW: fixed window length
	UpstreamTimeout time.Duration // GATEWAY_UPSTREAM_TIMEOUT: bound on upstream calls
}

// AuthConfig holds settings specific to the auth service.
type AuthConfig struct {
	DBPath       string  // AUTH_DB_PATH
	LoginRPS     float64 // AUTH_LOGIN_RPS: login attempts replenished per second
	LoginBurst   int     // AUTH_LOGIN_BURST: login attempt burst per (email, ip)
	SeedEmail    string  // AUTH_SEED_EMAIL (dev convenience, optional)
	SeedPassword string  // AUTH_SEED_PASSWORD
}

// TasksConfig holds settings specific to the tasks service.
type TasksConfig struct {
	DBPath    string        // TASKS_DB_PATH
	CacheTTL  time.Duration // TASKS_CACHE_TTL: list cache freshness window
	RedisAddr string        // REDIS_ADDR: when set, the list cache is Redis-backed
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Services
	JWT     JWTConfig
	Gateway GatewayConfig
	Auth    AuthConfig
	Tasks   TasksConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Shared token parameters
		JWT: JWTConfig{
			Secret:   getenv("JWT_SECRET", ""),
			Audience: getenv("JWT_AUD", "task-api"),
			Issuer:   getenv("JWT_ISS", "http://auth-service"),
			TokenTTL: getdur("JWT_TTL", 15*time.Minute),
		},

		// Gateway
		Gateway: GatewayConfig{
			AuthBaseURL:     strings.TrimRight(getenv("AUTH_BASE_URL", ""), "/"),
			TasksBaseURL:    strings.TrimRight(getenv("TASKS_BASE_URL", ""), "/"),
			RateLimit:       getint("GATEWAY_RATE_LIMIT", 60),
			RateWindow:      getdur("GATEWAY_RATE_WINDOW", time.Minute),
			UpstreamTimeout: getdur("GATEWAY_UPSTREAM_TIMEOUT", 10*time.Second),
		},

		// Auth
		Auth: AuthConfig{
			DBPath:       getenv("AUTH_DB_PATH", "auth.db"),
			LoginRPS:     getfloat("AUTH_LOGIN_RPS", 5.0/60.0),
			LoginBurst:   getint("AUTH_LOGIN_BURST", 5),
			SeedEmail:    getenv("AUTH_SEED_EMAIL", ""),
			SeedPassword: getenv("AUTH_SEED_PASSWORD", ""),
		},

		// Tasks
		Tasks: TasksConfig{
			DBPath:    getenv("TASKS_DB_PATH", "tasks.db"),
			CacheTTL:  getdur("TASKS_CACHE_TTL", 30*time.Second),
			RedisAddr: getenv("REDIS_ADDR", ""),
		},

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
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-task-gateway"),
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

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.JWT.TokenTTL <= 0 {
		return cfg, errors.New("JWT_TTL must be > 0")
	}
	if cfg.Gateway.RateLimit < 1 {
		return cfg, errors.New("GATEWAY_RATE_LIMIT must be >= 1")
	}
	if cfg.Gateway.RateWindow <= 0 {
		return cfg, errors.New("GATEWAY_RATE_WINDOW must be > 0")
	}
	if cfg.Gateway.UpstreamTimeout <= 0 {
		return cfg, errors.New("GATEWAY_UPSTREAM_TIMEOUT must be > 0")
	}
	if cfg.Auth.LoginRPS <= 0 {
		return cfg, errors.New("AUTH_LOGIN_RPS must be > 0")
	}
	if cfg.Auth.LoginBurst < 1 {
		return cfg, errors.New("AUTH_LOGIN_BURST must be >= 1")
	}
	if strings.TrimSpace(cfg.Auth.DBPath) == "" {
		return cfg, errors.New("AUTH_DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Tasks.DBPath) == "" {
		return cfg, errors.New("TASKS_DB_PATH must not be empty")
	}
	if cfg.Tasks.CacheTTL <= 0 {
		return cfg, errors.New("TASKS_CACHE_TTL must be > 0")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	// A blank secret would let HS256 verification succeed against the empty
	// key, so an unset JWT_SECRET is a startup error, not a default.
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return cfg, errors.New("JWT_SECRET must not be empty")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	return sysutil.FirstNonEmpty(os.Getenv(k), def)
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
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return sysutil.IsTruthy(v)
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
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
