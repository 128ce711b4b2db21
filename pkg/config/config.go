package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Assignment store modes.
const (
	AssignmentsRemote = "remote"
	AssignmentsLocal  = "local"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store        StoreConfig
	Cache        CacheConfig
	Notification NotificationConfig
	Session      SessionConfig
	Redis        RedisConfig
	Auth         AuthConfig
	CORS         CORSConfig
	Log          LogConfig
	Metrics      MetricsConfig
}

// StoreConfig points the console at the scheduling store's REST API.
type StoreConfig struct {
	BaseURL         string
	Timeout         time.Duration
	PageSize        int
	AssignmentsMode string
	ActiveTermID    int64
}

// CacheConfig tunes the per-collection resource cache.
type CacheConfig struct {
	Freshness           time.Duration
	InvalidationChannel string
	WarmOnStart         bool
	WarmWorkers         int
	// RefreshSchedule is an optional cron spec for re-warming every collection.
	RefreshSchedule string
}

// NotificationConfig sets how long each notification severity stays visible.
type NotificationConfig struct {
	SuccessTTL time.Duration
	ErrorTTL   time.Duration
}

// SessionConfig bounds how long an idle operator session is kept.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig gates the console API behind operator bearer tokens.
type AuthConfig struct {
	Enabled bool
	Secret  string
	Issuer  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	pageSize := v.GetInt("STORE_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 100
	}
	cfg.Store = StoreConfig{
		BaseURL:         strings.TrimRight(v.GetString("STORE_BASE_URL"), "/"),
		Timeout:         parseDuration(v.GetString("STORE_TIMEOUT"), 10*time.Second),
		PageSize:        pageSize,
		AssignmentsMode: normalizeMode(v.GetString("ASSIGNMENTS_MODE")),
		ActiveTermID:    v.GetInt64("ACTIVE_TERM_ID"),
	}

	cfg.Cache = CacheConfig{
		Freshness:           parseDuration(v.GetString("CACHE_FRESHNESS"), 5*time.Minute),
		InvalidationChannel: v.GetString("INVALIDATION_CHANNEL"),
		WarmOnStart:         v.GetBool("CACHE_WARM_ON_START"),
		WarmWorkers:         v.GetInt("CACHE_WARM_WORKERS"),
		RefreshSchedule:     strings.TrimSpace(v.GetString("CACHE_REFRESH_SCHEDULE")),
	}

	cfg.Notification = NotificationConfig{
		SuccessTTL: parseDuration(v.GetString("NOTIFY_SUCCESS_TTL"), 3*time.Second),
		ErrorTTL:   parseDuration(v.GetString("NOTIFY_ERROR_TTL"), 5*time.Second),
	}

	cfg.Session = SessionConfig{
		IdleTimeout:   parseDuration(v.GetString("SESSION_IDLE_TIMEOUT"), 8*time.Hour),
		SweepInterval: parseDuration(v.GetString("SESSION_SWEEP_INTERVAL"), 10*time.Minute),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		Enabled: v.GetBool("AUTH_ENABLED"),
		Secret:  v.GetString("JWT_SECRET"),
		Issuer:  v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8090)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_BASE_URL", "http://localhost:8000")
	v.SetDefault("STORE_TIMEOUT", "10s")
	v.SetDefault("STORE_PAGE_SIZE", 100)
	v.SetDefault("ASSIGNMENTS_MODE", AssignmentsRemote)
	v.SetDefault("ACTIVE_TERM_ID", 1)

	v.SetDefault("CACHE_FRESHNESS", "5m")
	v.SetDefault("INVALIDATION_CHANNEL", "sched-console:invalidate")
	v.SetDefault("CACHE_WARM_ON_START", true)
	v.SetDefault("CACHE_WARM_WORKERS", 2)
	v.SetDefault("CACHE_REFRESH_SCHEDULE", "")

	v.SetDefault("NOTIFY_SUCCESS_TTL", "3s")
	v.SetDefault("NOTIFY_ERROR_TTL", "5s")

	v.SetDefault("SESSION_IDLE_TIMEOUT", "8h")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "10m")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)
}

func normalizeMode(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), AssignmentsLocal) {
		return AssignmentsLocal
	}
	return AssignmentsRemote
}

// viper reports a missing explicit config file as a path error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
