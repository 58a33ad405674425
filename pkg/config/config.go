package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Dashboard DashboardConfig
	Portal    PortalConfig
	Guard     GuardConfig
	Exports   ExportConfig
	Reminders ReminderConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// PortalConfig controls the PIN-gated client portal.
type PortalConfig struct {
	Enabled      bool
	MaxAttempts  int
	LockoutTTL   time.Duration
	PinMinLength int
}

// GuardConfig lists web routes exempt from the cookie route guard.
type GuardConfig struct {
	PublicPaths []string
	LoginPath   string
}

// ExportConfig tunes the on-disk export archive and its signed download links.
type ExportConfig struct {
	Dir       string
	Secret    string
	LinkTTL   time.Duration
	Retention time.Duration
}

// ReminderConfig tunes the background session reminder dispatcher.
type ReminderConfig struct {
	Enabled  bool
	Interval time.Duration
	Lead     time.Duration
	Workers  int
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 30*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Portal = PortalConfig{
		Enabled:      v.GetBool("ENABLE_PORTAL"),
		MaxAttempts:  v.GetInt("PORTAL_MAX_ATTEMPTS"),
		LockoutTTL:   parseDuration(v.GetString("PORTAL_LOCKOUT_TTL"), 15*time.Minute),
		PinMinLength: v.GetInt("PORTAL_PIN_MIN_LENGTH"),
	}

	cfg.Guard = GuardConfig{
		PublicPaths: splitAndTrim(v.GetString("GUARD_PUBLIC_PATHS")),
		LoginPath:   v.GetString("GUARD_LOGIN_PATH"),
	}

	cfg.Exports = ExportConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		Secret:    v.GetString("EXPORT_SIGN_SECRET"),
		LinkTTL:   parseDuration(v.GetString("EXPORT_LINK_TTL"), 24*time.Hour),
		Retention: parseDuration(v.GetString("EXPORT_RETENTION"), 7*24*time.Hour),
	}

	cfg.Reminders = ReminderConfig{
		Enabled:  v.GetBool("ENABLE_REMINDERS"),
		Interval: parseDuration(v.GetString("REMINDER_INTERVAL"), 15*time.Minute),
		Lead:     parseDuration(v.GetString("REMINDER_LEAD"), 24*time.Hour),
		Workers:  v.GetInt("REMINDER_WORKERS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fitdesk")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "720h")
	v.SetDefault("JWT_ISSUER", "fitdesk-api")


	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_PORTAL", true)
	v.SetDefault("PORTAL_MAX_ATTEMPTS", 5)
	v.SetDefault("PORTAL_LOCKOUT_TTL", "15m")
	v.SetDefault("PORTAL_PIN_MIN_LENGTH", 4)

	v.SetDefault("GUARD_PUBLIC_PATHS", "/login,/register,/api-test")
	v.SetDefault("GUARD_LOGIN_PATH", "/login")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_SIGN_SECRET", "dev_export_secret")
	v.SetDefault("EXPORT_LINK_TTL", "24h")
	v.SetDefault("EXPORT_RETENTION", "168h")

	v.SetDefault("ENABLE_REMINDERS", true)
	v.SetDefault("REMINDER_INTERVAL", "15m")
	v.SetDefault("REMINDER_LEAD", "24h")
	v.SetDefault("REMINDER_WORKERS", 2)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
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
