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

// Preference storage backends.
const (
	PreferenceBackendSQL   = "sql"
	PreferenceBackendRedis = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Report   ReportConfig
	Events   EventsConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrationsPath string
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReportConfig tunes the completion report queries.
type ReportConfig struct {
	SiteCourseID      int64
	TrackedCapability string
	ProgressBatchSize int
	TimeRounding      time.Duration
	DefaultPageSize   int
	MaxPageSize       int
	PreferenceBackend string
	BaseURL           string
}

// EventsConfig configures report-viewed event publishing. An empty AMQPURL
// logs events instead.
type EventsConfig struct {
	AMQPURL string
	Queue   string
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

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrationsPath: v.GetString("DB_MIGRATIONS_PATH"),
		AutoMigrate:    v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Report = ReportConfig{
		SiteCourseID:      v.GetInt64("REPORT_SITE_COURSE_ID"),
		TrackedCapability: v.GetString("REPORT_TRACKED_CAPABILITY"),
		ProgressBatchSize: positiveOr(v.GetInt("REPORT_PROGRESS_BATCH_SIZE"), 1000),
		TimeRounding:      parseDuration(v.GetString("REPORT_TIME_ROUNDING"), 100*time.Second),
		DefaultPageSize:   positiveOr(v.GetInt("REPORT_DEFAULT_PAGE_SIZE"), 50),
		MaxPageSize:       positiveOr(v.GetInt("REPORT_MAX_PAGE_SIZE"), 5000),
		PreferenceBackend: strings.ToLower(v.GetString("REPORT_PREFERENCE_BACKEND")),
		BaseURL:           strings.TrimRight(v.GetString("REPORT_BASE_URL"), "/"),
	}
	if cfg.Report.PreferenceBackend != PreferenceBackendRedis {
		cfg.Report.PreferenceBackend = PreferenceBackendSQL
	}

	cfg.Events = EventsConfig{
		AMQPURL: v.GetString("EVENTS_AMQP_URL"),
		Queue:   v.GetString("EVENTS_QUEUE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lms")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATIONS_PATH", "./migrations")
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REPORT_SITE_COURSE_ID", 1)
	v.SetDefault("REPORT_TRACKED_CAPABILITY", "moodle/course:isincompletionreports")
	v.SetDefault("REPORT_PROGRESS_BATCH_SIZE", 1000)
	v.SetDefault("REPORT_TIME_ROUNDING", "100s")
	v.SetDefault("REPORT_DEFAULT_PAGE_SIZE", 50)
	v.SetDefault("REPORT_MAX_PAGE_SIZE", 5000)
	v.SetDefault("REPORT_PREFERENCE_BACKEND", PreferenceBackendSQL)
	v.SetDefault("REPORT_BASE_URL", "")

	v.SetDefault("EVENTS_AMQP_URL", "")
	v.SetDefault("EVENTS_QUEUE", "report.events")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
