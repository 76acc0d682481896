package config

import (
	"errors"
	"fmt"
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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Tuition  TuitionConfig
	Receipts ReceiptsConfig
	LoadSlip LoadSlipConfig
	Mail     MailConfig
	Ledger   LedgerConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// TuitionConfig holds the per-grade tuition table. Rates are whole currency units.
type TuitionConfig struct {
	Default string
	Rates   map[string]string
}

// ReceiptsConfig controls uploaded payment receipt storage & validation.
type ReceiptsConfig struct {
	StorageDir       string
	PublicBaseURL    string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	MaxImageWidth    int
}

// LoadSlipConfig controls the document sent after admission.
type LoadSlipConfig struct {
	Enabled    bool
	SchoolName string
}

// MailConfig selects the notification transport.
type MailConfig struct {
	Driver         string
	SendGridAPIKey string
	FromName       string
	FromAddress    string
	RetryWorkers   int
	RetryAttempts  int
	RetryDelay     time.Duration
}

// LedgerConfig governs the ledger read cache.
type LedgerConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
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

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects development secrets in production.
func (c *Config) Validate() error {
	if c.Env != EnvProduction {
		return nil
	}
	var problems []string
	if c.JWT.Secret == "" || c.JWT.Secret == "dev_secret" {
		problems = append(problems, "JWT_SECRET")
	}
	if c.Receipts.SignedURLSecret == "" || c.Receipts.SignedURLSecret == "dev_receipts_secret" {
		problems = append(problems, "RECEIPTS_SIGNED_URL_SECRET")
	}
	if len(problems) > 0 {
		return fmt.Errorf("production requires real values for %s", strings.Join(problems, ", "))
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Tuition = TuitionConfig{
		Default: v.GetString("TUITION_DEFAULT"),
		Rates:   parseRates(v.GetString("TUITION_RATES")),
	}

	maxReceiptSize := v.GetInt64("RECEIPTS_MAX_FILE_SIZE")
	if maxReceiptSize <= 0 {
		maxReceiptSize = 5 * 1024 * 1024
	}
	cfg.Receipts = ReceiptsConfig{
		StorageDir:       v.GetString("RECEIPTS_STORAGE_DIR"),
		PublicBaseURL:    strings.TrimRight(v.GetString("RECEIPTS_PUBLIC_BASE_URL"), "/"),
		SignedURLSecret:  v.GetString("RECEIPTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("RECEIPTS_SIGNED_URL_TTL"), 365*24*time.Hour),
		MaxFileSizeBytes: maxReceiptSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("RECEIPTS_ALLOWED_MIME_TYPES")),
		MaxImageWidth:    v.GetInt("RECEIPTS_MAX_IMAGE_WIDTH"),
	}

	cfg.LoadSlip = LoadSlipConfig{
		Enabled:    v.GetBool("LOADSLIP_ENABLED"),
		SchoolName: v.GetString("LOADSLIP_SCHOOL_NAME"),
	}

	cfg.Mail = MailConfig{
		Driver:         strings.ToLower(v.GetString("MAIL_DRIVER")),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
		RetryWorkers:   v.GetInt("MAIL_RETRY_WORKERS"),
		RetryAttempts:  v.GetInt("MAIL_RETRY_ATTEMPTS"),
		RetryDelay:     parseDuration(v.GetString("MAIL_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Ledger = LedgerConfig{
		CacheEnabled: v.GetBool("ENABLE_LEDGER_CACHE"),
		CacheTTL:     parseDuration(v.GetString("LEDGER_CACHE_TTL"), 5*time.Minute),
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
	v.SetDefault("DB_NAME", "sics_enrollment")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("TUITION_DEFAULT", "25000")
	v.SetDefault("TUITION_RATES", "")

	v.SetDefault("RECEIPTS_STORAGE_DIR", "./receipts")
	v.SetDefault("RECEIPTS_PUBLIC_BASE_URL", "http://localhost:8080/api/v1/files")
	v.SetDefault("RECEIPTS_SIGNED_URL_SECRET", "dev_receipts_secret")
	v.SetDefault("RECEIPTS_SIGNED_URL_TTL", "8760h")
	v.SetDefault("RECEIPTS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("RECEIPTS_ALLOWED_MIME_TYPES", "image/jpeg,image/png,application/pdf")
	v.SetDefault("RECEIPTS_MAX_IMAGE_WIDTH", 1600)

	v.SetDefault("LOADSLIP_ENABLED", true)
	v.SetDefault("LOADSLIP_SCHOOL_NAME", "SICS")

	v.SetDefault("MAIL_DRIVER", "log")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "SICS Registrar")
	v.SetDefault("MAIL_FROM_ADDRESS", "registrar@sics.local")
	v.SetDefault("MAIL_RETRY_WORKERS", 1)
	v.SetDefault("MAIL_RETRY_ATTEMPTS", 3)
	v.SetDefault("MAIL_RETRY_DELAY", "30s")

	v.SetDefault("ENABLE_LEDGER_CACHE", false)
	v.SetDefault("LEDGER_CACHE_TTL", "5m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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

// parseRates reads "Grade 1=25000;Grade 2=27000". Malformed pairs are skipped.
func parseRates(raw string) map[string]string {
	rates := make(map[string]string)
	if raw == "" {
		return rates
	}
	for _, pair := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		rates[key] = value
	}
	return rates
}
