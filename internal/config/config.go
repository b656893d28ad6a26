package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName      string
	AppEnv       string
	Port         string
	PublicDomain string // Base URL for generated playback links

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver       string
	DBConnection   string
	DBMaxOpenConns int

	// Security
	JWTSecret  string
	JWTExpiry  time.Duration
	AdminEmail string

	// Links
	LinkTTL         time.Duration
	LinkMaxAttempts int

	// Payment (gateway credentials live in the payment_settings table)
	PaymentProvider string // "razorpay" or "stripe"
	PaymentCurrency string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Storage
	StorageDriver    string // "local" or "s3"
	StorageLocalPath string
	S3Region         string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3Endpoint       string
	S3PresignExpiry  time.Duration
	UploadMaxBytes   int64

	// Realtime (optional, enables cross-instance fan-out)
	RedisURL           string
	RedisChannelPrefix string

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:      envString("APP_NAME", "AdPanel"),
		AppEnv:       envRequired("APP_ENV"), // Required: 'development' or 'production'
		Port:         envString("PORT", "8090"),
		PublicDomain: strings.TrimSuffix(envRequired("PUBLIC_DOMAIN"), "/"),

		// Database
		DBDriver:       envString("DB_DRIVER", "sqlite"),
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 10),

		// Security
		JWTSecret:  envRequired("JWT_SECRET"),
		JWTExpiry:  envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days
		AdminEmail: strings.ToLower(strings.TrimSpace(envString("ADMIN_EMAIL", ""))),

		// Links
		LinkTTL:         envDuration("LINK_TTL", 720*time.Hour), // 30 days
		LinkMaxAttempts: envInt("LINK_MAX_ATTEMPTS", 64),

		// Payment
		PaymentProvider: envString("PAYMENT_PROVIDER", "razorpay"),
		PaymentCurrency: strings.ToUpper(envString("PAYMENT_CURRENCY", "INR")),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Storage
		StorageDriver:    envString("STORAGE_DRIVER", "local"),
		StorageLocalPath: envString("STORAGE_LOCAL_PATH", "./data/uploads"),
		S3Region:         envString("S3_REGION", ""),
		S3Bucket:         envString("S3_BUCKET", ""),
		S3AccessKey:      envString("S3_ACCESS_KEY", ""),
		S3SecretKey:      envString("S3_SECRET_KEY", ""),
		S3Endpoint:       envString("S3_ENDPOINT", ""),
		S3PresignExpiry:  envDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),
		UploadMaxBytes:   int64(envInt("UPLOAD_MAX_BYTES", 100<<20)),

		// Realtime
		RedisURL:           envString("REDIS_URL", ""),
		RedisChannelPrefix: envString("REDIS_CHANNEL_PREFIX", "adpanel:media"),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	cfg.DBConnection = envString("DB_CONNECTION", "")
	if cfg.DBConnection == "" {
		cfg.DBConnection = BuildDSN(
			cfg.DBDriver,
			envString("DB_HOST", "localhost"),
			envString("DB_PORT", ""),
			envString("DB_USER", ""),
			envString("DB_PASSWORD", ""),
			envString("DB_NAME", "adpanel"),
		)
	}

	if cfg.StorageDriver == "s3" {
		cfg.S3Region = envRequired("S3_REGION")
		cfg.S3Bucket = envRequired("S3_BUCKET")
		cfg.S3AccessKey = envRequired("S3_ACCESS_KEY")
		cfg.S3SecretKey = envRequired("S3_SECRET_KEY")
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// BuildDSN composes a connection string from discrete database settings.
// sqlite ignores everything but the name, which becomes the file path.
func BuildDSN(driver, host, port, user, password, name string) string {
	switch driver {
	case "pgx":
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(user, password),
			Host:     host + ":" + port,
			Path:     "/" + name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	case "mysql":
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&clientFoundRows=true", user, password, host, port, name)
	default:
		return fmt.Sprintf("./data/%s.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite", name)
	}
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows some services (like email) to use fallback modes for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
	if len(cfg.JWTSecret) < 32 {
		slog.Error("production deployment requires a JWT_SECRET of at least 32 bytes")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PlaybackURL returns the public URL a display opens for a link code.
func (c *Config) PlaybackURL(code string) string {
	return c.PublicDomain + "/play/" + code
}
