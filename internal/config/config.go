package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSourceURL   = "https://webapi.gogoro.com/api/vm/list"
	DefaultLocale      = "zh-TW"
	DefaultSnapshotKey = "data/gogoro-battery.csv"
)

type Config struct {
	Environment string
	LogLevel    zerolog.Level
	HTTPTimeout time.Duration
	MaxRetries  int

	// Ingestion
	SourceURL       string
	Locale          string
	SnapshotBucket  string
	SnapshotKey     string
	SnapshotMaxAge  int // seconds, published as Cache-Control max-age
	ContentLanguage string

	// Query
	NearbyRadiusMeters float64
	NearbyMaxResults   int
	ActiveState        string
	AskLocationIntent  string
	ResultIntent       string

	AnalyticsTrackingID string
	SessionTable        string

	// Local endpoints, empty in AWS
	S3Endpoint       string
	DynamoDBEndpoint string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

func WithSource(url, locale string) Option {
	return func(c *Config) {
		c.SourceURL = url
		c.Locale = locale
	}
}

// WithSnapshot sets where the station table is published and read from
func WithSnapshot(bucket, key string, maxAge int) Option {
	return func(c *Config) {
		c.SnapshotBucket = bucket
		c.SnapshotKey = key
		c.SnapshotMaxAge = maxAge
	}
}

func WithNearby(radiusMeters float64, maxResults int, activeState string) Option {
	return func(c *Config) {
		c.NearbyRadiusMeters = radiusMeters
		c.NearbyMaxResults = maxResults
		c.ActiveState = activeState
	}
}

func WithAnalytics(trackingID string) Option {
	return func(c *Config) {
		c.AnalyticsTrackingID = trackingID
	}
}

func WithSessionTable(table string) Option {
	return func(c *Config) {
		c.SessionTable = table
	}
}

func WithEndpoints(s3Endpoint, dynamoEndpoint string) Option {
	return func(c *Config) {
		c.S3Endpoint = s3Endpoint
		c.DynamoDBEndpoint = dynamoEndpoint
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:        "production",
		LogLevel:           zerolog.InfoLevel,
		HTTPTimeout:        10 * time.Second,
		MaxRetries:         3,
		SourceURL:          DefaultSourceURL,
		Locale:             DefaultLocale,
		SnapshotKey:        DefaultSnapshotKey,
		SnapshotMaxAge:     30,
		ContentLanguage:    "zh",
		NearbyRadiusMeters: 5000,
		NearbyMaxResults:   3,
		ActiveState:        "1",
		AskLocationIntent:  "附近的換電站詢問地點",
		ResultIntent:       "附近的換電站結果",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func LoadFromEnv() *Config {
	_ = godotenv.Load()

	cfg := New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 10*time.Second)),
		WithMaxRetries(getEnvInt("MAX_RETRIES", 3)),
		WithSource(
			getEnvOrDefault("SOURCE_URL", DefaultSourceURL),
			getEnvOrDefault("LOCALE", DefaultLocale),
		),
		WithSnapshot(
			os.Getenv("SNAPSHOT_BUCKET"),
			getEnvOrDefault("SNAPSHOT_KEY", DefaultSnapshotKey),
			getEnvInt("SNAPSHOT_MAX_AGE_SECONDS", 30),
		),
		WithNearby(
			getFloatEnvOrDefault("NEARBY_RADIUS_METERS", 5000),
			getEnvInt("NEARBY_MAX_RESULTS", 3),
			getEnvOrDefault("ACTIVE_STATE", "1"),
		),
		WithAnalytics(os.Getenv("ANALYTICS_TRACKING_ID")),
		WithSessionTable(os.Getenv("SESSION_TABLE")),
		WithEndpoints(os.Getenv("S3_ENDPOINT"), os.Getenv("DYNAMODB_ENDPOINT")),
	)

	if v := os.Getenv("ASK_LOCATION_INTENT"); v != "" {
		cfg.AskLocationIntent = v
	}
	if v := os.Getenv("RESULT_INTENT"); v != "" {
		cfg.ResultIntent = v
	}
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Msg("Invalid float value in environment variable, using default")
	}
	return defaultValue
}
