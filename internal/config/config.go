package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectTimeoutSec  int
}

// Enabled reports whether a database host was configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether record snapshots should be archived to object storage.
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// UploadConfig bounds what the upload receiver accepts.
type UploadConfig struct {
	MaxBytes int64
}

// VerificationConfig holds classifier and scoring thresholds.
type VerificationConfig struct {
	ClassifierWeight  float64
	FieldWeight       float64
	VerifiedThreshold float64
	ReviewThreshold   float64
	MinConfidence     float64
	HintConfidence    float64
	OverrideMargin    float64
	Timeout           time.Duration
}

// Validate checks that thresholds are consistent.
func (c VerificationConfig) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"classifier weight":  c.ClassifierWeight,
		"field weight":       c.FieldWeight,
		"verified threshold": c.VerifiedThreshold,
		"review threshold":   c.ReviewThreshold,
		"min confidence":     c.MinConfidence,
		"hint confidence":    c.HintConfidence,
		"override margin":    c.OverrideMargin,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	if c.ClassifierWeight+c.FieldWeight <= 0 {
		errs = append(errs, errors.New("classifier and field weights must not both be zero"))
	}
	if c.ReviewThreshold > c.VerifiedThreshold {
		errs = append(errs, errors.New("review threshold must not exceed verified threshold"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	return errors.Join(errs...)
}

// WorkerConfig sizes the extraction worker pool.
type WorkerConfig struct {
	Concurrency int
	QueueSize   int
}

// OCRConfig holds settings for the vision recognizer. AssistExtraction also
// sends recognized text to the same model for structured field reading.
type OCRConfig struct {
	APIKey           string
	Model            string
	Endpoint         string
	TimeoutSecs      int
	AssistExtraction bool
}

// NotificationConfig holds outbound email settings.
type NotificationConfig struct {
	Provider     string
	Region       string
	FromAddress  string
	FromName     string
	QueueSize    int
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost      string
	Port         string
	Timezone     string
	Database     DatabaseConfig
	MinIO        MinIOConfig
	Upload       UploadConfig
	Verification VerificationConfig
	Worker       WorkerConfig
	OCR          OCRConfig
	Notification NotificationConfig
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:4000"),
		Port:     getEnv("PORT", "4000"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Upload: UploadConfig{
			MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 10*1024*1024)),
		},
		Verification: VerificationConfig{
			ClassifierWeight:  getEnvFloat("VERIFY_CLASSIFIER_WEIGHT", 0.4),
			FieldWeight:       getEnvFloat("VERIFY_FIELD_WEIGHT", 0.6),
			VerifiedThreshold: getEnvFloat("VERIFY_VERIFIED_THRESHOLD", 0.85),
			ReviewThreshold:   getEnvFloat("VERIFY_REVIEW_THRESHOLD", 0.5),
			MinConfidence:     getEnvFloat("VERIFY_MIN_CONFIDENCE", 0.3),
			HintConfidence:    getEnvFloat("VERIFY_HINT_CONFIDENCE", 0.7),
			OverrideMargin:    getEnvFloat("VERIFY_OVERRIDE_MARGIN", 0.2),
			Timeout:           getEnvDuration("VERIFY_TIMEOUT", 30*time.Second),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 4),
			QueueSize:   getEnvInt("WORKER_QUEUE_SIZE", 64),
		},
		OCR: OCRConfig{
			APIKey:           getEnv("OPENAI_API_KEY", ""),
			Model:            getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Endpoint:         getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
			TimeoutSecs:      getEnvInt("OPENAI_TIMEOUT_SECS", 25),
			AssistExtraction: getEnvBool("OPENAI_ASSIST_EXTRACTION", false),
		},
		Notification: NotificationConfig{
			Provider:     getEnv("NOTIFY_PROVIDER", "noop"),
			Region:       getEnv("NOTIFY_SES_REGION", "us-east-1"),
			FromAddress:  getEnv("NOTIFY_FROM_ADDRESS", ""),
			FromName:     getEnv("NOTIFY_FROM_NAME", "Document Verifier"),
			QueueSize:    getEnvInt("NOTIFY_QUEUE_SIZE", 128),
			Workers:      getEnvInt("NOTIFY_WORKERS", 2),
			MaxAttempts:  getEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
			RetryBackoff: getEnvDuration("NOTIFY_RETRY_BACKOFF", 2*time.Second),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("30s") or plain seconds ("30").
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
