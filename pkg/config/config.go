package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	ItemStore   string `mapstructure:"ITEM_STORE" validate:"required,oneof=dynamodb postgres memory"`
	ObjectStore string `mapstructure:"OBJECT_STORE" validate:"required,oneof=s3 gcs memory"`

	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required_if=ItemStore postgres"`

	AWSRegion        string `mapstructure:"AWS_REGION"`
	DynamoDBEndpoint string `mapstructure:"DYNAMODB_ENDPOINT" validate:"omitempty,url"`
	S3Endpoint       string `mapstructure:"S3_ENDPOINT" validate:"omitempty,url"`
	GCSEndpoint      string `mapstructure:"GCS_ENDPOINT" validate:"omitempty,url"`

	FilesBucket     string `mapstructure:"FILES_BUCKET" validate:"required"`
	StagingPrefix   string `mapstructure:"STAGING_PREFIX" validate:"required"`
	PermanentPrefix string `mapstructure:"PERMANENT_PREFIX" validate:"required"`

	IntakeTable     string `mapstructure:"INTAKE_TABLE" validate:"required"`
	ProjectsTable   string `mapstructure:"PROJECTS_TABLE" validate:"required"`
	MembersTable    string `mapstructure:"MEMBERS_TABLE" validate:"required"`
	ConditionsTable string `mapstructure:"CONDITIONS_TABLE" validate:"required"`
	DocumentsTable  string `mapstructure:"DOCUMENTS_TABLE" validate:"required"`
	SummaryTable    string `mapstructure:"SUMMARY_TABLE" validate:"required"`

	BatchMaxRetries     int           `mapstructure:"BATCH_MAX_RETRIES" validate:"gte=0,lte=50"`
	BatchBaseDelay      time.Duration `mapstructure:"BATCH_BASE_DELAY"`
	BatchMaxDelay       time.Duration `mapstructure:"BATCH_MAX_DELAY"`
	RelocateConcurrency int           `mapstructure:"RELOCATE_CONCURRENCY" validate:"gte=1,lte=64"`

	ClaimSessions bool          `mapstructure:"CLAIM_SESSIONS"`
	ClaimTTL      time.Duration `mapstructure:"CLAIM_TTL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var durationKeys = []string{
	"SHUTDOWN_TIMEOUT",
	"BATCH_BASE_DELAY",
	"BATCH_MAX_DELAY",
	"CLAIM_TTL",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ITEM_STORE", "dynamodb")
	v.SetDefault("OBJECT_STORE", "s3")
	v.SetDefault("AWS_REGION", "ap-southeast-2")
	v.SetDefault("FILES_BUCKET", "app-planease-files")
	v.SetDefault("STAGING_PREFIX", "intake/")
	v.SetDefault("PERMANENT_PREFIX", "projects/")
	v.SetDefault("INTAKE_TABLE", "project_intake_sessions")
	v.SetDefault("PROJECTS_TABLE", "projects")
	v.SetDefault("MEMBERS_TABLE", "project_members")
	v.SetDefault("CONDITIONS_TABLE", "project_conditions")
	v.SetDefault("DOCUMENTS_TABLE", "project_documents")
	v.SetDefault("SUMMARY_TABLE", "project_summaries")
	v.SetDefault("BATCH_MAX_RETRIES", 5)
	v.SetDefault("BATCH_BASE_DELAY", "100ms")
	v.SetDefault("BATCH_MAX_DELAY", "2s")
	v.SetDefault("RELOCATE_CONCURRENCY", 4)
	v.SetDefault("CLAIM_SESSIONS", true)
	v.SetDefault("CLAIM_TTL", "5m")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)

	_ = v.ReadInConfig()

	keys := []string{
		"APP_ENV", "HTTP_ADDR", "SHUTDOWN_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT",
		"ITEM_STORE", "OBJECT_STORE", "DATABASE_URL",
		"AWS_REGION", "DYNAMODB_ENDPOINT", "S3_ENDPOINT", "GCS_ENDPOINT",
		"FILES_BUCKET", "STAGING_PREFIX", "PERMANENT_PREFIX",
		"INTAKE_TABLE", "PROJECTS_TABLE", "MEMBERS_TABLE",
		"CONDITIONS_TABLE", "DOCUMENTS_TABLE", "SUMMARY_TABLE",
		"BATCH_MAX_RETRIES", "BATCH_BASE_DELAY", "BATCH_MAX_DELAY",
		"RELOCATE_CONCURRENCY", "CLAIM_SESSIONS", "CLAIM_TTL",
		"REDIS_ADDR", "REDIS_PASSWORD", "ASYNQ_CONCURRENCY",
		"JWT_SECRET", "GOMAXPROCS",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Durations may arrive as plain strings from the environment.
	for _, key := range durationKeys {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		switch key {
		case "SHUTDOWN_TIMEOUT":
			c.ShutdownTimeout = d
		case "BATCH_BASE_DELAY":
			c.BatchBaseDelay = d
		case "BATCH_MAX_DELAY":
			c.BatchMaxDelay = d
		case "CLAIM_TTL":
			c.ClaimTTL = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
