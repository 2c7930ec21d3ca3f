// Package config handles configuration for the server component: defaults,
// a JSON file, GOPHCHECK_* environment variables and command-line flags,
// applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	BackendSQL    = "sql"
	BackendS3     = "s3"
	BackendMemory = "memory"

	PlatformGateway   = "gateway"
	PlatformSimulated = "simulated"
)

// Config holds runtime settings for the gophcheck server.
//
// SecretKey signs the front-end access tokens. CredentialSecret, when set,
// seals stored platform credentials at rest. OTLPEndpoint enables tracing.
type Config struct {
	EndpointAddrGRPC string `env:"GOPHCHECK_GRPC_ADDR"`
	LogLevel         string `env:"GOPHCHECK_LOG_LEVEL"`
	LogFormat        string `env:"GOPHCHECK_LOG_FORMAT"`

	DatabaseDriver string `env:"GOPHCHECK_DATABASE_DRIVER"`
	DatabaseDSN    string `env:"GOPHCHECK_DATABASE_DSN"`
	SecretKey      string `env:"GOPHCHECK_SECRET_KEY"`

	CredentialBackend string `env:"GOPHCHECK_CREDENTIAL_BACKEND"`
	CredentialSecret  string `env:"GOPHCHECK_CREDENTIAL_SECRET"`
	S3AccessKey       string `env:"GOPHCHECK_S3_ACCESS_KEY"`
	S3SecretKey       string `env:"GOPHCHECK_S3_SECRET_KEY"`
	S3Bucket          string `env:"GOPHCHECK_S3_BUCKET"`
	S3Region          string `env:"GOPHCHECK_S3_REGION"`
	S3BaseEndpoint    string `env:"GOPHCHECK_S3_BASE_ENDPOINT"`

	QuotaLimit     int           `env:"GOPHCHECK_QUOTA_LIMIT"`
	ChunkSize      int           `env:"GOPHCHECK_CHUNK_SIZE"`
	MaxAttempts    int           `env:"GOPHCHECK_MAX_ATTEMPTS"`
	AttemptTimeout time.Duration `env:"GOPHCHECK_ATTEMPT_TIMEOUT"`
	RetryDelay     time.Duration `env:"GOPHCHECK_RETRY_DELAY"`
	ChunkInterval  time.Duration `env:"GOPHCHECK_CHUNK_INTERVAL"`

	PhoneTimeout       time.Duration `env:"GOPHCHECK_PHONE_TIMEOUT"`
	CodeTimeout        time.Duration `env:"GOPHCHECK_CODE_TIMEOUT"`
	PasswordTimeout    time.Duration `env:"GOPHCHECK_PASSWORD_TIMEOUT"`
	MaxCodeRetries     int           `env:"GOPHCHECK_MAX_CODE_RETRIES"`
	MaxPasswordRetries int           `env:"GOPHCHECK_MAX_PASSWORD_RETRIES"`

	Platform            string `env:"GOPHCHECK_PLATFORM"`
	PlatformGatewayAddr string `env:"GOPHCHECK_PLATFORM_GATEWAY_ADDR"`

	OTLPEndpoint string `env:"GOPHCHECK_OTLP_ENDPOINT"`
}

// LoadDefaults populates Config with development defaults: a local SQLite
// file and the simulated platform.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.LogLevel = "info"
	c.LogFormat = "json"

	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "data/gophcheck.db"
	c.SecretKey = "secretKey"

	c.CredentialBackend = BackendSQL
	c.S3Bucket = "gophcheck"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"

	c.QuotaLimit = 120
	c.ChunkSize = 10
	c.MaxAttempts = 3
	c.AttemptTimeout = 15 * time.Second
	c.RetryDelay = time.Second
	c.ChunkInterval = time.Second

	c.PhoneTimeout = 120 * time.Second
	c.CodeTimeout = 60 * time.Second
	c.PasswordTimeout = 60 * time.Second
	c.MaxCodeRetries = 3
	c.MaxPasswordRetries = 3

	c.Platform = PlatformSimulated
	c.PlatformGatewayAddr = "127.0.0.1:50061"
}

// Validate reports settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.DatabaseDriver))
	}
	switch c.CredentialBackend {
	case BackendSQL, BackendS3, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown credential backend %q", c.CredentialBackend))
	}
	if c.CredentialBackend == BackendS3 && c.S3Bucket == "" {
		errs = append(errs, errors.New("s3 credential backend needs a bucket"))
	}
	switch c.Platform {
	case PlatformSimulated:
	case PlatformGateway:
		if c.PlatformGatewayAddr == "" {
			errs = append(errs, errors.New("gateway platform needs an address"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown platform %q", c.Platform))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is empty"))
	}

	for name, v := range map[string]int{
		"quota limit":          c.QuotaLimit,
		"chunk size":           c.ChunkSize,
		"max attempts":         c.MaxAttempts,
		"max code retries":     c.MaxCodeRetries,
		"max password retries": c.MaxPasswordRetries,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	for name, d := range map[string]time.Duration{
		"attempt timeout":  c.AttemptTimeout,
		"retry delay":      c.RetryDelay,
		"phone timeout":    c.PhoneTimeout,
		"code timeout":     c.CodeTimeout,
		"password timeout": c.PasswordTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.ChunkInterval < 0 {
		errs = append(errs, fmt.Errorf("chunk interval must not be negative, got %s", c.ChunkInterval))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line
// flags. Malformed input panics.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}
