package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophcheck/internal/flagx"
	"github.com/dmitrijs2005/gophcheck/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// both "15s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	LogLevel         string `json:"log_level"`
	LogFormat        string `json:"log_format"`

	DatabaseDriver string `json:"database_driver"`
	DatabaseDSN    string `json:"database_dsn"`
	SecretKey      string `json:"secret_key"`

	CredentialBackend string `json:"credential_backend"`
	CredentialSecret  string `json:"credential_secret"`
	S3AccessKey       string `json:"s3_access_key"`
	S3SecretKey       string `json:"s3_secret_key"`
	S3Bucket          string `json:"s3_bucket"`
	S3Region          string `json:"s3_region"`
	S3BaseEndpoint    string `json:"s3_base_endpoint"`

	QuotaLimit     int            `json:"quota_limit"`
	ChunkSize      int            `json:"chunk_size"`
	MaxAttempts    int            `json:"max_attempts"`
	AttemptTimeout timex.Duration `json:"attempt_timeout"`
	RetryDelay     timex.Duration `json:"retry_delay"`
	ChunkInterval  timex.Duration `json:"chunk_interval"`

	PhoneTimeout       timex.Duration `json:"phone_timeout"`
	CodeTimeout        timex.Duration `json:"code_timeout"`
	PasswordTimeout    timex.Duration `json:"password_timeout"`
	MaxCodeRetries     int            `json:"max_code_retries"`
	MaxPasswordRetries int            `json:"max_password_retries"`

	Platform            string `json:"platform"`
	PlatformGatewayAddr string `json:"platform_gateway_addr"`

	OTLPEndpoint string `json:"otlp_endpoint"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrGRPC:    c.EndpointAddrGRPC,
		LogLevel:            c.LogLevel,
		LogFormat:           c.LogFormat,
		DatabaseDriver:      c.DatabaseDriver,
		DatabaseDSN:         c.DatabaseDSN,
		SecretKey:           c.SecretKey,
		CredentialBackend:   c.CredentialBackend,
		CredentialSecret:    c.CredentialSecret,
		S3AccessKey:         c.S3AccessKey,
		S3SecretKey:         c.S3SecretKey,
		S3Bucket:            c.S3Bucket,
		S3Region:            c.S3Region,
		S3BaseEndpoint:      c.S3BaseEndpoint,
		QuotaLimit:          c.QuotaLimit,
		ChunkSize:           c.ChunkSize,
		MaxAttempts:         c.MaxAttempts,
		AttemptTimeout:      timex.Duration{Duration: c.AttemptTimeout},
		RetryDelay:          timex.Duration{Duration: c.RetryDelay},
		ChunkInterval:       timex.Duration{Duration: c.ChunkInterval},
		PhoneTimeout:        timex.Duration{Duration: c.PhoneTimeout},
		CodeTimeout:         timex.Duration{Duration: c.CodeTimeout},
		PasswordTimeout:     timex.Duration{Duration: c.PasswordTimeout},
		MaxCodeRetries:      c.MaxCodeRetries,
		MaxPasswordRetries:  c.MaxPasswordRetries,
		Platform:            c.Platform,
		PlatformGatewayAddr: c.PlatformGatewayAddr,
		OTLPEndpoint:        c.OTLPEndpoint,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
	c.DatabaseDriver = j.DatabaseDriver
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.CredentialBackend = j.CredentialBackend
	c.CredentialSecret = j.CredentialSecret
	c.S3AccessKey = j.S3AccessKey
	c.S3SecretKey = j.S3SecretKey
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.QuotaLimit = j.QuotaLimit
	c.ChunkSize = j.ChunkSize
	c.MaxAttempts = j.MaxAttempts
	c.AttemptTimeout = j.AttemptTimeout.Duration
	c.RetryDelay = j.RetryDelay.Duration
	c.ChunkInterval = j.ChunkInterval.Duration
	c.PhoneTimeout = j.PhoneTimeout.Duration
	c.CodeTimeout = j.CodeTimeout.Duration
	c.PasswordTimeout = j.PasswordTimeout.Duration
	c.MaxCodeRetries = j.MaxCodeRetries
	c.MaxPasswordRetries = j.MaxPasswordRetries
	c.Platform = j.Platform
	c.PlatformGatewayAddr = j.PlatformGatewayAddr
	c.OTLPEndpoint = j.OTLPEndpoint
}

// parseJson overlays the file named by -c/-config onto config. Keys absent
// from the file keep their current values. An unreadable file or invalid
// JSON panics.
func parseJson(config *Config, args []string) {

	jsonConfigFile := flagx.ConfigPath(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}
