package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the gophcheck CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the checker gRPC endpoint.
//   - SecretKey: secret shared with the server for minting access tokens.
//   - UserID: the end user this front-end acts for.
//   - RequestTimeout: deadline for every call except Verify.
type Config struct {
	ServerEndpointAddr string        `env:"GOPHCHECK_CLI_SERVER_ADDR"`
	SecretKey          string        `env:"GOPHCHECK_CLI_SECRET_KEY"`
	UserID             string        `env:"GOPHCHECK_CLI_USER_ID"`
	RequestTimeout     time.Duration `env:"GOPHCHECK_CLI_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults. UserID defaults to the
// login name of the current OS user.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SecretKey = "secretKey"
	c.UserID = os.Getenv("USER")
	if c.UserID == "" {
		c.UserID = "local"
	}
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON, the environment and command-line flags. Later sources take
// precedence over earlier ones.
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
