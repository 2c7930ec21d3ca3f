package config

import (
	"flag"

	"github.com/dmitrijs2005/gophcheck/internal/flagx"
)

var serverFlags = []string{"-a", "-m", "-d", "-s", "-x", "-k", "-b", "-g", "-e", "-u", "-p", "-q", "-P", "-G", "-o", "-l"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-m string   database driver: postgres, sqlite or memory
//	-d string   database DSN (pgx DSN or SQLite file path)
//	-s string   JWT HMAC secret key
//	-x string   credential backend: sql, s3 or memory
//	-k string   credential sealing secret
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string   S3 access key
//	-p string   S3 secret key
//	-q int      checks allowed per credential
//	-P string   platform binding: gateway or simulated
//	-G string   platform gateway address
//	-o string   OTLP/HTTP trace endpoint, empty disables tracing
//	-l string   log level
func parseFlags(config *Config, osArgs []string) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(osArgs, serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "m", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.CredentialBackend, "x", config.CredentialBackend, "credential backend")
	fs.StringVar(&config.CredentialSecret, "k", config.CredentialSecret, "credential sealing secret")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.IntVar(&config.QuotaLimit, "q", config.QuotaLimit, "checks allowed per credential")
	fs.StringVar(&config.Platform, "P", config.Platform, "platform binding")
	fs.StringVar(&config.PlatformGatewayAddr, "G", config.PlatformGatewayAddr, "platform gateway address")
	fs.StringVar(&config.OTLPEndpoint, "o", config.OTLPEndpoint, "OTLP trace endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
