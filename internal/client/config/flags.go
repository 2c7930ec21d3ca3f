package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gophcheck/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the checker server
//	-s string   shared secret key
//	-u string   user id
//	-t int      request timeout, seconds
func parseFlags(cfg *Config, osArgs []string) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(osArgs, []string{"-a", "-s", "-u", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key shared with the server")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "user id")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
