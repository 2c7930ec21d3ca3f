package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophcheck/internal/flagx"
	"github.com/dmitrijs2005/gophcheck/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals
// may be strings like "3s" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	SecretKey          string         `json:"secret_key"`
	UserID             string         `json:"user_id"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with the JSON file named by -c/-config. Keys the
// file omits keep their current values. Read or unmarshal errors panic.
func parseJson(cfg *Config, args []string) {
	jsonConfigFile := flagx.ConfigPath(args)
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := JsonConfig{
		ServerEndpointAddr: cfg.ServerEndpointAddr,
		SecretKey:          cfg.SecretKey,
		UserID:             cfg.UserID,
		RequestTimeout:     timex.Duration{Duration: cfg.RequestTimeout},
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.SecretKey = jc.SecretKey
	cfg.UserID = jc.UserID
	cfg.RequestTimeout = jc.RequestTimeout.Duration
}
