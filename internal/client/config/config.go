package config

import "time"

// Config holds runtime settings for the GophChat terminal client.
//
// Fields:
//   - ServerURL: base URL of the chat server's HTTP API.
//   - RequestTimeout: bound for non-streaming calls; streaming turns are
//     bounded by the server's turn timeout instead.
//   - DataDir: directory holding the local session database.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	DataDir        string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.RequestTimeout = 30 * time.Second
	c.DataDir = ".gophchat"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
