package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// APIURLEnv overrides the REST base URL when set.
const APIURLEnv = "WADASH_API_URL"

const (
	DefaultAPIURL = "http://localhost:3001/api"
	DefaultWSURL  = "http://localhost:3001"
)

// Duration is a time.Duration that reads and writes as "5s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Timeouts bounds network operations.
type Timeouts struct {
	Connect Duration `toml:"connect"`
	Request Duration `toml:"request"`
	Join    Duration `toml:"join"`
	HTTP    Duration `toml:"http"`
}

// Poll holds refresh intervals for the dashboard views.
type Poll struct {
	QR        Duration `toml:"qr"`
	Dashboard Duration `toml:"dashboard"`
	Queue     Duration `toml:"queue"`
	Stats     Duration `toml:"stats"`
}

// Mirror sizes the local realtime mirror.
type Mirror struct {
	MessageLogCap int `toml:"message_log_cap"`
}

// Config represents the global ~/.wadash/config.toml.
type Config struct {
	DefaultProfile string   `toml:"default_profile"`
	APIURL         string   `toml:"api_url"`
	WSURL          string   `toml:"ws_url"`
	Timeouts       Timeouts `toml:"timeouts"`
	Poll           Poll     `toml:"poll"`
	Mirror         Mirror   `toml:"mirror"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL: DefaultAPIURL,
		WSURL:  DefaultWSURL,
		Timeouts: Timeouts{
			Connect: Duration{20 * time.Second},
			Request: Duration{15 * time.Second},
			Join:    Duration{5 * time.Second},
			HTTP:    Duration{30 * time.Second},
		},
		Poll: Poll{
			QR:        Duration{2 * time.Second},
			Dashboard: Duration{5 * time.Second},
			Queue:     Duration{10 * time.Second},
			Stats:     Duration{30 * time.Second},
		},
		Mirror: Mirror{MessageLogCap: 1000},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve layers the file at path (if any) and the environment over the defaults.
// A missing file is not an error; a malformed one is.
func Resolve(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if v := os.Getenv(APIURLEnv); v != "" {
		cfg.APIURL = v
	}
	cfg.fillZero()
	return cfg, nil
}

// fillZero restores defaults for values a partial file left unset.
func (c *Config) fillZero() {
	d := Default()
	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}
	if c.WSURL == "" {
		c.WSURL = d.WSURL
	}
	setDur := func(v *Duration, def Duration) {
		if v.Duration <= 0 {
			*v = def
		}
	}
	setDur(&c.Timeouts.Connect, d.Timeouts.Connect)
	setDur(&c.Timeouts.Request, d.Timeouts.Request)
	setDur(&c.Timeouts.Join, d.Timeouts.Join)
	setDur(&c.Timeouts.HTTP, d.Timeouts.HTTP)
	setDur(&c.Poll.QR, d.Poll.QR)
	setDur(&c.Poll.Dashboard, d.Poll.Dashboard)
	setDur(&c.Poll.Queue, d.Poll.Queue)
	setDur(&c.Poll.Stats, d.Poll.Stats)
	if c.Mirror.MessageLogCap <= 0 {
		c.Mirror.MessageLogCap = d.Mirror.MessageLogCap
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
