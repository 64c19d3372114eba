package config

import (
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const EnvPrefix = "DASHBOARD"

type Config struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Log    LogConfig    `toml:"log"`
	Cache  CacheConfig  `toml:"cache"`
}

type ServerConfig struct {
	Addr            string  `toml:"addr"`
	RateLimit       float64 `toml:"rate_limit" split_words:"true"`
	ShutdownSeconds int     `toml:"shutdown_seconds" split_words:"true"`
}

type DataConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type CacheConfig struct {
	Size int `toml:"size"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", RateLimit: 20, ShutdownSeconds: 10},
		Data:   DataConfig{Path: "main_data.csv"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Cache:  CacheConfig{Size: 128},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// DASHBOARD_<SECTION>_<KEY> environment overrides. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := toml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, errors.Wrapf(err, "decode config %s", path)
			}
		case os.IsNotExist(err):
			log.WithField("path", path).Debug("Config file not found, using defaults")
		default:
			return nil, errors.Wrapf(err, "open config %s", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "read environment")
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Data.Path == "" {
		return errors.New("data.path must be set")
	}
	if c.Server.ShutdownSeconds < 0 {
		return errors.Errorf("server.shutdown_seconds must not be negative, got %d", c.Server.ShutdownSeconds)
	}
	if c.Cache.Size <= 0 {
		return errors.Errorf("cache.size must be positive, got %d", c.Cache.Size)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownSeconds) * time.Second
}

// ConfigureLogging applies the log section to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if strings.ToLower(c.Log.Format) == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
