package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Lookup struct {
		// TTL for cached public lookups, e.g. "5m".
		TTL string `yaml:"ttl"`
	} `yaml:"lookup"`
	Reference struct {
		TTL string `yaml:"ttl"`
	} `yaml:"reference"`
	Audit struct {
		QueueSize int `yaml:"queueSize"`
	} `yaml:"audit"`
	Certificates struct {
		VerifyBaseURL string `yaml:"verifyBaseUrl"`
	} `yaml:"certificates"`
}

// Load reads YAML config from path. A missing file is not an error: the
// service runs fully in-memory with defaults, which is what the demo and the
// test suites use.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
