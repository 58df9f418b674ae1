package seeder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"afterseed/pkg/db"
	"afterseed/pkg/seed"
)

// Config holds runtime configuration for the afterseed CLI.
type Config struct {
	DBDriver     string   `env:"DB_DRIVER,default=postgres"`
	DBDSN        string   `env:"DB_DSN,required"`
	Path         string   `env:"AFTER_SEEDERS_PATH,default=database/after_seeders"`
	Tags         []string `env:"AFTER_SEEDERS_TAGS"`
	ConfigFile   string   `env:"AFTER_SEEDERS_CONFIG"`
	S3Bucket     string   `env:"AFTER_SEEDERS_S3_BUCKET"`
	S3Prefix     string   `env:"AFTER_SEEDERS_S3_PREFIX"`
	NATSURL      string   `env:"NATS_URL"`
	Subject      string   `env:"AFTER_SEEDERS_SUBJECT,default=afterseed.seeders.applied"`
	OTLPEndpoint string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	MetricsFile  string   `env:"AFTER_SEEDERS_METRICS_FILE"`
	LogLevel     string   `env:"LOG_LEVEL,default=info"`
}

// fileConfig is the optional YAML overlay named by AFTER_SEEDERS_CONFIG.
type fileConfig struct {
	Path string   `yaml:"path"`
	Tags []string `yaml:"tags"`
}

// LoadConfig returns a Config populated from environment variables and the
// optional YAML overlay.
func LoadConfig(ctx context.Context) (Config, error) {
	return loadConfig(ctx, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}

	if cfg.ConfigFile != "" {
		if err := cfg.overlay(cfg.ConfigFile); err != nil {
			return Config{}, err
		}
	}

	cfg.Tags = cleanTags(cfg.Tags)
	if _, err := cfg.Driver(); err != nil {
		return Config{}, err
	}
	if cfg.S3Bucket == "" && cfg.Path == "" {
		return Config{}, fmt.Errorf("AFTER_SEEDERS_PATH or AFTER_SEEDERS_S3_BUCKET is required")
	}
	if cfg.Subject == "" {
		cfg.Subject = seed.DefaultSubject
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.Path != "" {
		c.Path = fc.Path
	}
	if fc.Tags != nil {
		c.Tags = fc.Tags
	}
	return nil
}

// Driver parses DBDriver.
func (c Config) Driver() (db.Driver, error) {
	return db.ParseDriver(c.DBDriver)
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
