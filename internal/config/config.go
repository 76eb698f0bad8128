// Package config loads server settings from defaults, an optional YAML file
// and CHOREWHEEL_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dukerupert/chorewheel/internal/archive"
	"github.com/dukerupert/chorewheel/internal/events"
	"github.com/dukerupert/chorewheel/internal/logging"
)

const envPrefix = "CHOREWHEEL_"

type Config struct {
	Port       string        `yaml:"port"`
	DBPath     string        `yaml:"db_path"`
	LogLevel   string        `yaml:"log_level"`
	LogFormat  string        `yaml:"log_format"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	NATS       NATSConfig    `yaml:"nats"`
	Archive    ArchiveConfig `yaml:"archive"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

func (a ArchiveConfig) S3() archive.S3Config {
	return archive.S3Config{
		Endpoint:  a.Endpoint,
		Bucket:    a.Bucket,
		Region:    a.Region,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
	}
}

func Default() *Config {
	return &Config{
		Port:       "8080",
		DBPath:     "chorewheel.db",
		LogLevel:   "info",
		LogFormat:  logging.FormatText,
		SessionTTL: 30 * 24 * time.Hour,
		NATS:       NATSConfig{SubjectPrefix: events.DefaultSubjectPrefix},
		Archive:    ArchiveConfig{Region: "auto"},
	}
}

// Load builds a Config. An empty path skips the file; a missing file named
// explicitly is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DB_PATH", &c.DBPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("NATS_URL", &c.NATS.URL)
	str("NATS_SUBJECT_PREFIX", &c.NATS.SubjectPrefix)
	str("ARCHIVE_BUCKET", &c.Archive.Bucket)
	str("ARCHIVE_ENDPOINT", &c.Archive.Endpoint)
	str("ARCHIVE_REGION", &c.Archive.Region)
	str("ARCHIVE_ACCESS_KEY", &c.Archive.AccessKey)
	str("ARCHIVE_SECRET_KEY", &c.Archive.SecretKey)

	if v, ok := lookup(envPrefix + "SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSESSION_TTL: %w", envPrefix, err)
		}
		c.SessionTTL = d
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil || strings.TrimSpace(c.LogLevel) == "" {
		errs = append(errs, fmt.Errorf("log_level %q must be debug, info, warn or error", c.LogLevel))
	}
	if !logging.ValidFormat(c.LogFormat) {
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	a := c.Archive
	if (a.AccessKey == "") != (a.SecretKey == "") {
		errs = append(errs, errors.New("archive access_key and secret_key must be set together"))
	}
	if a.AccessKey != "" && a.Bucket == "" {
		errs = append(errs, errors.New("archive bucket is required when credentials are set"))
	}
	return errors.Join(errs...)
}
