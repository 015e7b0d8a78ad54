// Package config loads the service configuration from a YAML file. Fields
// missing from the file keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server        Server        `yaml:"server"`
	Database      Database      `yaml:"database"`
	Auth          Auth          `yaml:"auth"`
	Notifications Notifications `yaml:"notifications"`
	Uploads       Uploads       `yaml:"uploads"`
}

// Server configures the HTTP listener and logging.
type Server struct {
	Addr            string        `yaml:"addr"`
	LogFile         string        `yaml:"log_file"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Database configures the SQLite store.
type Database struct {
	Path string `yaml:"path"`
}

// Auth configures identity.
type Auth struct {
	// AdminEmail is the account seeded on first start.
	AdminEmail string `yaml:"admin_email"`
	// TrustIdentityHeaders accepts x-user-id and x-user-role from an
	// upstream proxy for requests without a token.
	TrustIdentityHeaders bool `yaml:"trust_identity_headers"`
}

// Notifications configures the outbound queue and its sink.
type Notifications struct {
	QueueSize     int    `yaml:"queue_size"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// Uploads configures image uploads.
type Uploads struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{Path: "odvoz.db"},
		Auth:     Auth{AdminEmail: "admin@odvoz.local"},
		Notifications: Notifications{
			QueueSize:     256,
			MongoDatabase: "odvoz",
		},
		Uploads: Uploads{MaxBytes: 8 << 20},
	}
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the configuration file at path. An empty path yields the
// defaults; a path that does not exist is an error.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Server.Addr) == "":
		return errors.New("config: server.addr is required")
	case strings.TrimSpace(c.Database.Path) == "":
		return errors.New("config: database.path is required")
	case !strings.Contains(c.Auth.AdminEmail, "@"):
		return fmt.Errorf("config: auth.admin_email %q is not an email address", c.Auth.AdminEmail)
	case c.Notifications.QueueSize < 0:
		return errors.New("config: notifications.queue_size must not be negative")
	case c.Notifications.MongoURI != "" && c.Notifications.MongoDatabase == "":
		return errors.New("config: notifications.mongo_database is required with mongo_uri")
	case c.Uploads.MaxBytes < 0:
		return errors.New("config: uploads.max_bytes must not be negative")
	case c.Server.ShutdownTimeout < 0:
		return errors.New("config: server.shutdown_timeout must not be negative")
	}
	return nil
}
