package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "COMMANDAPI_"

// DefaultConfigFile is looked up under the project root when no path is given.
const DefaultConfigFile = "commandapi.toml"

// Config is the server configuration. Values come from Defaults, then the
// TOML file, then COMMANDAPI_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `toml:"database" envPrefix:"DATABASE_"`
	Auth     AuthConfig     `toml:"auth" envPrefix:"AUTH_"`
	Log      LogConfig      `toml:"log" envPrefix:"LOG_"`
	Tracing  TracingConfig  `toml:"tracing" envPrefix:"TRACING_"`
}

type ServerConfig struct {
	Addr            string        `toml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `toml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `toml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `toml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// TLSCertFile and TLSKeyFile switch the listener to HTTPS when set.
	TLSCertFile string `toml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `toml:"tls_key_file" env:"TLS_KEY_FILE"`
}

type DatabaseConfig struct {
	// Driver is postgres, sqlite or memory.
	Driver string `toml:"driver" env:"DRIVER"`
	// ConnectionString is a PostgreSQL DSN, a SQLite file path, or an
	// optional JSON snapshot path for the memory driver.
	ConnectionString string `toml:"connection_string" env:"CONNECTION_STRING"`
	UserID           string `toml:"user_id" env:"USER_ID"`
	Password         string `toml:"password" env:"PASSWORD"`
	Migrate          bool   `toml:"migrate" env:"MIGRATE"`
}

type AuthConfig struct {
	// ResourceID is the expected token audience.
	ResourceID string `toml:"resource_id" env:"RESOURCE_ID"`
	// Instance and TenantID are concatenated into the token authority.
	Instance      string        `toml:"instance" env:"INSTANCE"`
	TenantID      string        `toml:"tenant_id" env:"TENANT_ID"`
	HMACSecret    string        `toml:"hmac_secret" env:"HMAC_SECRET"`
	PublicKeyFile string        `toml:"public_key_file" env:"PUBLIC_KEY_FILE"`
	JWKSURL       string        `toml:"jwks_url" env:"JWKS_URL"`
	APIKeyHashes  []string      `toml:"api_key_hashes" env:"API_KEY_HASHES" envSeparator:","`
	Leeway        time.Duration `toml:"leeway" env:"LEEWAY"`
}

// Authority is the issuer tokens must carry.
func (a AuthConfig) Authority() string {
	return strings.TrimSpace(a.Instance) + strings.TrimSpace(a.TenantID)
}

// Enabled reports whether any credential verifier is configured.
func (a AuthConfig) Enabled() bool {
	return a.TokensEnabled() || len(a.APIKeyHashes) > 0
}

// TokensEnabled reports whether bearer tokens can be verified.
func (a AuthConfig) TokensEnabled() bool {
	return a.HMACSecret != "" || a.PublicKeyFile != "" || a.JWKSURL != "" || a.Authority() != ""
}

type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
	File   string `toml:"file" env:"FILE"`
}

type TracingConfig struct {
	Enabled     bool   `toml:"enabled" env:"ENABLED"`
	Endpoint    string `toml:"endpoint" env:"ENDPOINT"`
	ServiceName string `toml:"service_name" env:"SERVICE_NAME"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:           "sqlite",
			ConnectionString: "commands.db",
			Migrate:          true,
		},
		Auth: AuthConfig{
			Leeway: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     true,
			ServiceName: "commandapi",
		},
	}
}

// LoadConfig builds the configuration. An empty path falls back to
// DefaultConfigFile under the project root, which may be absent; an explicit
// path must exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(GetProjectRoot(), DefaultConfigFile)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	driver := strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch driver {
	case "postgres", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be postgres, sqlite or memory", c.Database.Driver))
	}
	if driver != "memory" && strings.TrimSpace(c.Database.ConnectionString) == "" {
		errs = append(errs, errors.New("database.connection_string is required"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.tls_cert_file and server.tls_key_file must be set together"))
	}
	if c.Auth.Leeway < 0 {
		errs = append(errs, errors.New("auth.leeway must not be negative"))
	}
	if c.Auth.TokensEnabled() && strings.TrimSpace(c.Auth.ResourceID) == "" {
		errs = append(errs, errors.New("auth.resource_id is required when token verification is enabled"))
	}
	return errors.Join(errs...)
}

// GetProjectRoot returns the nearest directory above the working directory
// containing a go.mod, or "." when there is none.
func GetProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
