// Package config holds the front-end client configuration and loads
// it from YAML and environment variables with a predictable priority.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration.
// Source priority:
//  1. explicit path passed to MustLoad/Load;
//  2. the CONFIG_PATH environment variable;
//  3. ./local.yaml in the working directory;
//  4. environment variables only.
type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	Backend BackendConfig `yaml:"backend"`
	Store   StoreConfig   `yaml:"store"`
	Guard   GuardConfig   `yaml:"guard"`
	Metrics MetricsConfig `yaml:"metrics"`
	Audit   AuditConfig   `yaml:"audit"`
}

// BackendConfig points at the ContentKosh API.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" env:"BACKEND_BASE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout"  env:"BACKEND_TIMEOUT"  env-default:"15s"`
}

// StoreConfig selects and configures the credential store.
type StoreConfig struct {
	// Kind is one of "memory", "file", "redis".
	Kind string `yaml:"kind" env:"STORE_KIND" env-default:"memory"`
	// FilePath is the state file for the "file" kind.
	FilePath string `yaml:"file_path" env:"STORE_FILE_PATH"`
	// Redis settings for the "redis" kind.
	RedisAddr     string        `yaml:"redis_addr"     env:"STORE_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"STORE_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"       env:"STORE_REDIS_DB"  env-default:"0"`
	RedisKey      string        `yaml:"redis_key"      env:"STORE_REDIS_KEY" env-default:"contentkosh:credential"`
	RedisTTL      time.Duration `yaml:"redis_ttl"      env:"STORE_REDIS_TTL" env-default:"24h"`
}

// GuardConfig sets the route guard paths.
type GuardConfig struct {
	AdminPrefix      string `yaml:"admin_prefix"      env:"GUARD_ADMIN_PREFIX"      env-default:"/admin"`
	LoginPath        string `yaml:"login_path"        env:"GUARD_LOGIN_PATH"        env-default:"/login"`
	VerifyPath       string `yaml:"verify_path"       env:"GUARD_VERIFY_PATH"       env-default:"/verify-email"`
	UnauthorizedPath string `yaml:"unauthorized_path" env:"GUARD_UNAUTHORIZED_PATH" env-default:"/unauthorized"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
}

// AuditConfig sets audit logging parameters.
type AuditConfig struct {
	BufferSize int  `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE" env-default:"1000"`
	Stdout     bool `yaml:"stdout"      env:"AUDIT_STDOUT"      env-default:"false"`
}

// MustLoad wraps Load and panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load loads the configuration by priority:
// 1) explicit path; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", p)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return &cfg, nil
	}

	if path != "" {
		c, err := tryRead(path)
		if err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		c, err := tryRead(envPath)
		if err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be > 0")
	}
	switch c.Store.Kind {
	case "memory":
	case "file":
		if c.Store.FilePath == "" {
			return fmt.Errorf("store.file_path is required for the file store")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("store.kind must be one of memory, file, redis")
	}
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit.buffer_size must be > 0")
	}
	return nil
}
