package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "retrocast-server-go/internal/platform/errors"
)

const defaultConfigPath = "config.yaml"

// Loader reads configuration from a YAML file layered over Default().
type Loader struct {
	useDotEnv bool
	path      string
}

func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads, merges and validates configuration. The YAML file is layered
// over Default(); validation still fails when no sources end up configured.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// Missing .env just means the process environment is used.
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "load",
				"parse config file", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "load",
			"read config file", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}
