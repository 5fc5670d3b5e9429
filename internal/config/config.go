package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	ClientConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetStateDir() string
	GetEnv() string
}

type ClientConfig interface {
	GetAPIBaseURL() string
	GetHTTPTimeout() time.Duration
	GetRetryMaxTries() uint
	GetCacheDir() string
}

// fileValues mirrors the optional YAML config file. Environment variables
// always win over file values.
type fileValues struct {
	Port          string        `yaml:"port"`
	AppName       string        `yaml:"app_name"`
	StateDir      string        `yaml:"state_dir"`
	Env           string        `yaml:"env"`
	APIBaseURL    string        `yaml:"api_base_url"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	RetryMaxTries uint          `yaml:"retry_max_tries"`
	CacheDir      string        `yaml:"cache_dir"`
}

type mainConfig struct {
	EnvVars
	Client
}

func New() Config {
	return newConfig(&fileValues{})
}

// Load reads a YAML config file and layers environment variables on top.
// An empty path behaves like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config.Load] read %s: %w", path, err)
	}
	values := &fileValues{}
	if err := yaml.Unmarshal(data, values); err != nil {
		return nil, fmt.Errorf("[config.Load] parse %s: %w", path, err)
	}
	return newConfig(values), nil
}

func newConfig(values *fileValues) Config {
	return mainConfig{
		EnvVars: EnvVars{file: values},
		Client:  Client{file: values},
	}
}
