package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	stateDirEnvVar = "STATE_DIR"
	envEnvVar      = "ENV"
)

type EnvVars struct {
	file *fileValues
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, e.fileValue(func(f *fileValues) string { return f.Port }, "8090"))
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, e.fileValue(func(f *fileValues) string { return f.AppName }, "Platform Console"))
}

// GetStateDir is where the persisted key-value store lives. Defaults to
// ~/.platform-console, or ./.platform-console when no home directory exists.
func (e EnvVars) GetStateDir() string {
	defaultDir := ".platform-console"
	if home, err := os.UserHomeDir(); err == nil {
		defaultDir = filepath.Join(home, ".platform-console")
	}
	return GetEnv(stateDirEnvVar, e.fileValue(func(f *fileValues) string { return f.StateDir }, defaultDir))
}

func (e EnvVars) GetEnv() string {
	return GetEnv(envEnvVar, e.fileValue(func(f *fileValues) string { return f.Env }, "DEV"))
}

func (e EnvVars) fileValue(get func(*fileValues) string, defaultValue string) string {
	if e.file == nil {
		return defaultValue
	}
	if v := get(e.file); v != "" {
		return v
	}
	return defaultValue
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
