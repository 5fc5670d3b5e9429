package config

import (
	"strconv"
	"time"
)

const (
	apiBaseURLVar    = "API_BASE_URL"
	httpTimeoutVar   = "HTTP_TIMEOUT"
	retryMaxTriesVar = "RETRY_MAX_TRIES"
	cacheDirVar      = "CACHE_DIR"
)

type Client struct {
	file *fileValues
}

var _ ClientConfig = Client{}

func (c Client) GetAPIBaseURL() string {
	fileURL := ""
	if c.file != nil {
		fileURL = c.file.APIBaseURL
	}
	if fileURL == "" {
		fileURL = "http://localhost:8080"
	}
	return GetEnv(apiBaseURLVar, fileURL)
}

func (c Client) GetHTTPTimeout() time.Duration {
	if d, err := time.ParseDuration(GetEnv(httpTimeoutVar, "")); err == nil && d > 0 {
		return d
	}
	if c.file != nil && c.file.HTTPTimeout > 0 {
		return c.file.HTTPTimeout
	}
	return 30 * time.Second
}

// GetRetryMaxTries bounds retries of idempotent API reads on network failure.
func (c Client) GetRetryMaxTries() uint {
	if n, err := strconv.ParseUint(GetEnv(retryMaxTriesVar, ""), 10, 32); err == nil && n > 0 {
		return uint(n)
	}
	if c.file != nil && c.file.RetryMaxTries > 0 {
		return c.file.RetryMaxTries
	}
	return 3
}

// GetCacheDir enables the HTTP caching transport when set. "memory" selects
// an in-process cache.
func (c Client) GetCacheDir() string {
	fileDir := ""
	if c.file != nil {
		fileDir = c.file.CacheDir
	}
	return GetEnv(cacheDirVar, fileDir)
}
