package api

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// MemoryCache selects the in-process cache in NewCachingTransport
const MemoryCache = "memory"

// NewCachingTransport wraps base with an HTTP cache that honours the
// backend's Cache-Control and Vary headers. cacheDir "memory" keeps the cache
// in process; any other value is a directory for a disk cache that survives
// restarts.
func NewCachingTransport(cacheDir string, base http.RoundTripper) http.RoundTripper {
	var cache httpcache.Cache
	if cacheDir == "" || cacheDir == MemoryCache {
		cache = httpcache.NewMemoryCache()
	} else {
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = base
	return transport
}
