package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

// asset is an embedded static file ready to be served
type asset struct {
	name        string
	data        []byte
	contentType string
	etag        string
}

func loadAsset(name string) (*asset, error) {
	data, err := fs.ReadFile(staticFiles, path.Join("static", name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}

	sum := sha256.Sum256(data)
	return &asset{
		name:        name,
		data:        data,
		contentType: ctype,
		etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
	}, nil
}

// serveAsset answers with the embedded file name, or 304 when the client
// already holds the current version
func (s *Server) serveAsset(name string) http.HandlerFunc {
	a, err := loadAsset(name)
	if err != nil {
		s.logger.Error().Err(err).Str("asset", name).Msg("static asset missing")
		return func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", a.etag)
		if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, a.etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", a.contentType)
		if _, err := w.Write(a.data); err != nil {
			s.logger.Warn().Err(err).Str("asset", a.name).Msg("failed to write static asset")
		}
	}
}
