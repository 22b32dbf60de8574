// Package web embeds the built frontend (dist/) and serves it as a
// single-page application.
//
// The committed dist/ only holds a placeholder page; release builds replace it
// with the bundled frontend before compiling.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// reservedPrefixes are server routes that must never fall back to index.html.
var reservedPrefixes = []string{"api/", "ws/"}

// SPAHandler returns an http.Handler that serves the embedded frontend.
// Paths that do not match a file fall back to index.html for client-side
// routing, except under reservedPrefixes, which return 404.
func SPAHandler() http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if exists(subFS, path) {
			if strings.HasPrefix(path, "assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		for _, prefix := range reservedPrefixes {
			if strings.HasPrefix(path, prefix) {
				http.NotFound(w, r)
				return
			}
		}

		w.Header().Set("Cache-Control", "no-cache")
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

func exists(fsys fs.FS, path string) bool {
	f, err := fsys.Open(path)
	if err != nil {
		return false
	}
	if closeErr := f.Close(); closeErr != nil {
		slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
	}
	return true
}
