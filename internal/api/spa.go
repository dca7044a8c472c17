package api

import (
	"bytes"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// WithSPA serves the web client from webDir and sends /api/ requests to
// apiHandler.
func WithSPA(apiHandler http.Handler, webDir string) http.Handler {
	return WithSPAFS(apiHandler, os.DirFS(webDir))
}

// WithSPAFS is WithSPA over any file system. Unknown paths fall back to
// index.html so client-side routes resolve.
func WithSPAFS(apiHandler http.Handler, files fs.FS) http.Handler {
	fileServer := http.FileServerFS(files)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			apiHandler.ServeHTTP(w, r)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name != "" && name != "." && isFile(files, name) {
			w.Header().Set("Cache-Control", "no-store")
			fileServer.ServeHTTP(w, r)
			return
		}
		serveIndex(w, r, files)
	})
}

func isFile(files fs.FS, name string) bool {
	info, err := fs.Stat(files, name)
	return err == nil && !info.IsDir()
}

// serveIndex writes index.html whatever the request path is.
func serveIndex(w http.ResponseWriter, r *http.Request, files fs.FS) {
	info, err := fs.Stat(files, "index.html")
	if err != nil || info.IsDir() {
		http.Error(w, "index.html not found", http.StatusNotFound)
		return
	}
	data, err := fs.ReadFile(files, "index.html")
	if err != nil {
		http.Error(w, "index.html not readable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "index.html", info.ModTime(), bytes.NewReader(data))
}
