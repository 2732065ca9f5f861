// compression.go - gzip for text responses.
//
// File downloads and upload requests bypass compression: stored files are
// served as-is (range requests keep working) and the archive is already
// deflated.
package server

import (
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzhttp"
)

func compressionMiddleware(next http.Handler) http.Handler {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		// Only reachable with invalid options.
		panic(err)
	}
	gz := wrap(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipCompression(r) {
			next.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// shouldSkipCompression determines if compression should be skipped for this request.
func shouldSkipCompression(r *http.Request) bool {
	path := r.URL.Path
	if strings.HasPrefix(path, "/admin/download") {
		return true
	}
	if path == "/upload" && r.Method == http.MethodPost {
		return true
	}
	return false
}
