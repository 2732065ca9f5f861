// Package web holds the static pages served by the backend.
package web

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed public
var embedded embed.FS

// Public returns the page tree. A non-empty dir overrides the embedded copy.
func Public(dir string) (fs.FS, error) {
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
		return os.DirFS(dir), nil
	}
	return fs.Sub(embedded, "public")
}
