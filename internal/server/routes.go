package server

import (
	"net/http"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"file-intake/internal/session"
)

const downloadPrefix = "/admin/download/"

func (s *Server) routes(mux *http.ServeMux, reg *prometheus.Registry) {
	mux.Handle("GET /health", s.handle(s.handleHealth))
	mux.Handle("GET /metrics", metricsHandler(reg))

	// Sessions
	mux.Handle("POST /admin/login", s.limitLogins(s.handle(s.loginHandler(session.RoleAdmin))))
	mux.Handle("POST /admin/logout", s.handle(s.logoutHandler(session.RoleAdmin)))
	mux.Handle("POST /upload/login", s.limitLogins(s.handle(s.loginHandler(session.RoleUploader))))
	mux.Handle("POST /upload/logout", s.handle(s.logoutHandler(session.RoleUploader)))
	mux.Handle("GET /upload/session", s.handle(s.handleUploadSession))

	// Uploader
	mux.Handle("POST /upload", s.requireRole(session.RoleUploader, s.handle(s.handleUpload)))

	// Admin
	mux.Handle("GET /admin/files", s.requireRole(session.RoleAdmin, s.handle(s.handleListFiles)))
	mux.Handle("GET "+downloadPrefix+"{name}", s.requireRole(session.RoleAdmin, s.handle(s.handleDownload)))
	mux.Handle("GET /admin/download-all", s.requireRole(session.RoleAdmin, s.handle(s.handleDownloadAll)))

	// Pages
	if s.public != nil {
		mux.Handle("GET /admin", s.page("admin.html"))
		mux.Handle("GET /upload-login", s.page("upload-login.html"))
		mux.Handle("GET /", http.FileServerFS(s.public))
	}
}

// downloadGuard answers download paths containing dot segments with 400.
// Without it the mux would redirect them to their cleaned form.
func (s *Server) downloadGuard(next http.Handler) http.Handler {
	reject := s.requireRole(session.RoleAdmin, s.handle(func(http.ResponseWriter, *http.Request) error {
		return invalidInputError("invalid file name")
	}))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if strings.HasPrefix(p, downloadPrefix) && path.Clean(p) != p {
			reject.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
