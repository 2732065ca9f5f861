package server

import "net/http"

// page serves a single file from the public tree.
func (s *Server) page(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, s.public, name)
	})
}
