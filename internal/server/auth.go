// auth.go - Login, logout and the per-role session cookie check.
//
// Each role has one live token held by session.Gate. The browser carries
// it in a role-specific HttpOnly cookie.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"file-intake/internal/session"
)

const (
	adminCookie  = "admin_auth"
	uploadCookie = "upload_auth"

	maxLoginBodyBytes = 16 << 10
)

func cookieName(role session.Role) string {
	if role == session.RoleAdmin {
		return adminCookie
	}
	return uploadCookie
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readCredentials accepts a JSON or form-encoded body. Any other content
// type yields empty credentials, which never authenticate.
func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return c, tooLargeError("request body too large", err)
			}
			return c, invalidInputError("malformed JSON body")
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxLoginBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return c, invalidInputError("malformed form body")
		}
		c.Username = r.PostFormValue("username")
		c.Password = r.PostFormValue("password")
	}
	return c, nil
}

func (s *Server) loginHandler(role session.Role) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		creds, err := readCredentials(w, r)
		if err != nil {
			return err
		}

		token, err := s.gate.Authenticate(role, getClientIP(r), creds.Username, creds.Password)
		if err != nil {
			var locked *session.LockedError
			switch {
			case errors.As(err, &locked):
				s.metrics.RecordLogin(string(role), "locked")
				return rateLimitedError("too many failed attempts, try again later", locked.Until.Sub(s.clock.Now()))
			case errors.Is(err, session.ErrInvalidCredentials):
				s.metrics.RecordLogin(string(role), "failure")
				return authenticationError("invalid credentials")
			default:
				return internalError("login failed", err)
			}
		}

		s.metrics.RecordLogin(string(role), "success")
		s.logger.Info("login", "rid", RequestIDFromContext(r.Context()), "role", role, "ip", getClientIP(r))
		s.setSessionCookie(w, role, token)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
		return nil
	}
}

func (s *Server) logoutHandler(role session.Role) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		s.gate.Logout(role)
		s.clearSessionCookie(w, role)
		s.logger.Info("logout", "rid", RequestIDFromContext(r.Context()), "role", role)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
		return nil
	}
}

// handleUploadSession lets the upload page check its cookie without
// side effects. A failure carries no message.
func (s *Server) handleUploadSession(w http.ResponseWriter, r *http.Request) error {
	if !s.authorized(session.RoleUploader, r) {
		return authorizationError("")
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
	return nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, role session.Role, token string) {
	c := &http.Cookie{
		Name:     cookieName(role),
		Value:    url.PathEscape(token),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cookieSecure,
	}
	if s.sessionTTL > 0 {
		c.Expires = s.clock.Now().Add(s.sessionTTL)
		c.MaxAge = int(s.sessionTTL / time.Second)
	}
	http.SetCookie(w, c)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, role session.Role) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(role),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cookieSecure,
	})
}

// authorized reports whether the request carries the live token of role.
func (s *Server) authorized(role session.Role, r *http.Request) bool {
	c, err := r.Cookie(cookieName(role))
	if err != nil || c.Value == "" {
		return false
	}
	token, err := url.PathUnescape(c.Value)
	if err != nil {
		return false
	}
	return s.gate.Authorize(role, token)
}

// requireRole rejects requests without the role's live session cookie.
func (s *Server) requireRole(role session.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(role, r) {
			s.writeError(w, r, authorizationError("not authorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
