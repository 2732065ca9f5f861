// Package server implements the HTTP front of the file intake service:
// session login for the two roles, the upload endpoint, the admin file
// API, static pages and the ambient middleware (request ids, access log,
// security headers, compression, metrics).
package server
