package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"file-intake/internal/storage"
)

// fileEntry is one row of the admin listing. Mtime is unix milliseconds.
type fileEntry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Mtime int64  `json:"mtime"`
}

type listResponse struct {
	OK    bool        `json:"ok"`
	Files []fileEntry `json:"files"`
	Count int         `json:"count"`
}

// handleListFiles returns every stored file, newest first.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) error {
	files, err := s.store.List(r.Context())
	if err != nil {
		return storageError("failed to read uploads", err)
	}
	storage.SortNewestFirst(files)

	entries := make([]fileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, fileEntry{
			Name:  f.Name,
			Size:  f.Size,
			Mtime: f.ModTime.UnixMilli(),
		})
	}
	writeJSON(w, http.StatusOK, listResponse{OK: true, Files: entries, Count: len(entries)})
	return nil
}

// handleDownload streams one stored file as an attachment. The name is
// checked before the store is touched.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	if err := storage.ValidateName(name); err != nil {
		return invalidInputError("invalid file name")
	}

	f, info, err := s.store.Open(r.Context(), name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return notFoundError("file not found")
	case errors.Is(err, storage.ErrInvalidName):
		return invalidInputError("invalid file name")
	case err != nil:
		return storageError("failed to open file", err)
	}
	defer func() { _ = f.Close() }()

	s.metrics.RecordDownload("single")
	w.Header().Set("Content-Disposition", attachment(name))
	http.ServeContent(w, r, name, info.ModTime, f)
	return nil
}

// handleDownloadAll streams a zip of every stored file. Headers are sent
// with the first archive byte, so a failure before that still gets a JSON
// error; a failure after it aborts the response.
func (s *Server) handleDownloadAll(w http.ResponseWriter, r *http.Request) error {
	zw := &lazyHeaderWriter{
		w:        w,
		filename: fmt.Sprintf("uploads_%d.zip", s.clock.Now().UnixMilli()),
	}

	n, err := storage.WriteZip(r.Context(), s.store, zw)
	if err != nil {
		if !zw.started {
			return storageError("failed to build archive", err)
		}
		s.logger.Error("archive stream aborted",
			"rid", RequestIDFromContext(r.Context()), "entries", n, "err", err)
		panic(http.ErrAbortHandler)
	}

	s.metrics.RecordDownload("archive")
	s.logger.Info("archive sent", "rid", RequestIDFromContext(r.Context()), "entries", n, "bytes", zw.written)
	return nil
}

type lazyHeaderWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
	written  int64
}

func (z *lazyHeaderWriter) Write(p []byte) (int, error) {
	if !z.started {
		z.started = true
		h := z.w.Header()
		h.Set("Content-Type", "application/zip")
		h.Set("Content-Disposition", attachment(z.filename))
		z.w.WriteHeader(http.StatusOK)
	}
	n, err := z.w.Write(p)
	z.written += int64(n)
	return n, err
}

// attachment formats a Content-Disposition value. Non-ASCII names are
// RFC 2231 encoded.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
