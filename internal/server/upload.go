package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"file-intake/internal/sanitize"
	"file-intake/internal/storage"
)

const (
	// maxFieldBytes caps the text fields read from the multipart body.
	maxFieldBytes = 4 << 10

	suffixLength = 10

	msgNameRequired = "full name is required"
	msgFileRequired = "no file received"
)

// uploadResponse is the JSON response returned after a successful file upload.
type uploadResponse struct {
	OK           bool   `json:"ok"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

// handleUpload streams a multipart body with a "fio" text field and a
// "file" part into the store.
//
// The name is validated as soon as its field is read, so a form that puts
// fio first is rejected before any byte is stored. When fio comes after the
// file, the file is stored under "unknown" and removed again if fio turns
// out empty.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) error {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		s.metrics.RecordUploadRejected("bad_request")
		return invalidInputError("expected a multipart/form-data body")
	}

	var (
		fio      string
		stored   string
		original string
		size     int64
		accepted bool
	)
	defer func() {
		if stored == "" || accepted {
			return
		}
		// The request context may already be cancelled.
		ctx := context.WithoutCancel(r.Context())
		if err := s.store.Remove(ctx, stored); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to remove rejected upload",
				"rid", RequestIDFromContext(r.Context()), "filename", stored, "err", err)
		}
	}()

	seenFio := false
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.uploadReadError(err)
		}

		switch {
		case part.FormName() == "fio" && part.FileName() == "" && !seenFio:
			seenFio = true
			raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if err != nil {
				return s.uploadReadError(err)
			}
			if len(raw) > maxFieldBytes {
				s.metrics.RecordUploadRejected("bad_request")
				return invalidInputError("fio field too large")
			}
			fio = sanitize.Name(string(raw))
			if fio == "" {
				s.metrics.RecordUploadRejected("missing_name")
				return validationError(msgNameRequired)
			}

		case part.FormName() == "file" && part.FileName() != "" && stored == "":
			original = part.FileName()
			name, err := s.storedName(fio, original)
			if err != nil {
				return internalError("failed to name upload", err)
			}
			n, err := s.store.Put(r.Context(), name, part)
			if err != nil {
				return s.uploadReadError(err)
			}
			stored, size = name, n
		}
		_ = part.Close()
	}

	if fio == "" {
		s.metrics.RecordUploadRejected("missing_name")
		return validationError(msgNameRequired)
	}
	if stored == "" {
		s.metrics.RecordUploadRejected("missing_file")
		return validationError(msgFileRequired)
	}

	accepted = true
	s.metrics.RecordUpload(size)
	s.logger.Info("upload stored",
		"rid", RequestIDFromContext(r.Context()),
		"filename", stored,
		"original_name", original,
		"size", size,
	)
	writeJSON(w, http.StatusOK, uploadResponse{
		OK:           true,
		Filename:     stored,
		OriginalName: original,
		Size:         size,
	})
	return nil
}

// storedName builds "<name|unknown>_<unix ms>-<10 char id><ext>".
func (s *Server) storedName(fio, original string) (string, error) {
	// A leading dot would hide the file or collide with reserved entries.
	prefix := strings.TrimLeft(sanitize.FilenamePart(fio), ".")
	if prefix == "" {
		prefix = "unknown"
	}
	suffix, err := gonanoid.New(suffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%d-%s%s", prefix, s.clock.Now().UnixMilli(), suffix, sanitize.Ext(original)), nil
}

func (s *Server) uploadReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		s.metrics.RecordUploadRejected("too_large")
		return tooLargeError(fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes), err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || strings.Contains(err.Error(), "multipart") {
		s.metrics.RecordUploadRejected("bad_request")
		return &apiError{kind: kindInvalidInput, message: "malformed multipart body", cause: err}
	}
	return storageError("failed to store upload", err)
}
