package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-intake/internal/session"
	"file-intake/internal/storage"
)

// writeStored places a file directly in the upload directory.
func (ts *testServer) writeStored(t *testing.T, name, content string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(ts.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func adminGet(ts *testServer, t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	c := ts.login(t, session.RoleAdmin)
	return ts.do(withCookie(httptest.NewRequest(http.MethodGet, target, nil), c))
}

func TestListFiles_Empty(t *testing.T) {
	ts := newTestServer(t)

	rec := adminGet(ts, t, "/admin/files")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"files":[],"count":0}`, rec.Body.String())
}

func TestListFiles_SortedNewestFirst(t *testing.T) {
	ts := newTestServer(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts.writeStored(t, "old.txt", "1", base)
	ts.writeStored(t, "new.txt", "333", base.Add(2*time.Hour))
	ts.writeStored(t, "mid.txt", "22", base.Add(time.Hour))
	ts.writeStored(t, storage.Placeholder, "", base.Add(3*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(ts.dir, "subdir"), 0o755))

	rec := adminGet(ts, t, "/admin/files")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 3, resp.Count)
	require.Len(t, resp.Files, 3)

	assert.Equal(t, fileEntry{Name: "new.txt", Size: 3, Mtime: base.Add(2 * time.Hour).UnixMilli()}, resp.Files[0])
	assert.Equal(t, "mid.txt", resp.Files[1].Name)
	assert.Equal(t, "old.txt", resp.Files[2].Name)
}

func TestListFiles_StoreError(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.Store = brokenStore{Store: c.Store}
	})

	rec := adminGet(ts, t, "/admin/files")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "failed to read uploads", body["message"])
}

func TestAdminRoutes_RequireSession(t *testing.T) {
	ts := newTestServer(t)
	ts.writeStored(t, "a.txt", "x", time.Now())

	for _, target := range []string{"/admin/files", "/admin/download/a.txt", "/admin/download-all"} {
		t.Run(target, func(t *testing.T) {
			rec := ts.do(httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["ok"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestDownload(t *testing.T) {
	ts := newTestServer(t)
	ts.writeStored(t, "report.txt", "quarterly numbers", time.Now())

	rec := adminGet(ts, t, "/admin/download/report.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=report.txt", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "quarterly numbers", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestDownload_NonASCIIName(t *testing.T) {
	ts := newTestServer(t)
	ts.writeStored(t, "Иван_1-abc.txt", "x", time.Now())

	rec := adminGet(ts, t, "/admin/download/"+"%D0%98%D0%B2%D0%B0%D0%BD_1-abc.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "filename*=utf-8''")
}

func TestDownload_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := adminGet(ts, t, "/admin/download/missing.txt")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "file not found", decodeBody(t, rec)["message"])
}

func TestDownload_ReservedIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.writeStored(t, storage.Placeholder, "", time.Now())

	rec := adminGet(ts, t, "/admin/download/"+storage.Placeholder)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload_Traversal(t *testing.T) {
	ts := newTestServer(t)

	for _, target := range []string{
		"/admin/download/..%2F..%2Fetc%2Fpasswd",
		"/admin/download/../../etc/passwd",
		"/admin/download/..",
		"/admin/download/a%5Cb.txt",
	} {
		t.Run(target, func(t *testing.T) {
			rec := adminGet(ts, t, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid file name", decodeBody(t, rec)["message"])
		})
	}
}

func TestDownload_TraversalRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/admin/download/../../etc/passwd", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDownloadAll(t *testing.T) {
	ts := newTestServer(t)
	now := time.Now()
	ts.writeStored(t, "a.txt", "alpha", now)
	ts.writeStored(t, "b.txt", "bravo", now.Add(-time.Minute))
	ts.writeStored(t, "c.bin", string(bytes.Repeat([]byte{0xAB}, 4096)), now.Add(-2*time.Minute))
	ts.writeStored(t, storage.Placeholder, "", now)

	rec := adminGet(ts, t, "/admin/download-all")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename=uploads_\d+\.zip$`, rec.Header().Get("Content-Disposition"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	contents := map[string]string{}
	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		contents[f.Name] = string(b)
	}
	assert.Equal(t, "alpha", contents["a.txt"])
	assert.Equal(t, "bravo", contents["b.txt"])
	assert.Len(t, contents["c.bin"], 4096)
}

func TestDownloadAll_Empty(t *testing.T) {
	ts := newTestServer(t)

	rec := adminGet(ts, t, "/admin/download-all")
	require.Equal(t, http.StatusOK, rec.Code)

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

func TestDownloadAll_StoreError(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.Store = brokenStore{Store: c.Store}
	})

	rec := adminGet(ts, t, "/admin/download-all")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, false, decodeBody(t, rec)["ok"])
}

func TestAttachment(t *testing.T) {
	assert.Equal(t, "attachment; filename=a.txt", attachment("a.txt"))
	assert.Equal(t, `attachment; filename="my file.txt"`, attachment("my file.txt"))
	assert.Contains(t, attachment("файл.txt"), "filename*=utf-8''")
}
