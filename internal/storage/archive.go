package storage

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// WriteZip streams every listed entry of s into a zip archive written to w,
// deflated at the highest compression level. It returns the number of
// entries written. Entries that vanish between listing and reading are
// skipped.
func WriteZip(ctx context.Context, s Store, w io.Writer) (int, error) {
	files, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	SortNewestFirst(files)

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	count := 0
	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		added, err := addToZip(ctx, zw, s, fi.Name)
		if err != nil {
			return count, err
		}
		if added {
			count++
		}
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("finish archive: %w", err)
	}
	return count, nil
}

func addToZip(ctx context.Context, zw *zip.Writer, s Store, name string) (bool, error) {
	f, info, err := s.Open(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.ModTime,
	}
	hdr.SetMode(0o644)

	zf, err := zw.CreateHeader(hdr)
	if err != nil {
		return false, fmt.Errorf("zip header %s: %w", name, err)
	}
	if _, err := io.Copy(zf, f); err != nil {
		return false, fmt.Errorf("zip copy %s: %w", name, err)
	}
	return true, nil
}
