// Package archive unpacks the release archives the bootstrap downloads.
// Supported formats: .zip, .7z, .tar and the gz/bz2/xz compressed variants.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/pgzip"
	"github.com/xi2/xz"

	"devstrap/internal/logger"
)

// Extract unpacks src into dest and returns the path of the archive's
// top-level entry. Entries whose names would escape dest are skipped.
func Extract(src, dest string) (string, error) {
	switch {
	case strings.HasSuffix(src, ".zip"):
		logger.Debug("[DEBUG] Extracting zip archive %s\n", src)
		return extractZip(src, dest)
	case strings.HasSuffix(src, ".7z"):
		logger.Debug("[DEBUG] Extracting 7z archive %s\n", src)
		return extract7z(src, dest)
	case strings.HasSuffix(src, ".tar"),
		strings.HasSuffix(src, ".tar.gz"),
		strings.HasSuffix(src, ".tgz"),
		strings.HasSuffix(src, ".tar.bz2"),
		strings.HasSuffix(src, ".tar.xz"):
		logger.Debug("[DEBUG] Extracting tar archive %s\n", src)
		return extractTar(src, dest)
	}
	return "", fmt.Errorf("unsupported archive format: %s", src)
}

// extractTar handles tar and its compressed variants.
func extractTar(src, dest string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var reader io.Reader = f
	switch {
	case strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"):
		gr, err := pgzip.NewReader(f)
		if err != nil {
			return "", err
		}
		defer gr.Close()
		reader = gr
	case strings.HasSuffix(src, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(src, ".tar.xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return "", err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	var topLevel string

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if !filepath.IsLocal(hdr.Name) {
			logger.Warn("[WARN] Skipping unsafe archive entry: %s\n", hdr.Name)
			continue
		}
		if topLevel == "" {
			topLevel, _, _ = strings.Cut(hdr.Name, "/")
		}

		target := filepath.Join(dest, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode()); err != nil {
				return "", err
			}
		}
	}
	return filepath.Join(dest, topLevel), nil
}

// extractZip extracts a .zip archive.
func extractZip(src, dest string) (string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return "", err
	}
	defer r.Close()

	var topLevel string
	for _, f := range r.File {
		if !filepath.IsLocal(f.Name) {
			logger.Warn("[WARN] Skipping unsafe archive entry: %s\n", f.Name)
			continue
		}
		if topLevel == "" {
			topLevel, _, _ = strings.Cut(f.Name, "/")
		}
		target := filepath.Join(dest, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		err = writeEntry(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dest, topLevel), nil
}

// extract7z extracts a .7z archive using the sevenzip library.
func extract7z(src, dest string) (string, error) {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return "", fmt.Errorf("open 7z archive: %w", err)
	}
	defer r.Close()

	var topLevel string
	for _, f := range r.File {
		if !filepath.IsLocal(f.Name) {
			logger.Warn("[WARN] Skipping unsafe archive entry: %s\n", f.Name)
			continue
		}
		if topLevel == "" {
			topLevel, _, _ = strings.Cut(f.Name, "/")
		}
		target := filepath.Join(dest, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, f.Mode()); err != nil {
				return "", err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		err = writeEntry(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dest, topLevel), nil
}

// writeEntry creates one extracted file, including its parent directories.
func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	perm := mode.Perm()
	if perm == 0 {
		// Some zip producers store no permissions at all.
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
