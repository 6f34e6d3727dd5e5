// Package fetch downloads release artifacts into a per-user cache. Entries
// are keyed by a BLAKE3 hash of the source URL, optionally verified against a
// pinned checksum, and guarded by an advisory file lock so two concurrent
// runs cannot clobber each other's half-written downloads.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
	"lukechampine.com/blake3"

	"devstrap/internal/logger"
)

// Fetcher downloads into CacheDir through Client.
type Fetcher struct {
	CacheDir string
	Client   *http.Client
	// APIBase fronts the GitHub API; tests point it at a local server.
	APIBase string
}

// New returns a Fetcher rooted at the user cache directory.
func New() (*Fetcher, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	return &Fetcher{
		CacheDir: filepath.Join(dir, "devstrap"),
		Client:   &http.Client{Timeout: 10 * time.Minute},
		APIBase:  "https://api.github.com",
	}, nil
}

// CacheKey is the stable cache file name for a URL: a short BLAKE3 prefix of
// the URL plus the human-readable asset name.
func CacheKey(url, name string) string {
	sum := blake3.Sum256([]byte(url))
	return fmt.Sprintf("%x-%s", sum[:8], name)
}

// Download fetches url into the cache and returns the local path. A cached
// copy is reused when present and, if wantB3 is set, when it still matches;
// a corrupt entry is fetched again. wantB3 is an optional BLAKE3 hex digest,
// empty skips verification.
func (f *Fetcher) Download(url, name, wantB3 string) (string, error) {
	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	dest := filepath.Join(f.CacheDir, CacheKey(url, name))

	err := withLock(dest+".lock", func() error {
		if f.cached(dest, wantB3) {
			logger.Debug("[DEBUG] Cache hit: %s\n", dest)
			return nil
		}
		if err := f.fetch(url, dest); err != nil {
			return err
		}
		if wantB3 == "" {
			return nil
		}
		got, err := fileB3(dest)
		if err != nil {
			return fmt.Errorf("hash %s: %w", dest, err)
		}
		if got != wantB3 {
			os.Remove(dest)
			return fmt.Errorf("checksum mismatch for %s: got %s, want %s", name, got, wantB3)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

// cached reports whether dest already satisfies the checksum contract.
func (f *Fetcher) cached(dest, wantB3 string) bool {
	if _, err := os.Stat(dest); err != nil {
		return false
	}
	if wantB3 == "" {
		return true
	}
	got, err := fileB3(dest)
	return err == nil && got == wantB3
}

// fetch streams url into dest via a .part file, so a crash never leaves a
// truncated file under the final name.
func (f *Fetcher) fetch(url, dest string) error {
	logger.Info("[INFO] Downloading %s\n", url)
	resp, err := f.client().Get(url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close response body: %v\n", cerr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP status %d", url, resp.StatusCode)
	}

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create %s: %w", part, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(part)
		return fmt.Errorf("write %s: %w", part, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(part)
		return fmt.Errorf("close %s: %w", part, err)
	}
	return os.Rename(part, dest)
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// fileB3 computes the BLAKE3 hex digest of a file.
func fileB3(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// withLock runs fn while holding an exclusive advisory lock on lockPath.
func withLock(lockPath string, fn func() error) error {
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock %s: %w", lockPath, err)
	}
	defer lf.Close()
	if err := unix.Flock(int(lf.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer unix.Flock(int(lf.Fd()), unix.LOCK_UN)
	return fn()
}
