// Package remote retrieves the supplementary dataset over HTTP and keeps a
// local copy in the user cache directory.
package remote

import (
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/miku/skmerge"
	"github.com/sethgrid/pester"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCacheTTL   = 24 * time.Hour
	DefaultMaxRetries = 3
	DefaultTimeout    = 5 * time.Minute
)

// IsURL reports whether s looks like something we should download.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetcher downloads documents into a cache directory. A cached copy younger
// than CacheTTL is used instead of downloading again.
type Fetcher struct {
	CacheDir   string
	CacheTTL   time.Duration
	MaxRetries int
	Timeout    time.Duration
	Backoff    pester.BackoffStrategy
	Logger     logrus.FieldLogger
}

// NewFetcher creates a new fetcher with default settings, caching under the
// XDG cache home.
func NewFetcher() (*Fetcher, error) {
	cacheDir, err := xdg.CacheFile(filepath.Join(skmerge.AppName, "remote"))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}
	return &Fetcher{
		CacheDir:   cacheDir,
		CacheTTL:   DefaultCacheTTL,
		MaxRetries: DefaultMaxRetries,
		Timeout:    DefaultTimeout,
		Backoff:    pester.ExponentialBackoff,
		Logger:     logrus.StandardLogger(),
	}, nil
}

// cacheFilename derives a filename from the link, keeping a compression
// extension, so the cached file can be opened like the remote one.
func (f *Fetcher) cacheFilename(link string) string {
	name := fmt.Sprintf("%x", sha1.Sum([]byte(link)))
	if u, err := url.Parse(link); err == nil {
		switch ext := path.Ext(u.Path); ext {
		case ".gz", ".zst":
			name += ext
		}
	}
	return filepath.Join(f.CacheDir, name)
}

// isFresh returns true, if the file exists and is younger than the cache TTL.
func (f *Fetcher) isFresh(filename string) (bool, error) {
	fi, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Since(fi.ModTime()) < f.CacheTTL, nil
}

// Fetch downloads link, unless a fresh copy is cached, and returns the path
// to the local file.
func (f *Fetcher) Fetch(link string) (string, error) {
	filename := f.cacheFilename(link)
	fresh, err := f.isFresh(filename)
	if err != nil {
		return "", err
	}
	if fresh {
		f.logger().WithField("file", filename).Debug("using cached copy")
		return filename, nil
	}
	client := pester.New()
	client.MaxRetries = f.MaxRetries
	client.Timeout = f.Timeout
	if f.Backoff != nil {
		client.Backoff = f.Backoff
	}
	req, err := http.NewRequest("GET", link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s/%s", skmerge.AppName, skmerge.Version))
	f.logger().WithField("url", link).Info("fetching supplementary data")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status code %d", link, resp.StatusCode)
	}
	tmp, err := os.CreateTemp(f.CacheDir, "skmerge-remote-*.wip")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("fetch %s: %w", link, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return "", err
	}
	return filename, nil
}

func (f *Fetcher) logger() logrus.FieldLogger {
	if f.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return f.Logger
}
