package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/docqa/internal/config"
	"github.com/knowledge-engine/docqa/internal/extract"
	"github.com/knowledge-engine/docqa/internal/politeness"
	"github.com/knowledge-engine/docqa/internal/storage"
)

// ErrFetchFailed is returned when a document cannot be downloaded.
var ErrFetchFailed = errors.New("unable to download document")

// RobotsChecker decides whether a URL may be downloaded
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) (bool, error)
}

// Download describes a document saved to the spool
type Download struct {
	URL         string
	Path        string // local spool file, removed by the caller
	Format      extract.Format
	ContentType string
	StatusCode  int
	Size        int64
}

type Fetcher struct {
	client *http.Client
	config config.FetchConfig
	spool  storage.DocumentSpool
	robots RobotsChecker
	logger *logrus.Entry
}

// New creates a fetcher. A nil robots checker allows every URL.
func New(cfg config.FetchConfig, spool storage.DocumentSpool, robots RobotsChecker, logger *logrus.Entry) *Fetcher {
	if logger == nil {
		logger = logrus.WithField("component", "fetcher")
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: cfg,
		spool:  spool,
		robots: robots,
		logger: logger,
	}
}

// Fetch downloads rawURL into the spool
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", ErrFetchFailed, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: only HTTP/HTTPS URLs are supported", ErrFetchFailed)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("%w: URL must have a host", ErrFetchFailed)
	}

	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("%w: robots check: %w", ErrFetchFailed, err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailed, politeness.ErrDisallowed)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: network error: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: received status code %d", ErrFetchFailed, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	format := detectFormat(parsedURL, contentType)

	file, err := f.spool.Create(string(format))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	size, err := f.copyBody(file, resp.Body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := f.spool.Remove(file.Name()); rmErr != nil {
			f.logger.WithError(rmErr).Warn("Failed to remove partial download")
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	f.logger.WithFields(logrus.Fields{
		"url":    rawURL,
		"format": format,
		"bytes":  size,
	}).Debug("Document downloaded")

	return &Download{
		URL:         rawURL,
		Path:        file.Name(),
		Format:      format,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		Size:        size,
	}, nil
}

// copyBody writes at most MaxBytes of body to w
func (f *Fetcher) copyBody(w io.Writer, body io.Reader) (int64, error) {
	if f.config.MaxBytes <= 0 {
		return io.Copy(w, body)
	}
	n, err := io.Copy(w, io.LimitReader(body, f.config.MaxBytes+1))
	if err != nil {
		return n, fmt.Errorf("read body: %w", err)
	}
	if n > f.config.MaxBytes {
		return n, fmt.Errorf("document exceeds %d bytes", f.config.MaxBytes)
	}
	return n, nil
}

// detectFormat prefers the URL path extension, then the Content-Type
func detectFormat(u *url.URL, contentType string) extract.Format {
	ext := path.Ext(u.Path)
	if extract.KnownExtension(ext) {
		return extract.FormatFromPath(u.Path)
	}
	if format, ok := extract.FormatFromContentType(contentType); ok {
		return format
	}
	return extract.FormatPDF
}

// Release removes a download's spool file
func (f *Fetcher) Release(d *Download) error {
	if d == nil || d.Path == "" {
		return nil
	}
	return f.spool.Remove(d.Path)
}
