package politeness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/knowledge-engine/docqa/internal/config"
)

// ErrDisallowed is returned by callers when robots.txt forbids a download.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// RobotsGuard answers whether a document URL may be fetched according to its
// host's robots.txt. Results are cached per host.
type RobotsGuard struct {
	config config.FetchConfig
	client *http.Client
	logger *logrus.Entry
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]*robotsEntry
}

// robotsEntry caches robots.txt data. A nil robots value means no rules apply.
type robotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// NewRobotsGuard creates a guard. A nil client gets a 10 second timeout.
func NewRobotsGuard(cfg config.FetchConfig, client *http.Client, logger *logrus.Entry) *RobotsGuard {
	if logger == nil {
		logger = logrus.WithField("component", "robots_guard")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsGuard{
		config: cfg,
		client: client,
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]*robotsEntry),
	}
}

// Allowed checks rawURL against robots.txt. A disabled guard allows
// everything, and so does a host whose robots.txt cannot be fetched.
func (g *RobotsGuard) Allowed(ctx context.Context, rawURL string) (bool, error) {
	if !g.config.EnableRobotsCheck {
		return true, nil
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Host == "" {
		return false, fmt.Errorf("invalid URL: %q has no host", rawURL)
	}

	robotsData, err := g.robotsFor(ctx, parsedURL)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		g.logger.WithError(err).WithField("host", parsedURL.Host).Warn("Failed to get robots.txt, allowing request")
		return true, nil
	}
	if robotsData == nil {
		return true, nil
	}

	path := parsedURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robotsData.TestAgent(path, g.config.UserAgent), nil
}

// Purge drops cache entries older than the configured cache duration and
// returns how many were removed.
func (g *RobotsGuard) Purge() int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for host, entry := range g.cache {
		if now.Sub(entry.fetchTime) > g.config.RobotsCacheDuration {
			delete(g.cache, host)
			removed++
		}
	}
	if removed > 0 {
		g.logger.WithField("expired_robots", removed).Debug("Purged robots cache")
	}
	return removed
}

// robotsFor fetches and caches robots.txt for the URL's scheme and host
func (g *RobotsGuard) robotsFor(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	key := target.Scheme + "://" + target.Host

	g.mu.RLock()
	entry, exists := g.cache[key]
	g.mu.RUnlock()
	if exists && g.now().Sub(entry.fetchTime) < g.config.RobotsCacheDuration {
		return entry.robots, nil
	}

	robotsURL := (&url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/robots.txt"}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", g.config.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	// FromResponse maps 4xx to allow-all and 5xx to disallow-all
	robotsData, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		robotsData = nil
	}

	g.mu.Lock()
	g.cache[key] = &robotsEntry{robots: robotsData, fetchTime: g.now()}
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"host":   target.Host,
		"status": resp.StatusCode,
	}).Debug("Cached robots.txt")

	return robotsData, nil
}
