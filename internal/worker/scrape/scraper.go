// Package scrape implements the production Worker: it fetches a page,
// extracts image URLs from the HTML and downloads them into a per-job
// folder, emitting progress events along the way.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pixfetch/pixfetch/internal/worker"
)

// Config holds tunables for the scrape worker.
type Config struct {
	// DownloadsDir is the root directory job folders are created under.
	DownloadsDir string

	// HTTPTimeout bounds every single HTTP request made by the worker.
	HTTPTimeout time.Duration

	// MaxImages caps how many images a single job downloads.
	// If zero or negative, defaults to 200.
	MaxImages int

	// UserAgent is sent on every request.
	UserAgent string
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig(downloadsDir string) Config {
	return Config{
		DownloadsDir: downloadsDir,
		HTTPTimeout:  30 * time.Second,
		MaxImages:    200,
		UserAgent:    "pixfetch/1.0",
	}
}

// Factory creates scrape workers sharing one HTTP client.
type Factory struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewFactory creates a Factory.
func NewFactory(cfg Config, logger *slog.Logger) *Factory {
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 200
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return &Factory{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger.With("component", "scrape_worker"),
	}
}

// New implements worker.Factory.
func (f *Factory) New(jobID, pageURL, keyword string) worker.Worker {
	return &Scraper{
		jobID:   jobID,
		pageURL: pageURL,
		keyword: keyword,
		cfg:     f.cfg,
		client:  f.client,
		logger:  f.logger.With("job_id", jobID),
	}
}

// Scraper is a single-use Worker for one job.
type Scraper struct {
	jobID   string
	pageURL string
	keyword string
	cfg     Config
	client  *http.Client
	logger  *slog.Logger
}

var _ worker.Worker = (*Scraper)(nil)

// Run implements worker.Worker. It emits a terminal complete or error
// event as its last message and mirrors error events in its return value.
func (s *Scraper) Run(ctx context.Context, events chan<- worker.Event) error {
	started := time.Now()

	events <- worker.Event{Type: "start", URL: s.pageURL}

	imageURLs, err := s.collectImageURLs(ctx)
	if err != nil {
		events <- worker.Event{Type: worker.EventError, Message: err.Error()}
		return err
	}
	if len(imageURLs) > s.cfg.MaxImages {
		imageURLs = imageURLs[:s.cfg.MaxImages]
	}
	if len(imageURLs) == 0 {
		err := fmt.Errorf("no matching images found at %s", s.pageURL)
		events <- worker.Event{Type: worker.EventError, Message: err.Error()}
		return err
	}

	events <- worker.Event{Type: "found", Total: len(imageURLs)}

	folder := s.folderName()
	dir := filepath.Join(s.cfg.DownloadsDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		err = fmt.Errorf("failed to create job folder: %w", err)
		events <- worker.Event{Type: worker.EventError, Message: err.Error()}
		return err
	}

	saved := 0
	for i, imgURL := range imageURLs {
		if err := ctx.Err(); err != nil {
			events <- worker.Event{Type: worker.EventError, Message: "scrape cancelled"}
			return err
		}

		events <- worker.Event{
			Type:    "downloading",
			URL:     imgURL,
			Current: i + 1,
			Total:   len(imageURLs),
		}

		if err := s.downloadImage(ctx, imgURL, dir, i); err != nil {
			// A single failed image is progress, not a job failure.
			s.logger.Debug("image download failed", "url", imgURL, "error", err)
			continue
		}
		saved++
		events <- worker.Event{
			Type:    "downloaded",
			Current: saved,
			Total:   len(imageURLs),
		}
	}

	events <- worker.Event{
		Type:     worker.EventComplete,
		Total:    saved,
		Folder:   folder,
		Duration: time.Since(started).Seconds(),
	}
	return nil
}

// collectImageURLs fetches the page and extracts candidate image URLs,
// filtered by the job keyword when one is set.
func (s *Scraper) collectImageURLs(ctx context.Context) ([]string, error) {
	base, err := url.Parse(s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching page", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	seen := make(map[string]struct{})
	var urls []string
	keyword := strings.ToLower(s.keyword)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			var candidate string
			switch n.Data {
			case "img":
				candidate = attrValue(n, "src")
			case "a":
				if href := attrValue(n, "href"); hasImageExt(href) {
					candidate = href
				}
			}
			if candidate != "" {
				if abs := resolveURL(base, candidate); abs != "" {
					if keyword == "" || strings.Contains(strings.ToLower(abs), keyword) {
						if _, dup := seen[abs]; !dup {
							seen[abs] = struct{}{}
							urls = append(urls, abs)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return urls, nil
}

// downloadImage fetches one image and writes it under dir. The filename
// keeps the remote name where possible, prefixed with the index to avoid
// collisions.
func (s *Scraper) downloadImage(ctx context.Context, imgURL, dir string, index int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d downloading image", resp.StatusCode)
	}

	name := remoteFilename(imgURL)
	if name == "" {
		name = "image.jpg"
	}
	dst := filepath.Join(dir, fmt.Sprintf("%04d_%s", index+1, name))

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

// folderName derives a filesystem-safe folder name for the job from the
// page host, the keyword and the start time.
func (s *Scraper) folderName() string {
	host := "page"
	if u, err := url.Parse(s.pageURL); err == nil && u.Host != "" {
		host = u.Host
	}
	parts := []string{host}
	if s.keyword != "" {
		parts = append(parts, s.keyword)
	}
	parts = append(parts, time.Now().UTC().Format("20060102-150405"))
	return sanitizeFolder(strings.Join(parts, "_"))
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

func hasImageExt(rawURL string) bool {
	trimmed := rawURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	lower := strings.ToLower(trimmed)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func resolveURL(base *url.URL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func remoteFilename(imgURL string) string {
	u, err := url.Parse(imgURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return sanitizeFolder(name)
}

func sanitizeFolder(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
