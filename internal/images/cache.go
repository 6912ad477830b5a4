// Package images keeps local copies of product images.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/glebk/pizza-bot/internal/commerce"
	"github.com/glebk/pizza-bot/internal/domain"
)

// FileSource resolves file metadata on the commerce backend
type FileSource interface {
	File(ctx context.Context, id string) (commerce.File, error)
}

// Cache downloads each image once into a directory and indexes it in a repository.
// Files are named <image-id><ext>, the extension taken from the download URL.
type Cache struct {
	dir        string
	files      FileSource
	repo       domain.ImageRepository
	httpClient *http.Client
	logger     *slog.Logger

	mu sync.Mutex
}

// Option configures the Cache
type Option func(*Cache)

// WithHTTPClient sets the client used for downloads
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Cache) {
		c.httpClient = hc
	}
}

// New creates a Cache storing files under dir
func New(dir string, files FileSource, repo domain.ImageRepository, logger *slog.Logger, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images dir: %w", err)
	}

	c := &Cache{
		dir:        dir,
		files:      files,
		repo:       repo,
		httpClient: http.DefaultClient,
		logger:     logger.With("component", "images"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Path returns the local file of an image, downloading it on first use
func (c *Cache) Path(ctx context.Context, imageID string) (string, error) {
	if p, ok := c.cached(imageID); ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.cached(imageID); ok {
		return p, nil
	}

	file, err := c.files.File(ctx, imageID)
	if err != nil {
		return "", fmt.Errorf("failed to get image metadata: %w", err)
	}
	if file.URL == "" {
		return "", fmt.Errorf("image %s has no download link", imageID)
	}

	ext, err := Extension(file.URL)
	if err != nil {
		return "", err
	}
	target := filepath.Join(c.dir, imageID+ext)

	if !exists(target) {
		if err := c.download(ctx, file.URL, target); err != nil {
			return "", err
		}
		c.logger.Debug("image downloaded", "image_id", imageID, "path", target)
	}

	if err := c.repo.Save(&domain.ProductImage{ImageID: imageID, Path: target, SourceURL: file.URL}); err != nil {
		return "", err
	}
	return target, nil
}

// cached reports an indexed image whose file is still on disk.
// Index entries pointing at a vanished file are dropped.
func (c *Cache) cached(imageID string) (string, bool) {
	record, err := c.repo.Get(imageID)
	if err != nil {
		c.logger.Warn("failed to read image index", "image_id", imageID, "error", err)
		return "", false
	}
	if record == nil {
		return "", false
	}
	if exists(record.Path) {
		return record.Path, true
	}
	if err := c.repo.Delete(imageID); err != nil {
		c.logger.Warn("failed to drop stale image entry", "image_id", imageID, "error", err)
	}
	return "", false
}

func (c *Cache) download(ctx context.Context, src, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return os.Rename(tmp.Name(), target)
}

// Extension returns the file extension of the path of rawURL, including the dot
func Extension(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}
	return path.Ext(u.Path), nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return !errors.Is(err, os.ErrNotExist) && err == nil
}
