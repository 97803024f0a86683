// Package acquire validates arXiv identifiers and turns them into document
// text, caching the downloaded PDFs on disk keyed by identifier.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/affiliation-engine/internal/httputil"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DefaultCacheDir is where PDFs and the manifest live when no cache
// directory is configured.
const DefaultCacheDir = ".arxiv_cache"

const defaultUserAgent = "affiliation-engine/0.1"

// Source fetches paper text for validated identifiers. A Source is safe
// for concurrent use; pipelines for distinct papers may share one.
type Source struct {
	client   *http.Client
	cfg      types.FetchConfig
	limiter  *rate.Limiter
	manifest *Manifest
	logger   *zap.Logger

	// decode turns PDF bytes into text and page count.
	decode func([]byte) (string, int, error)
}

// NewSource creates the cache directory and opens its manifest. A nil
// client falls back to one with cfg.Timeout; a nil logger discards logs.
func NewSource(client *http.Client, cfg types.FetchConfig, logger *zap.Logger) (*Source, error) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	manifest, err := OpenManifest(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.DownloadInterval > 0 {
		limit = rate.Every(cfg.DownloadInterval)
	}

	return &Source{
		client:   client,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		manifest: manifest,
		logger:   logger,
		decode:   decodePDF,
	}, nil
}

// Close releases the manifest.
func (s *Source) Close() error {
	return s.manifest.Close()
}

// CacheDir returns the directory holding cached PDFs.
func (s *Source) CacheDir() string {
	return s.cfg.CacheDir
}

// Manifest returns the cache manifest.
func (s *Source) Manifest() *Manifest {
	return s.manifest
}

// FetchText returns the full text and page count for id. A cached PDF is
// read from disk without touching the network; otherwise the PDF is
// downloaded, decoded, stored in the cache and recorded in the manifest.
// Only bytes that decode to a valid document are ever cached, and a cached
// file that no longer decodes is removed and downloaded again. Every
// failure wraps types.ErrFetch.
func (s *Source) FetchText(ctx context.Context, id types.PaperIdentifier) (types.Document, error) {
	path := CachePath(s.cfg.CacheDir, id)

	content, hit, err := s.readCached(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("%w: %s: %w", types.ErrFetch, id, err)
	}

	var doc types.Document
	if hit {
		doc, err = s.toDocument(id, content)
		if err != nil {
			s.logger.Warn("discarding unreadable cache file",
				zap.String("arxiv_id", id.Raw), zap.String("path", path), zap.Error(err))
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				return types.Document{}, fmt.Errorf("%w: %s: removing %s: %w", types.ErrFetch, id, path, rmErr)
			}
			hit = false
		}
	}

	sourceURL := ""
	if !hit {
		sourceURL = PDFURL(id)
		content, err = s.download(ctx, sourceURL)
		if err != nil {
			return types.Document{}, fmt.Errorf("%w: %s: %w", types.ErrFetch, id, err)
		}
		doc, err = s.toDocument(id, content)
		if err != nil {
			return types.Document{}, fmt.Errorf("%w: %s: %s: %w", types.ErrFetch, id, sourceURL, err)
		}
		if err := writeAtomic(path, content); err != nil {
			return types.Document{}, fmt.Errorf("%w: %s: %w", types.ErrFetch, id, err)
		}
	}

	entry := CacheEntry{
		ArxivID:   id.Raw,
		Path:      path,
		SourceURL: sourceURL,
		Size:      int64(len(content)),
		SHA256:    sha256Hex(content),
		PageCount: doc.PageCount,
		FetchedAt: time.Now(),
	}
	record := s.manifest.Ensure
	if !hit {
		record = s.manifest.Put
	}
	if err := record(ctx, entry); err != nil {
		// The PDF is on disk and decoded; a manifest hiccup does not
		// invalidate the document.
		s.logger.Warn("manifest update failed", zap.String("arxiv_id", id.Raw), zap.Error(err))
	}

	s.logger.Debug("document ready",
		zap.String("arxiv_id", id.Raw),
		zap.Bool("cache_hit", hit),
		zap.Int("pages", doc.PageCount),
		zap.Int("text_length", doc.TextLength()))
	return doc, nil
}

// toDocument decodes PDF bytes and checks the result has pages.
func (s *Source) toDocument(id types.PaperIdentifier, content []byte) (types.Document, error) {
	text, pages, err := s.decode(content)
	if err != nil {
		return types.Document{}, fmt.Errorf("decoding PDF: %w", err)
	}
	doc := types.Document{ID: id.Raw, Text: text, PageCount: pages}
	if err := doc.Validate(); err != nil {
		return types.Document{}, err
	}
	return doc, nil
}

// readCached returns the cached bytes at path. The boolean is false on a
// cache miss.
func (s *Source) readCached(path string) ([]byte, bool, error) {
	content, err := os.ReadFile(path)
	if err == nil {
		return content, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("reading cache %s: %w", path, err)
}

// download fetches url and returns the body. Any non-2xx status is fatal.
func (s *Source) download(ctx context.Context, url string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for download slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	s.logger.Info("downloading", zap.String("url", url))
	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0, s.logger)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return content, nil
}

// writeAtomic stores content at destPath through a temporary file in the
// same directory, so a concurrent reader never sees a partial PDF. Two
// concurrent downloads of the same paper write identical bytes and the
// last rename wins.
func writeAtomic(destPath string, content []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(content)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
