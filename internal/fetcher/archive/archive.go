// Package archive keeps a copy of every fetched page in a BlobStore, so extraction
// problems can be replayed against the exact HTML that was seen.
package archive

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

const contentType = "text/html; charset=utf-8"

// Config controls blob naming.
type Config struct {
	Prefix string
}

// Fetcher delegates to next and writes each successful page to blobs. Archive failures
// are logged and never fail the fetch.
type Fetcher struct {
	next   harvest.Fetcher
	blobs  harvest.BlobStore
	hasher harvest.Hasher
	cfg    Config
	logger *zap.Logger
}

// New wraps next.
func New(next harvest.Fetcher, blobs harvest.BlobStore, hasher harvest.Hasher, cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		next:   next,
		blobs:  blobs,
		hasher: hasher,
		cfg:    cfg,
		logger: logger,
	}
}

// Fetch implements harvest.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (harvest.Page, error) {
	page, err := f.next.Fetch(ctx, rawURL)
	if err != nil {
		return page, err
	}
	uri, err := f.store(ctx, rawURL, page)
	if err != nil {
		f.logger.Warn("archive page failed", zap.String("url", rawURL), zap.Error(err))
		return page, nil
	}
	f.logger.Debug("page archived", zap.String("url", rawURL), zap.String("blob_uri", uri))
	return page, nil
}

func (f *Fetcher) store(ctx context.Context, rawURL string, page harvest.Page) (string, error) {
	digest, err := f.hasher.Hash(page.Body)
	if err != nil {
		return "", fmt.Errorf("hash body: %w", err)
	}
	blobPath, err := BlobPath(f.cfg.Prefix, rawURL, digest)
	if err != nil {
		return "", err
	}
	uri, err := f.blobs.PutObject(ctx, blobPath, contentType, page.Body)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return uri, nil
}

// BlobPath names the archived copy of rawURL: prefix, the URL path without its
// extension, then the content digest.
func BlobPath(prefix, rawURL, digest string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	page := strings.Trim(u.Path, "/")
	page = strings.TrimSuffix(page, path.Ext(page))
	if page == "" {
		page = "index"
	}
	parts := []string{strings.Trim(prefix, "/"), u.Hostname(), page, digest + ".html"}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return path.Join(kept...), nil
}
