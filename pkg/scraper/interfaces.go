package scraper

import (
	"context"

	"github.com/WorkingSea/booru.org-downloader/internal/downloader"
	"github.com/WorkingSea/booru.org-downloader/pkg/booru"
)

// PostSource lists posts and resolves them to image URLs
type PostSource interface {
	ListPosts(ctx context.Context, pageURL string) (booru.ListResult, error)
	ResolveImage(ctx context.Context, postURL string) (booru.ImageResult, error)
}

// ImageFetcher writes a single image to disk
type ImageFetcher interface {
	Fetch(ctx context.Context, url, dest string) (downloader.Result, error)
}

// Pacer spaces out consecutive posts
type Pacer interface {
	Wait(ctx context.Context) error
}
