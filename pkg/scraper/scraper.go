package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/WorkingSea/booru.org-downloader/internal/downloader"
	"github.com/WorkingSea/booru.org-downloader/pkg/booru"
	"github.com/WorkingSea/booru.org-downloader/pkg/config"
	"github.com/WorkingSea/booru.org-downloader/pkg/errors"
	"github.com/WorkingSea/booru.org-downloader/pkg/logger"
	"github.com/WorkingSea/booru.org-downloader/pkg/ratelimit"
	"github.com/WorkingSea/booru.org-downloader/pkg/storage"
	"github.com/WorkingSea/booru.org-downloader/pkg/ui"
)

// StopReason records why a crawl ended
type StopReason string

const (
	StopEndOfResults StopReason = "end of results"
	StopForbidden    StopReason = "forbidden"
	StopInterrupted  StopReason = "interrupted"
	StopFailed       StopReason = "failed"
)

// Summary describes a finished crawl
type Summary struct {
	Dir         string
	Pages       int
	Posts       int
	Attempts    int // downloaded + skipped; the [progress] total
	Downloaded  int
	Skipped     int
	NoImage     int
	Unavailable int
	Bytes       int64
	StopReason  StopReason
	Duration    time.Duration
}

// Report converts the summary for display
func (s *Summary) Report() ui.Summary {
	return ui.Summary{
		Pages:       s.Pages,
		Posts:       s.Posts,
		Attempts:    s.Attempts,
		Downloaded:  s.Downloaded,
		Skipped:     s.Skipped,
		NoImage:     s.NoImage,
		Unavailable: s.Unavailable,
		Bytes:       s.Bytes,
		StopReason:  string(s.StopReason),
		Elapsed:     s.Duration,
	}
}

// Scraper orchestrates a crawl of one search: pages, then posts, then images
type Scraper struct {
	config  *config.Config
	console *ui.Console
	limiter *ratelimit.HostLimiter
	pacer   Pacer
	logger  logger.Logger
}

// New creates a new Scraper instance
func New(cfg *config.Config, console *ui.Console, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if console == nil {
		console = ui.DefaultConsole()
	}

	return &Scraper{
		config:  cfg,
		console: console,
		limiter: ratelimit.NewHostLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		pacer:   ratelimit.NewPacer(cfg.Crawl.Delay),
		logger:  log,
	}
}

// Run downloads every image reachable from searchURL. The returned summary
// is non-nil whenever the save directory was created, including on error.
func (s *Scraper) Run(ctx context.Context, searchURL string) (*Summary, error) {
	store, err := storage.NewManager(s.config.Output.BaseDirectory, searchURL, s.config.Output.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	opts := booru.Options{
		Timeout:       s.config.Crawl.RequestTimeout,
		ThumbSelector: s.config.Crawl.ThumbSelector,
		ImageSelector: s.config.Crawl.ImageSelector,
	}
	if s.limiter != nil {
		opts.Limiter = s.limiter
	}
	client := booru.NewClient(booru.NewSession(s.config.Session, searchURL), opts, s.logger)
	fetcher := downloader.NewFetcher(client, store, s.logger)

	return s.crawl(ctx, searchURL, client, fetcher, store)
}

func (s *Scraper) crawl(ctx context.Context, searchURL string, source PostSource, fetcher ImageFetcher, store *storage.Manager) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Dir: store.Dir()}
	defer func() {
		summary.Duration = time.Since(start)
	}()

	s.console.Dir(store.Dir())
	s.logger.InfoWithFields("Starting crawl", map[string]interface{}{
		"search_url": searchURL,
		"dir":        store.Dir(),
		"delay":      s.config.Crawl.Delay.String(),
	})

	for page := 0; ; page++ {
		pageURL := booru.PageURL(searchURL, page, s.config.Crawl.PostsPerPage)
		s.console.Page(pageURL)

		listing, err := source.ListPosts(ctx, pageURL)
		if err != nil {
			return summary, s.fail(ctx, summary, fmt.Errorf("failed to list page %d: %w", page, err))
		}
		summary.Pages++

		switch listing.Status {
		case booru.ListForbidden:
			s.console.Error("403 Forbidden - your cookies may have expired")
			summary.StopReason = StopForbidden
			if s.config.Crawl.StrictAuth {
				return summary, errors.ErrForbidden
			}
			return summary, nil
		case booru.ListEmpty:
			s.console.Done()
			summary.StopReason = StopEndOfResults
			return summary, nil
		}

		for _, postURL := range listing.Posts {
			summary.Posts++
			if err := s.processPost(ctx, postURL, source, fetcher, store, summary); err != nil {
				return summary, s.fail(ctx, summary, err)
			}

			if err := s.pacer.Wait(ctx); err != nil {
				return summary, s.fail(ctx, summary, err)
			}
		}
	}
}

// processPost resolves one post and fetches its image
func (s *Scraper) processPost(ctx context.Context, postURL string, source PostSource, fetcher ImageFetcher, store *storage.Manager, summary *Summary) error {
	image, err := source.ResolveImage(ctx, postURL)
	if err != nil {
		return fmt.Errorf("failed to resolve post: %w", err)
	}

	switch image.Status {
	case booru.ImageUnavailable:
		s.console.Warn("503 Service Unavailable for %s, skipping...", postURL)
		summary.Unavailable++
		return nil
	case booru.ImageNotFound:
		s.logger.DebugWithFields("No image on post", map[string]interface{}{
			"post_url": postURL,
		})
		summary.NoImage++
		return nil
	}

	dest, err := store.PathFor(image.URL)
	if err != nil {
		s.console.Warn("no usable file name in %s, skipping...", image.URL)
		summary.NoImage++
		return nil
	}

	result, err := fetcher.Fetch(ctx, image.URL, dest)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", image.URL, err)
	}

	switch result.Outcome {
	case downloader.OutcomeSkipped:
		s.console.Skip(dest)
		summary.Skipped++
	default:
		s.console.OK(dest)
		summary.Downloaded++
		summary.Bytes += result.Size
	}

	summary.Attempts++
	s.console.Progress(summary.Attempts)
	return nil
}

func (s *Scraper) fail(ctx context.Context, summary *Summary, err error) error {
	if ctx.Err() != nil {
		summary.StopReason = StopInterrupted
		s.logger.Warn("Crawl interrupted")
		return ctx.Err()
	}
	summary.StopReason = StopFailed
	s.logger.WithError(err).Error("Crawl failed")
	return err
}
