package downloader

import (
	"context"
	"io"
	"time"

	"github.com/WorkingSea/booru.org-downloader/pkg/logger"
)

// Outcome tells whether a fetch wrote a new file
type Outcome int

const (
	// OutcomeDownloaded means the image was fetched and written
	OutcomeDownloaded Outcome = iota
	// OutcomeSkipped means the destination already existed; nothing was requested
	OutcomeSkipped
)

func (o Outcome) String() string {
	if o == OutcomeSkipped {
		return "skipped"
	}
	return "downloaded"
}

// Result represents the result of a single fetch
type Result struct {
	Outcome  Outcome
	Path     string
	Size     int64
	Duration time.Duration
}

// ImageOpener opens a streamed image body
type ImageOpener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// ImageStorage writes image bodies to disk
type ImageStorage interface {
	Exists(dest string) bool
	Save(r io.Reader, dest string) (int64, error)
}

// Fetcher downloads one image at a time, skipping files already on disk
type Fetcher struct {
	client  ImageOpener
	storage ImageStorage
	logger  logger.Logger
}

// NewFetcher creates a new image fetcher
func NewFetcher(client ImageOpener, storage ImageStorage, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client:  client,
		storage: storage,
		logger:  log,
	}
}

// Fetch writes the image at url to dest. An existing dest is left untouched
// and no request is made.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (Result, error) {
	if f.storage.Exists(dest) {
		logger.LogDownload(f.logger, url, dest, false, 0, nil)
		return Result{Outcome: OutcomeSkipped, Path: dest}, nil
	}

	start := time.Now()

	body, err := f.client.Open(ctx, url)
	if err != nil {
		logger.LogDownload(f.logger, url, dest, false, 0, err)
		return Result{}, err
	}
	defer body.Close()

	size, err := f.storage.Save(body, dest)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		logger.LogDownload(f.logger, url, dest, false, 0, err)
		return Result{}, err
	}

	result := Result{
		Outcome:  OutcomeDownloaded,
		Path:     dest,
		Size:     size,
		Duration: time.Since(start),
	}
	logger.LogDownload(f.logger, url, dest, true, size, nil)

	return result, nil
}
