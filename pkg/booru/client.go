package booru

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/WorkingSea/booru.org-downloader/pkg/errors"
	"github.com/WorkingSea/booru.org-downloader/pkg/logger"
	"github.com/WorkingSea/booru.org-downloader/pkg/ratelimit"
)

// ListStatus distinguishes the outcomes of fetching a listing page
type ListStatus int

const (
	// ListFound means the page held at least one post
	ListFound ListStatus = iota
	// ListEmpty means the page held no posts: past the last page
	ListEmpty
	// ListForbidden means the server answered 403
	ListForbidden
)

func (s ListStatus) String() string {
	switch s {
	case ListFound:
		return "found"
	case ListEmpty:
		return "empty"
	case ListForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// ListResult is the outcome of ListPosts
type ListResult struct {
	Status ListStatus
	Posts  []string
}

// ImageStatus distinguishes the outcomes of resolving a post
type ImageStatus int

const (
	// ImageFound means the post page carried an image URL
	ImageFound ImageStatus = iota
	// ImageNotFound means the post page had no usable image element
	ImageNotFound
	// ImageUnavailable means the server answered 503 for the post
	ImageUnavailable
)

func (s ImageStatus) String() string {
	switch s {
	case ImageFound:
		return "found"
	case ImageNotFound:
		return "not_found"
	case ImageUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ImageResult is the outcome of ResolveImage
type ImageResult struct {
	Status ImageStatus
	URL    string
}

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	// HTTPClient overrides the underlying client. Timeout is ignored when set.
	HTTPClient *http.Client
	// Timeout bounds each request; zero means no client-side timeout
	Timeout       time.Duration
	ThumbSelector string
	ImageSelector string
	// Limiter caps requests per host; nil disables the cap
	Limiter ratelimit.Limiter
}

// Client fetches listing pages, post pages and images with a fixed Session
type Client struct {
	httpClient    *http.Client
	session       *Session
	limiter       ratelimit.Limiter
	thumbSelector string
	imageSelector string
	logger        logger.Logger
}

// NewClient creates a new booru client
func NewClient(session *Session, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	thumb := opts.ThumbSelector
	if thumb == "" {
		thumb = DefaultThumbSelector
	}
	image := opts.ImageSelector
	if image == "" {
		image = DefaultImageSelector
	}

	return &Client{
		httpClient:    httpClient,
		session:       session,
		limiter:       opts.Limiter,
		thumbSelector: thumb,
		imageSelector: image,
		logger:        log,
	}
}

// get performs a GET carrying the session cookies and headers. The caller
// owns the response body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, rawURL, "failed to create request", err)
	}
	c.session.Apply(req)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, req.URL.Host); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.Wrap(errors.ErrorTypeNetwork, rawURL, "request failed", err)
	}

	logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, duration)
	return resp, nil
}

// ListPosts fetches a listing page and returns its post URLs. A 403 is
// reported as ListForbidden; any other status of 400 or above is an error.
func (c *Client) ListPosts(ctx context.Context, pageURL string) (ListResult, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return ListResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		c.logger.WarnWithFields("listing page forbidden", map[string]interface{}{
			"url": pageURL,
		})
		return ListResult{Status: ListForbidden}, nil
	}
	if resp.StatusCode >= 400 {
		return ListResult{}, errors.FromStatus(resp.StatusCode, pageURL)
	}

	posts, err := ParseListing(decodeBody(resp.Body, resp.Header.Get("Content-Type")), resp.Request.URL, c.thumbSelector)
	if err != nil {
		return ListResult{}, errors.Wrap(errors.ErrorTypeParsing, pageURL, "failed to parse listing page", err)
	}

	c.logger.DebugWithFields("listing page parsed", map[string]interface{}{
		"url":   pageURL,
		"posts": len(posts),
	})

	if len(posts) == 0 {
		return ListResult{Status: ListEmpty}, nil
	}
	return ListResult{Status: ListFound, Posts: posts}, nil
}

// ResolveImage fetches a post page and returns its full-size image URL.
// A 503 is reported as ImageUnavailable; any other status of 400 or above
// is an error.
func (c *Client) ResolveImage(ctx context.Context, postURL string) (ImageResult, error) {
	resp, err := c.get(ctx, postURL)
	if err != nil {
		return ImageResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		c.logger.WarnWithFields("post page unavailable", map[string]interface{}{
			"url": postURL,
		})
		return ImageResult{Status: ImageUnavailable}, nil
	}
	if resp.StatusCode >= 400 {
		return ImageResult{}, errors.FromStatus(resp.StatusCode, postURL)
	}

	imageURL, ok, err := ParsePost(decodeBody(resp.Body, resp.Header.Get("Content-Type")), resp.Request.URL, c.imageSelector)
	if err != nil {
		return ImageResult{}, errors.Wrap(errors.ErrorTypeParsing, postURL, "failed to parse post page", err)
	}
	if !ok {
		c.logger.DebugWithFields("post page has no image", map[string]interface{}{
			"url": postURL,
		})
		return ImageResult{Status: ImageNotFound}, nil
	}

	return ImageResult{Status: ImageFound, URL: imageURL}, nil
}

// Open starts a streamed GET of an image. The caller must close the
// returned body.
func (c *Client) Open(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, errors.FromStatus(resp.StatusCode, imageURL)
	}
	return resp.Body, nil
}
