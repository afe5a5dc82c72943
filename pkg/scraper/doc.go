// Package scraper drives a crawl of one booru search.
//
// A crawl walks listing pages in order (pid=0, 20, 40, ...) until a page
// holds no posts. Every post on a page is resolved to its image URL and the
// image is written to the save directory unless a file of that name is
// already there. A fixed delay follows each post. Everything runs on the
// calling goroutine.
//
// Soft conditions do not fail the crawl:
//   - a 403 listing page ends it (StopForbidden) unless strict auth is on
//   - a 503 post page skips that post
//   - a post without an image is skipped
//
// Any other HTTP error, network error or filesystem error aborts the crawl
// and is returned from Run together with the partial Summary.
//
// Usage:
//
//	s := scraper.New(cfg, ui.DefaultConsole(), logger.GetLogger())
//	summary, err := s.Run(ctx, "https://example.booru.org/index.php?page=post&s=list&tags=foo")
package scraper
