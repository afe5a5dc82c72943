package booru

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default selectors for the stock booru theme
const (
	DefaultThumbSelector = "span.thumb a"
	DefaultImageSelector = "#image"
)

// ParseListing extracts post URLs from a listing page in document order.
// Anchors without an href, or with one that does not parse, are skipped.
func ParseListing(r io.Reader, base *url.URL, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	if selector == "" {
		selector = DefaultThumbSelector
	}

	var posts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs, ok := resolve(base, href)
		if !ok {
			return
		}
		posts = append(posts, abs)
	})

	return posts, nil
}

// ParsePost extracts the image URL from a post page. The second return value
// is false when the page has no image element or its src is empty.
func ParsePost(r io.Reader, base *url.URL, selector string) (string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", false, err
	}
	if selector == "" {
		selector = DefaultImageSelector
	}

	src, ok := doc.Find(selector).First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return "", false, nil
	}

	abs, ok := resolve(base, src)
	if !ok {
		return "", false, nil
	}
	return abs, true, nil
}

func resolve(base *url.URL, ref string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	if base == nil {
		return u.String(), u.IsAbs()
	}
	return base.ResolveReference(u).String(), true
}

// PageURL returns the listing URL for a zero-based page index
func PageURL(searchURL string, page, perPage int) string {
	sep := "&"
	if !strings.Contains(searchURL, "?") {
		sep = "?"
	}
	return searchURL + sep + "pid=" + strconv.Itoa(page*perPage)
}
