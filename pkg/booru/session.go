package booru

import (
	"net/http"
	"strings"

	"github.com/WorkingSea/booru.org-downloader/pkg/config"
)

// Cookie names sent with every request
const (
	CookieCFClearance = "cf_clearance"
	CookieUserID      = "user_id"
	CookiePassHash    = "pass_hash"
)

// Session is the immutable set of cookies and headers attached to every
// request of a crawl
type Session struct {
	cookies []*http.Cookie
	headers http.Header
}

// NewSession builds a session from the configured credentials. The search
// URL becomes the Referer of every request.
func NewSession(cfg config.SessionConfig, referer string) *Session {
	headers := make(http.Header)
	setIfNotEmpty(headers, "User-Agent", cfg.UserAgent)
	setIfNotEmpty(headers, "Accept", cfg.Accept)
	setIfNotEmpty(headers, "Accept-Language", cfg.AcceptLanguage)
	setIfNotEmpty(headers, "Referer", referer)

	return &Session{
		cookies: []*http.Cookie{
			{Name: CookieCFClearance, Value: cfg.CFClearance},
			{Name: CookieUserID, Value: cfg.UserID},
			{Name: CookiePassHash, Value: cfg.PassHash},
		},
		headers: headers,
	}
}

func setIfNotEmpty(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// Apply copies the session cookies and headers onto req
func (s *Session) Apply(req *http.Request) {
	for key, values := range s.headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	// AddCookie would quote values containing spaces or commas; the
	// cookie values must reach the server verbatim
	pairs := make([]string, 0, len(s.cookies))
	for _, c := range s.cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	req.Header.Set("Cookie", strings.Join(pairs, "; "))
}
