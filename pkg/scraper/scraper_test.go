package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WorkingSea/booru.org-downloader/internal/downloader"
	"github.com/WorkingSea/booru.org-downloader/pkg/booru"
	"github.com/WorkingSea/booru.org-downloader/pkg/config"
	"github.com/WorkingSea/booru.org-downloader/pkg/errors"
	"github.com/WorkingSea/booru.org-downloader/pkg/logger"
	"github.com/WorkingSea/booru.org-downloader/pkg/storage"
	"github.com/WorkingSea/booru.org-downloader/pkg/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchURL = "https://example.booru.org/index.php?page=post&s=list&tags=foo_bar"

// mockBooruServer serves listing pages keyed by pid, post pages keyed by id
// and image bodies keyed by file name
type mockBooruServer struct {
	server *httptest.Server

	mu        sync.Mutex
	pages     map[string][]string // pid -> post ids
	posts     map[string]string   // id -> image path, "" for no image
	postCodes map[string]int      // id -> forced status
	listCode  int
	imageCode int

	listCalls  int32
	postCalls  int32
	imageCalls int32
	cookies    []string
}

func newMockBooruServer(t *testing.T) *mockBooruServer {
	m := &mockBooruServer{
		pages:     map[string][]string{},
		posts:     map[string]string{},
		postCodes: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/index.php", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if c, err := r.Cookie("pass_hash"); err == nil {
			m.cookies = append(m.cookies, c.Value)
		}

		q := r.URL.Query()
		switch q.Get("s") {
		case "list":
			atomic.AddInt32(&m.listCalls, 1)
			if m.listCode != 0 {
				w.WriteHeader(m.listCode)
				return
			}
			fmt.Fprint(w, "<html><body>")
			for _, id := range m.pages[q.Get("pid")] {
				fmt.Fprintf(w, `<span class="thumb"><a href="index.php?page=post&amp;s=view&amp;id=%s">%s</a></span>`, id, id)
			}
			fmt.Fprint(w, "</body></html>")
		case "view":
			atomic.AddInt32(&m.postCalls, 1)
			id := q.Get("id")
			if code := m.postCodes[id]; code != 0 {
				w.WriteHeader(code)
				return
			}
			if img := m.posts[id]; img != "" {
				fmt.Fprintf(w, `<html><body><img id="image" src="%s"></body></html>`, img)
				return
			}
			fmt.Fprint(w, `<html><body><p>This post was deleted.</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/images/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.imageCalls, 1)
		if m.imageCode != 0 {
			w.WriteHeader(m.imageCode)
			return
		}
		fmt.Fprintf(w, "image data for %s", r.URL.Path)
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

// rewriteTransport sends every request to the mock server, keeping path and
// query, so crawls can use the real booru host name
type rewriteTransport struct {
	target *url.URL
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	resp, err := http.DefaultTransport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Session.CFClearance = "cf"
	cfg.Session.UserID = "1"
	cfg.Session.PassHash = "hash"
	cfg.Crawl.Delay = 0
	cfg.Output.BaseDirectory = t.TempDir()
	return cfg
}

type harness struct {
	scraper *Scraper
	out     *bytes.Buffer
	log     *logger.TestLogger
	store   *storage.Manager
	source  PostSource
	fetcher ImageFetcher
}

func newHarness(t *testing.T, m *mockBooruServer, cfg *config.Config) *harness {
	t.Helper()
	ui.SetColor(false)
	t.Cleanup(func() { ui.SetColor(true) })

	target, err := url.Parse(m.server.URL)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	log := logger.NewTestLogger()

	store, err := storage.NewManager(cfg.Output.BaseDirectory, searchURL, cfg.Output.BufferSize)
	require.NoError(t, err)

	client := booru.NewClient(booru.NewSession(cfg.Session, searchURL), booru.Options{
		HTTPClient: &http.Client{Transport: &rewriteTransport{target: target}},
	}, log)

	return &harness{
		scraper: New(cfg, ui.NewConsole(out, false), log),
		out:     out,
		log:     log,
		store:   store,
		source:  client,
		fetcher: downloader.NewFetcher(client, store, log),
	}
}

func (h *harness) run(ctx context.Context) (*Summary, error) {
	return h.scraper.crawl(ctx, searchURL, h.source, h.fetcher, h.store)
}

func TestCrawlEndToEnd(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1", "2"}
	m.pages["20"] = []string{"2"}
	m.posts["1"] = "/images/1/img1.jpg?123"

	cfg := testConfig(t)
	h := newHarness(t, m, cfg)

	summary, err := h.run(context.Background())
	require.NoError(t, err)

	expectedDir := filepath.Join(cfg.Output.BaseDirectory, "downloads_example_booru_org_foo_bar")
	assert.Equal(t, expectedDir, summary.Dir)

	entries, err := os.ReadDir(expectedDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "img1.jpg", entries[0].Name())

	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 3, summary.Posts)
	assert.Equal(t, 1, summary.Attempts)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 2, summary.NoImage)
	assert.Equal(t, StopEndOfResults, summary.StopReason)
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.imageCalls))

	out := h.out.String()
	assert.Contains(t, out, "[dir] Saving images to: "+expectedDir)
	assert.Contains(t, out, "[page] "+searchURL+"&pid=0")
	assert.Contains(t, out, "[page] "+searchURL+"&pid=40")
	assert.Contains(t, out, "[ok] "+filepath.Join(expectedDir, "img1.jpg"))
	assert.Contains(t, out, "[progress] Downloaded 1 images")
	assert.Contains(t, out, "No more posts, done.")

	for _, v := range m.cookies {
		assert.Equal(t, "hash", v)
	}
}

func TestCrawlIsIdempotent(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1", "2"}
	m.posts["1"] = "/images/img1.jpg"
	m.posts["2"] = "/images/img2.jpg"

	cfg := testConfig(t)

	first, err := newHarness(t, m, cfg).run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Downloaded)
	require.Equal(t, int32(2), atomic.LoadInt32(&m.imageCalls))

	h := newHarness(t, m, cfg)
	second, err := h.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&m.imageCalls), "second crawl must not request images")
	assert.Equal(t, 0, second.Downloaded)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 2, second.Attempts)
	assert.Contains(t, h.out.String(), "[skip] "+filepath.Join(second.Dir, "img1.jpg"))
	assert.Contains(t, h.out.String(), "[progress] Downloaded 2 images")
}

func TestCrawlSkipsUnavailablePost(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1", "2", "3"}
	m.posts["1"] = "/images/img1.jpg"
	m.posts["3"] = "/images/img3.jpg"
	m.postCodes["2"] = http.StatusServiceUnavailable

	h := newHarness(t, m, testConfig(t))
	summary, err := h.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 1, summary.Unavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&m.postCalls))
	assert.Contains(t, h.out.String(), "[warn] 503 Service Unavailable for https://example.booru.org/index.php?page=post&s=view&id=2, skipping...")
}

// recordingPacer notes how many post pages had been requested at each wait
type recordingPacer struct {
	m     *mockBooruServer
	waits []int32
}

func (p *recordingPacer) Wait(ctx context.Context) error {
	p.waits = append(p.waits, atomic.LoadInt32(&p.m.postCalls))
	return ctx.Err()
}

func TestCrawlPacesEveryPost(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1", "2", "3", "4"}
	m.posts["1"] = "/images/img1.jpg"
	m.postCodes["2"] = http.StatusServiceUnavailable
	m.posts["4"] = "/images/img4.jpg"

	cfg := testConfig(t)
	h := newHarness(t, m, cfg)
	require.NoError(t, os.WriteFile(filepath.Join(h.store.Dir(), "img4.jpg"), []byte("old"), 0644))

	pacer := &recordingPacer{m: m}
	h.scraper.pacer = pacer

	summary, err := h.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, summary.Unavailable)
	assert.Equal(t, 1, summary.NoImage)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []int32{1, 2, 3, 4}, pacer.waits, "one wait after each post, whatever its outcome")
}

func TestCrawlDelayIsApplied(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1", "2"}
	m.postCodes["1"] = http.StatusServiceUnavailable

	cfg := testConfig(t)
	cfg.Crawl.Delay = 50 * time.Millisecond

	start := time.Now()
	_, err := newHarness(t, m, cfg).run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestCrawlForbidden(t *testing.T) {
	m := newMockBooruServer(t)
	m.listCode = http.StatusForbidden

	h := newHarness(t, m, testConfig(t))
	summary, err := h.run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopForbidden, summary.StopReason)
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.listCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&m.postCalls))
	assert.Contains(t, h.out.String(), "[error] 403 Forbidden - your cookies may have expired")
	assert.NotContains(t, h.out.String(), "No more posts, done.")
}

func TestCrawlForbiddenStrict(t *testing.T) {
	m := newMockBooruServer(t)
	m.listCode = http.StatusForbidden

	cfg := testConfig(t)
	cfg.Crawl.StrictAuth = true

	summary, err := newHarness(t, m, cfg).run(context.Background())
	assert.ErrorIs(t, err, errors.ErrForbidden)
	assert.Equal(t, StopForbidden, summary.StopReason)
}

func TestCrawlHardFailure(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1", "2"}
	m.posts["2"] = "/images/img2.jpg"
	m.postCodes["1"] = http.StatusInternalServerError

	h := newHarness(t, m, testConfig(t))
	summary, err := h.run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.IsStatus(err, http.StatusInternalServerError))
	assert.Equal(t, StopFailed, summary.StopReason)
	assert.Equal(t, int32(0), atomic.LoadInt32(&m.imageCalls))
	assert.Len(t, h.log.GetMessagesByLevel("ERROR"), 1)
}

func TestCrawlImageFailureLoggedOnce(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1"}
	m.posts["1"] = "/images/img1.jpg"
	m.imageCode = http.StatusServiceUnavailable

	h := newHarness(t, m, testConfig(t))
	summary, err := h.run(context.Background())
	require.Error(t, err)

	assert.True(t, errors.IsStatus(err, http.StatusServiceUnavailable))
	assert.Equal(t, StopFailed, summary.StopReason)
	assert.NoFileExists(t, filepath.Join(summary.Dir, "img1.jpg"))

	failures := h.log.GetMessagesByLevel("ERROR")
	require.Len(t, failures, 1)
	assert.Equal(t, "Crawl failed", failures[0].Message)
}

func TestCrawlInterrupted(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newHarness(t, m, testConfig(t)).run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopInterrupted, summary.StopReason)
}

func TestRunAgainstServer(t *testing.T) {
	m := newMockBooruServer(t)
	m.pages["0"] = []string{"1"}
	m.posts["1"] = "/images/img1.jpg"

	cfg := testConfig(t)
	cfg.RateLimit.RequestsPerMinute = 6000
	cfg.RateLimit.BurstSize = 10

	out := &bytes.Buffer{}
	s := New(cfg, ui.NewConsole(out, false), logger.NewNopLogger())

	search := m.server.URL + "/index.php?page=post&s=list&tags=rating:safe"
	summary, err := s.Run(context.Background(), search)
	require.NoError(t, err)

	dir, err := storage.DirName(search)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.BaseDirectory, dir), summary.Dir)
	assert.FileExists(t, filepath.Join(summary.Dir, "img1.jpg"))
	assert.Equal(t, 1, summary.Attempts)

	report := summary.Report()
	assert.Equal(t, "end of results", report.StopReason)
	assert.Equal(t, summary.Bytes, report.Bytes)
}
