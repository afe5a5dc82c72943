package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Console prints the tagged progress lines an operator follows during a
// crawl. Tags: [dir] [page] [skip] [ok] [progress] [warn] [error].
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
}

// NewConsole creates a Console writing to out. Quiet consoles only print
// [warn] and [error] lines.
func NewConsole(out io.Writer, quiet bool) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, quiet: quiet}
}

// DefaultConsole writes to stdout honoring the global quiet flag
func DefaultConsole() *Console {
	return NewConsole(os.Stdout, IsQuietMode())
}

func (c *Console) printf(always bool, format string, args ...interface{}) {
	if c.quiet && !always {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Dir announces the save directory
func (c *Console) Dir(dir string) {
	c.printf(false, "%s Saving images to: %s\n", Cyan("[dir]"), dir)
}

// Page announces a listing page request
func (c *Console) Page(pageURL string) {
	c.printf(false, "\n%s %s\n", Magenta("[page]"), pageURL)
}

// Skip reports an image that already exists on disk
func (c *Console) Skip(path string) {
	c.printf(false, "%s %s\n", Dim("[skip]"), path)
}

// OK reports a completed download
func (c *Console) OK(path string) {
	c.printf(false, "%s %s\n", Green("[ok]"), path)
}

// Progress reports the running total
func (c *Console) Progress(total int) {
	c.printf(false, "%s Downloaded %d images\n", Cyan("[progress]"), total)
}

// Warn reports a recoverable problem
func (c *Console) Warn(format string, args ...interface{}) {
	c.printf(true, "%s %s\n", Yellow("[warn]"), fmt.Sprintf(format, args...))
}

// Error reports a problem that stops the crawl
func (c *Console) Error(format string, args ...interface{}) {
	c.printf(true, "%s %s\n", Red("[error]"), fmt.Sprintf(format, args...))
}

// Done announces the end of results
func (c *Console) Done() {
	c.printf(false, "No more posts, done.\n")
}
