package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/WorkingSea/booru.org-downloader/pkg/errors"
)

// DefaultBufferSize is the chunk size used when copying image bodies
const DefaultBufferSize = 8192

// DirName derives the save directory name from a search URL:
// downloads_<host> with dots replaced by underscores, followed by
// _<tags> when the first tags query value is non-empty. Colons and spaces
// in the tags become underscores.
func DirName(searchURL string) (string, error) {
	u, err := url.Parse(searchURL)
	if err != nil {
		return "", fmt.Errorf("invalid search URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("search URL %q has no host", searchURL)
	}

	name := "downloads_" + strings.ReplaceAll(u.Host, ".", "_")

	if tags := u.Query()["tags"]; len(tags) > 0 && tags[0] != "" {
		name += "_" + strings.NewReplacer(":", "_", " ", "_").Replace(tags[0])
	}

	return name, nil
}

// FileName returns the final path segment of an image URL as it appears in
// the URL, still percent-encoded, with the query string stripped. Segments
// that cannot name a file are rejected.
func FileName(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid image URL: %w", err)
	}

	name := path.Base(u.EscapedPath())
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("image URL %q has no file name", imageURL)
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("image URL %q has an unsafe file name", imageURL)
	}

	return name, nil
}

// Manager owns the save directory of one crawl
type Manager struct {
	outputDir  string
	bufferSize int
}

// NewManager creates the save directory for searchURL under baseDir
func NewManager(baseDir, searchURL string, bufferSize int) (*Manager, error) {
	name, err := DirName(searchURL)
	if err != nil {
		return nil, err
	}
	if baseDir == "" {
		baseDir = "."
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	outputDir := filepath.Join(baseDir, name)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeIO, "", "failed to create output directory", err)
	}

	return &Manager{
		outputDir:  outputDir,
		bufferSize: bufferSize,
	}, nil
}

// Dir returns the save directory
func (m *Manager) Dir() string {
	return m.outputDir
}

// PathFor returns the destination path of an image URL
func (m *Manager) PathFor(imageURL string) (string, error) {
	name, err := FileName(imageURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.outputDir, name), nil
}

// Exists reports whether something already occupies dest
func (m *Manager) Exists(dest string) bool {
	_, err := os.Stat(dest)
	return err == nil
}

// Save streams r into dest through a temporary file that is renamed into
// place once fully written. On error no file is left at dest.
func (m *Manager) Save(r io.Reader, dest string) (int64, error) {
	tempFile := dest + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypeIO, "", "failed to create temporary file", err)
	}

	written, err := io.CopyBuffer(out, r, make([]byte, m.bufferSize))
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return 0, errors.Wrap(errors.ErrorTypeIO, "", "failed to save image data", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return 0, errors.Wrap(errors.ErrorTypeIO, "", "failed to close file", closeErr)
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return 0, errors.Wrap(errors.ErrorTypeIO, "", "failed to rename temporary file", err)
	}

	return written, nil
}
