package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent with every request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"

// Config holds all configuration options for the downloader
type Config struct {
	// Session cookies and request identity
	Session SessionConfig `yaml:"session" json:"session"`

	// Pagination and page markup
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Where and how images are written
	Output OutputConfig `yaml:"output" json:"output"`

	// Optional request cap on top of the politeness delay
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SessionConfig holds the cookie values and headers sent with every request.
// The cookie values are opaque and passed through verbatim.
type SessionConfig struct {
	CFClearance    string `yaml:"cf_clearance" json:"cf_clearance"`
	UserID         string `yaml:"user_id" json:"user_id"`
	PassHash       string `yaml:"pass_hash" json:"pass_hash"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	Accept         string `yaml:"accept" json:"accept"`
	AcceptLanguage string `yaml:"accept_language" json:"accept_language"`
}

// CrawlConfig holds pagination and extraction settings
type CrawlConfig struct {
	PostsPerPage   int           `yaml:"posts_per_page" json:"posts_per_page"`
	Delay          time.Duration `yaml:"delay" json:"delay"`
	ThumbSelector  string        `yaml:"thumb_selector" json:"thumb_selector"`
	ImageSelector  string        `yaml:"image_selector" json:"image_selector"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	// StrictAuth turns a forbidden listing page into a failed run
	StrictAuth bool `yaml:"strict_auth" json:"strict_auth"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	BufferSize    int    `yaml:"buffer_size" json:"buffer_size"`
}

// RateLimitConfig caps requests per host. Zero disables the cap.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			UserAgent:      DefaultUserAgent,
			Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			AcceptLanguage: "en-US,en;q=0.5",
		},
		Crawl: CrawlConfig{
			PostsPerPage:   20,
			Delay:          time.Second,
			ThumbSelector:  "span.thumb a",
			ImageSelector:  "#image",
			RequestTimeout: 0, // inherit: no client-side timeout
		},
		Output: OutputConfig{
			BaseDirectory: ".",
			BufferSize:    8192,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			BurstSize:         1,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("BOORUDL_CF_CLEARANCE"); v != "" {
		c.Session.CFClearance = v
	}
	if v := os.Getenv("BOORUDL_USER_ID"); v != "" {
		c.Session.UserID = v
	}
	if v := os.Getenv("BOORUDL_PASS_HASH"); v != "" {
		c.Session.PassHash = v
	}
	if v := os.Getenv("BOORUDL_USER_AGENT"); v != "" {
		c.Session.UserAgent = v
	}
	if v := os.Getenv("BOORUDL_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("BOORUDL_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid BOORUDL_DELAY %q: %w", v, err)
		}
		c.Crawl.Delay = d
	}
	if v := os.Getenv("BOORUDL_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BOORUDL_REQUESTS_PER_MINUTE %q: %w", v, err)
		}
		c.RateLimit.RequestsPerMinute = n
	}
	if v := os.Getenv("BOORUDL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. An empty path searches
// the default locations; finding nothing there is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".boorudl.yaml",
		".boorudl.yml",
		filepath.Join(home, ".config", "boorudl", "config.yaml"),
		filepath.Join(home, ".config", "boorudl", "config.yml"),
		filepath.Join(home, ".boorudl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks settings that do not depend on credentials
func (c *Config) Validate() error {
	var errs []error

	if c.Crawl.PostsPerPage <= 0 {
		errs = append(errs, errors.New("posts per page must be positive"))
	}
	if c.Crawl.Delay < 0 {
		errs = append(errs, errors.New("delay cannot be negative"))
	}
	if c.Crawl.RequestTimeout < 0 {
		errs = append(errs, errors.New("request timeout cannot be negative"))
	}
	if strings.TrimSpace(c.Crawl.ThumbSelector) == "" {
		errs = append(errs, errors.New("thumb selector is required"))
	}
	if strings.TrimSpace(c.Crawl.ImageSelector) == "" {
		errs = append(errs, errors.New("image selector is required"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.BufferSize <= 0 {
		errs = append(errs, errors.New("buffer size must be positive"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// ValidateSession checks the credential cookies needed for a crawl
func (c *Config) ValidateSession() error {
	var errs []error
	if c.Session.CFClearance == "" {
		errs = append(errs, errors.New("cf_clearance cookie is required"))
	}
	if c.Session.UserID == "" {
		errs = append(errs, errors.New("user_id cookie is required"))
	}
	if c.Session.PassHash == "" {
		errs = append(errs, errors.New("pass_hash cookie is required"))
	}
	return errors.Join(errs...)
}

// ValidateSearchURL checks that the search URL is absolute http(s)
func ValidateSearchURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid search URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("search URL must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("search URL has no host")
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["cf-clearance"].(string); ok && v != "" {
		c.Session.CFClearance = v
	}
	if v, ok := flags["user-id"].(string); ok && v != "" {
		c.Session.UserID = v
	}
	if v, ok := flags["pass-hash"].(string); ok && v != "" {
		c.Session.PassHash = v
	}
	if v, ok := flags["user-agent"].(string); ok && v != "" {
		c.Session.UserAgent = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["delay"].(time.Duration); ok && v >= 0 {
		c.Crawl.Delay = v
	}
	if v, ok := flags["per-page"].(int); ok && v > 0 {
		c.Crawl.PostsPerPage = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v >= 0 {
		c.Crawl.RequestTimeout = v
	}
	if v, ok := flags["strict-auth"].(bool); ok {
		c.Crawl.StrictAuth = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".boorudl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
