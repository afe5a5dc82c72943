package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/WorkingSea/booru.org-downloader/pkg/config"
)

// Account holds the cookies of one logged-in booru session
type Account struct {
	Name string `json:"name"`
	// Host is the booru the cookies were issued by, e.g. example.booru.org.
	// Empty means the account is not bound to a host.
	Host         string    `json:"host,omitempty"`
	CFClearance  string    `json:"cf_clearance"`
	UserID       string    `json:"user_id"`
	PassHash     string    `json:"pass_hash"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Apply copies the account cookies into a session config. Values already
// present in cfg win, so command-line flags override stored accounts.
func (a *Account) Apply(cfg *config.SessionConfig) {
	if cfg.CFClearance == "" {
		cfg.CFClearance = a.CFClearance
	}
	if cfg.UserID == "" {
		cfg.UserID = a.UserID
	}
	if cfg.PassHash == "" {
		cfg.PassHash = a.PassHash
	}
	if a.UserAgent != "" && (cfg.UserAgent == "" || cfg.UserAgent == config.DefaultUserAgent) {
		cfg.UserAgent = a.UserAgent
	}
}

// Use replaces the session cookies with the account's, whatever the config
// file or environment supplied
func (a *Account) Use(cfg *config.SessionConfig) {
	cfg.CFClearance = a.CFClearance
	cfg.UserID = a.UserID
	cfg.PassHash = a.PassHash
	if a.UserAgent != "" && (cfg.UserAgent == "" || cfg.UserAgent == config.DefaultUserAgent) {
		cfg.UserAgent = a.UserAgent
	}
}

// Validate checks that all three cookies are present
func (a *Account) Validate() error {
	var errs []error
	if a.Name == "" {
		errs = append(errs, errors.New("account name is required"))
	}
	if a.CFClearance == "" {
		errs = append(errs, errors.New("cf_clearance is required"))
	}
	if a.UserID == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	if a.PassHash == "" {
		errs = append(errs, errors.New("pass_hash is required"))
	}
	return errors.Join(errs...)
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a named account
	Retrieve(name string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a named account
	Delete(name string) error

	// Exists checks if credentials exist for a name
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keyring when
// available, an encrypted file, and finally the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(account *Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	account.Host = strings.ToLower(account.Host)
	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(name string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(name); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// ForHost picks credentials for a crawl of host: an account bound to that
// host first, then an unbound one. Environment credentials win over both.
func (m *Manager) ForHost(host string) (*Account, error) {
	host = strings.ToLower(host)

	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if account, err := env.Retrieve(""); err == nil {
				return account, nil
			}
		}
	}

	accounts, err := m.List()
	if err != nil {
		return nil, err
	}

	var unbound *Account
	for _, account := range accounts {
		switch account.Host {
		case host:
			return account, nil
		case "":
			if unbound == nil {
				unbound = account
			}
		}
	}
	if unbound != nil {
		return unbound, nil
	}

	return nil, fmt.Errorf("%w for host %s", ErrCredentialsNotFound, host)
}

// List returns all stored accounts from all stores, sorted by name
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			// Use the most recently modified version
			if existing, ok := byName[account.Name]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.Name] = account
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, account := range byName {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "boorudl")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "boorudl")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "boorudl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "boorudl")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAccount creates a copy of the account with the cookie values masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	masked := *account
	masked.CFClearance = maskString(account.CFClearance)
	masked.PassHash = maskString(account.PassHash)
	return &masked
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
