package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/WorkingSea/booru.org-downloader/pkg/config"
)

func testAccount(name, host string) *Account {
	return &Account{
		Name:        name,
		Host:        host,
		CFClearance: "cf_clearance_value_12345",
		UserID:      "4242",
		PassHash:    "0123456789abcdef0123456789abcdef",
	}
}

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := testAccount("main", "Example.Booru.org")
	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}

	retrieved, err := manager.Retrieve("main")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.PassHash != account.PassHash {
		t.Errorf("PassHash mismatch: got %s, want %s", retrieved.PassHash, account.PassHash)
	}
	if retrieved.Host != "example.booru.org" {
		t.Errorf("Host should be lowercased, got %s", retrieved.Host)
	}
	if retrieved.LastModified.IsZero() {
		t.Error("LastModified should be set on store")
	}

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected one account in list, got %d", len(accounts))
	}

	if err := manager.Delete("main"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("main"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestStoreRejectsIncompleteAccount(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := testAccount("broken", "")
	account.PassHash = ""

	err := manager.Store(account)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Error("Incomplete account should not be stored")
	}
}

func TestForHost(t *testing.T) {
	manager, _ := NewMockManager()
	for _, a := range []*Account{
		testAccount("generic", ""),
		testAccount("example", "example.booru.org"),
		testAccount("other", "other.booru.org"),
	} {
		if err := manager.Store(a); err != nil {
			t.Fatalf("Failed to store %s: %v", a.Name, err)
		}
	}

	tests := map[string]string{
		"example.booru.org": "example",
		"EXAMPLE.booru.org": "example",
		"other.booru.org":   "other",
		"third.booru.org":   "generic",
	}
	for host, want := range tests {
		account, err := manager.ForHost(host)
		if err != nil {
			t.Errorf("ForHost(%s) failed: %v", host, err)
			continue
		}
		if account.Name != want {
			t.Errorf("ForHost(%s) = %s, want %s", host, account.Name, want)
		}
	}

	bound, _ := NewMockManager()
	if err := bound.Store(testAccount("only", "example.booru.org")); err != nil {
		t.Fatal(err)
	}
	if _, err := bound.ForHost("other.booru.org"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestForHostPrefersEnvironment(t *testing.T) {
	t.Setenv("BOORUDL_CF_CLEARANCE", "env_cf")
	t.Setenv("BOORUDL_USER_ID", "7")
	t.Setenv("BOORUDL_PASS_HASH", "env_hash")

	mockStore := NewMockStore()
	if err := mockStore.Store(testAccount("example", "example.booru.org")); err != nil {
		t.Fatal(err)
	}
	manager := NewManagerWithStores(mockStore, NewEnvironmentStore())

	account, err := manager.ForHost("example.booru.org")
	if err != nil {
		t.Fatalf("ForHost failed: %v", err)
	}
	if account.PassHash != "env_hash" {
		t.Errorf("Expected environment credentials, got %s", account.Name)
	}
}

func TestAccountApply(t *testing.T) {
	account := testAccount("main", "")
	account.UserAgent = "StoredAgent/1.0"

	cfg := config.DefaultConfig().Session
	cfg.UserID = "from-flag"
	account.Apply(&cfg)

	if cfg.UserID != "from-flag" {
		t.Errorf("Flag value should win, got %s", cfg.UserID)
	}
	if cfg.CFClearance != account.CFClearance || cfg.PassHash != account.PassHash {
		t.Error("Missing cookies should come from the account")
	}
	if cfg.UserAgent != "StoredAgent/1.0" {
		t.Errorf("Stored user agent should replace the default, got %s", cfg.UserAgent)
	}
}

func TestAccountUse(t *testing.T) {
	account := testAccount("main", "")

	cfg := config.DefaultConfig().Session
	cfg.CFClearance = "stale"
	cfg.UserID = "stale"
	cfg.PassHash = "stale"
	account.Use(&cfg)

	if cfg.CFClearance != account.CFClearance || cfg.UserID != account.UserID || cfg.PassHash != account.PassHash {
		t.Errorf("Account cookies should replace existing ones, got %+v", cfg)
	}
	if cfg.UserAgent != config.DefaultUserAgent {
		t.Errorf("Account without user agent should keep the default, got %s", cfg.UserAgent)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("main", "")
	sanitized := SanitizeAccount(account)

	if sanitized.PassHash == account.PassHash || sanitized.CFClearance == account.CFClearance {
		t.Error("Cookie values should be masked")
	}
	if sanitized.Name != account.Name || sanitized.UserID != account.UserID {
		t.Error("Name and user ID should not be masked")
	}
	if maskString("short") != "********" {
		t.Error("Short values should be fully masked")
	}
	if SanitizeAccount(nil) != nil {
		t.Error("nil account should stay nil")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	account := testAccount("main", "example.booru.org")
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if err := store.Store(testAccount("second", "")); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read encrypted file: %v", err)
	}
	if bytes.Contains(content, []byte(account.PassHash)) {
		t.Error("pass_hash found in plaintext in encrypted file")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	// a fresh store with the same passphrase reads the file
	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	retrieved, err := reopened.Retrieve("main")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.PassHash != account.PassHash || retrieved.Host != account.Host {
		t.Error("Retrieved account does not match stored account")
	}

	accounts, err := reopened.List()
	if err != nil || len(accounts) != 2 {
		t.Errorf("Expected 2 accounts, got %d (%v)", len(accounts), err)
	}

	t.Setenv(PassphraseEnv, "wrong passphrase")
	wrong, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wrong.Retrieve("main"); err == nil {
		t.Error("Expected decryption to fail with the wrong passphrase")
	}

	if err := store.Delete("main"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := store.Delete("second"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Credentials file should be removed with the last account")
	}
	if store.Exists("main") {
		t.Error("Deleted account should not exist")
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv("BOORUDL_CF_CLEARANCE", "")
	if store.Exists("") {
		t.Error("Environment store should be empty without variables")
	}

	t.Setenv("BOORUDL_CF_CLEARANCE", "cf")
	t.Setenv("BOORUDL_USER_ID", "1")
	t.Setenv("BOORUDL_PASS_HASH", "hash")

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve environment account: %v", err)
	}
	if account.Name != "environment" || account.PassHash != "hash" {
		t.Errorf("Unexpected account: %+v", account)
	}
	if _, err := store.Retrieve("someone-else"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Error("Environment store should only answer to its own name")
	}
	if err := store.Store(account); !errors.Is(err, ErrStoreUnavailable) {
		t.Error("Environment store should be read-only")
	}
}

func TestMockStoreErrorInjection(t *testing.T) {
	mockStore := NewMockStore()
	mockStore.StoreError = errors.New("disk full")

	manager := NewManagerWithStores(mockStore)
	if err := manager.Store(testAccount("main", "")); err == nil {
		t.Error("Expected store error to propagate")
	}

	fallback := NewMockStore()
	manager = NewManagerWithStores(mockStore, fallback)
	if err := manager.Store(testAccount("main", "")); err != nil {
		t.Errorf("Expected fallback store to accept account: %v", err)
	}
	if !fallback.Exists("main") {
		t.Error("Account should land in the fallback store")
	}
}
