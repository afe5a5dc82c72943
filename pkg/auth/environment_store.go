package auth

import (
	"os"
	"time"
)

const environmentAccount = "environment"

// EnvironmentStore reads the cookies from BOORUDL_CF_CLEARANCE,
// BOORUDL_USER_ID and BOORUDL_PASS_HASH. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. It answers to the name
// "environment" or the empty name.
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	if name == "" {
		name = environmentAccount
	}
	if name != environmentAccount || !e.Exists(name) {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Name:         name,
		CFClearance:  os.Getenv("BOORUDL_CF_CLEARANCE"),
		UserID:       os.Getenv("BOORUDL_USER_ID"),
		PassHash:     os.Getenv("BOORUDL_PASS_HASH"),
		UserAgent:    os.Getenv("BOORUDL_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("BOORUDL_CF_CLEARANCE") != "" &&
		os.Getenv("BOORUDL_USER_ID") != "" &&
		os.Getenv("BOORUDL_PASS_HASH") != ""
}
