package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WorkingSea/booru.org-downloader/pkg/auth"
	"github.com/WorkingSea/booru.org-downloader/pkg/config"
	"github.com/WorkingSea/booru.org-downloader/pkg/logger"
)

const testSearchURL = "https://example.booru.org/index.php?page=post&s=list&tags=foo"

func storedAccounts(t *testing.T) *auth.Manager {
	t.Helper()
	manager, _ := auth.NewMockManager()
	require.NoError(t, manager.Store(&auth.Account{
		Name:        "main",
		Host:        "example.booru.org",
		CFClearance: "stored_cf",
		UserID:      "4242",
		PassHash:    "stored_hash",
	}))
	return manager
}

func staleConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Session.CFClearance = "old_cf"
	cfg.Session.UserID = "old_id"
	cfg.Session.PassHash = "old_hash"
	return cfg
}

func TestParseDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"1s":    time.Second,
		"500ms": 500 * time.Millisecond,
		"2":     2 * time.Second,
		"0.5":   500 * time.Millisecond,
		"0":     0,
	}
	for in, want := range tests {
		got, err := parseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"-1", "-2s", "soon"} {
		_, err := parseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestScrapeFlagsOnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addScrapeFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--pass-hash", "abc", "--delay", "2s", "--per-page", "40", "--strict-auth"}))

	flags, err := scrapeFlags(cmd)
	require.NoError(t, err)

	assert.Equal(t, "abc", flags["pass-hash"])
	assert.Equal(t, 2*time.Second, flags["delay"])
	assert.Equal(t, 40, flags["per-page"])
	assert.Equal(t, true, flags["strict-auth"])
	assert.NotContains(t, flags, "cf-clearance")
	assert.NotContains(t, flags, "timeout")
	assert.NotContains(t, flags, "rate-limit")
}

func TestScrapeFlagsRejectsBadValues(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addScrapeFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--delay", "whenever"}))

	_, err := scrapeFlags(cmd)
	assert.Error(t, err)
}

func TestIsKnownCommand(t *testing.T) {
	assert.True(t, isKnownCommand("scrape"))
	assert.True(t, isKnownCommand("auth"))
	assert.True(t, isKnownCommand("config"))
	assert.False(t, isKnownCommand("https://example.booru.org/index.php?page=post&s=list"))
}

func TestNamedAccountReplacesConfigCookies(t *testing.T) {
	cfg := staleConfig()
	flags := map[string]interface{}{"pass-hash": "flag_hash"}

	err := applyAccount(cfg, storedAccounts(t), "main", testSearchURL, flags, logger.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, "stored_cf", cfg.Session.CFClearance)
	assert.Equal(t, "4242", cfg.Session.UserID)
	assert.Equal(t, "flag_hash", cfg.Session.PassHash, "cookie flags still win over the account")
}

func TestNamedAccountMissing(t *testing.T) {
	cfg := staleConfig()

	err := applyAccount(cfg, storedAccounts(t), "other", testSearchURL, nil, logger.NewNopLogger())
	assert.Error(t, err)
	assert.Equal(t, "old_cf", cfg.Session.CFClearance)
}

func TestHostAccountFillsMissingCookies(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.UserID = "env_id"

	err := applyAccount(cfg, storedAccounts(t), "", testSearchURL, nil, logger.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, "stored_cf", cfg.Session.CFClearance)
	assert.Equal(t, "env_id", cfg.Session.UserID)
	assert.Equal(t, "stored_hash", cfg.Session.PassHash)
}

func TestColorEnabled(t *testing.T) {
	assert.True(t, colorEnabled(false, "", true))
	assert.False(t, colorEnabled(false, "", false), "piped output stays plain")
	assert.False(t, colorEnabled(true, "", true))
	assert.False(t, colorEnabled(false, "1", true))
}
