package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/WorkingSea/booru.org-downloader/pkg/auth"
	"github.com/WorkingSea/booru.org-downloader/pkg/config"
	"github.com/WorkingSea/booru.org-downloader/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage boorudl configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (BOORUDL_*)
  - .env files (./.env, ~/.boorudl.env)
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to .boorudl.yaml in the current directory unless
--config names another path.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration merged from all sources. Cookie values are masked.`,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

const exampleConfig = `# boorudl configuration file
#
# Every value can also be set with an environment variable, e.g.
# BOORUDL_CF_CLEARANCE, BOORUDL_USER_ID, BOORUDL_PASS_HASH, BOORUDL_DELAY

# Session cookies of a logged-in browser
session:
  cf_clearance: ""
  user_id: ""
  pass_hash: ""
  # Leave empty to use the built-in browser user agent
  user_agent: ""
  accept_language: "en-US,en;q=0.5"

crawl:
  # pid step between result pages
  posts_per_page: 20
  # Pause after each post
  delay: 1s
  thumb_selector: "span.thumb a"
  image_selector: "#image"
  # 0 means no per-request timeout
  request_timeout: 0s
  # Fail instead of stopping quietly when a result page answers 403
  strict_auth: false

output:
  # downloads_<host>_<tags> is created inside this directory
  base_directory: "."
  buffer_size: 8192

rate_limit:
  # 0 disables the cap; the delay above still applies
  requests_per_minute: 0
  burst_size: 1

logging:
  # debug, info, warn, error, disabled
  level: warn
  # Write logs to a file instead of stderr
  file: ""
  no_color: false
`

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".boorudl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	masked := auth.SanitizeAccount(&auth.Account{
		CFClearance: cfg.Session.CFClearance,
		PassHash:    cfg.Session.PassHash,
	})
	if cfg.Session.CFClearance != "" {
		cfg.Session.CFClearance = masked.CFClearance
	}
	if cfg.Session.PassHash != "" {
		cfg.Session.PassHash = masked.PassHash
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	ui.PrintSuccess("Configuration is valid")
	if err := cfg.ValidateSession(); err != nil {
		ui.PrintWarning("Session cookies incomplete", err)
		ui.PrintHint(cookieHint)
	}
	return nil
}
