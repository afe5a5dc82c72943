package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WorkingSea/booru.org-downloader/pkg/auth"
	"github.com/WorkingSea/booru.org-downloader/pkg/config"
	"github.com/WorkingSea/booru.org-downloader/pkg/errors"
	"github.com/WorkingSea/booru.org-downloader/pkg/logger"
	"github.com/WorkingSea/booru.org-downloader/pkg/scraper"
	"github.com/WorkingSea/booru.org-downloader/pkg/ui"
)

const cookieHint = `The booru needs the cookies of a logged-in browser session. Open the site,
log in, then copy the cf_clearance, user_id and pass_hash cookie values from
your browser's developer tools (Application or Storage tab, Cookies). Pass
them with --cf-clearance, --user-id and --pass-hash, export
BOORUDL_CF_CLEARANCE, BOORUDL_USER_ID and BOORUDL_PASS_HASH, or store them
once with 'boorudl auth login'.`

var (
	// Scrape command flags
	cfClearance string
	userID      string
	passHash    string
	outputDir   string
	accountName string
	strictAuth  bool
	perPage     int
	rateLimit   int
	delay       string
	timeout     string
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <search-url>",
	Short: "Download all images of a search",
	Long: `Download the full-size image of every post in a booru search.

Result pages are requested with pid=0, 20, 40, ... until a page has no posts.
A 403 on a result page usually means the cookies expired; the run stops there
(with a failing exit status under --strict-auth). A 503 on a single post skips
that post. Any other error aborts the run.`,
	Example: `  # Download a tag search
  boorudl scrape "https://example.booru.org/index.php?page=post&s=list&tags=foo_bar" \
    --cf-clearance XXX --user-id 1234 --pass-hash YYY

  # Use a stored account and a slower pace
  boorudl scrape "https://example.booru.org/index.php?page=post&s=list&tags=foo" -a main --delay 3s

  # Save under another directory
  boorudl "https://example.booru.org/index.php?page=post&s=list&tags=foo" -o ~/Pictures`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func addScrapeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfClearance, "cf-clearance", "", "cf_clearance cookie value")
	cmd.Flags().StringVar(&userID, "user-id", "", "user_id cookie value")
	cmd.Flags().StringVar(&passHash, "pass-hash", "", "pass_hash cookie value")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for the downloads_* folder (default: current directory)")
	cmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	cmd.Flags().BoolVar(&strictAuth, "strict-auth", false, "fail when a result page answers 403")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "posts per result page (pid step)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "maximum requests per minute per host (0 = off)")
	cmd.Flags().StringVar(&delay, "delay", "1s", "pause after each post")
	cmd.Flags().StringVar(&timeout, "timeout", "0s", "per-request timeout (0 = none)")
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addScrapeFlags(scrapeCmd)

	// Also add these flags to root command so the URL can be given directly
	addScrapeFlags(rootCmd)
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			return runScrape(cmd, args)
		}
		return cmd.Help()
	}
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}

// scrapeFlags collects the flags the user actually set, in the form
// config.MergeCommandLineFlags expects
func scrapeFlags(cmd *cobra.Command) (map[string]interface{}, error) {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	for name, value := range map[string]string{
		"cf-clearance": cfClearance,
		"user-id":      userID,
		"pass-hash":    passHash,
		"output":       outputDir,
	} {
		if changed(name) {
			flags[name] = value
		}
	}
	if changed("strict-auth") {
		flags["strict-auth"] = strictAuth
	}
	if changed("per-page") {
		if perPage <= 0 {
			return nil, fmt.Errorf("--per-page must be positive")
		}
		flags["per-page"] = perPage
	}
	if changed("rate-limit") {
		flags["rate-limit"] = rateLimit
	}
	if changed("delay") {
		d, err := parseDuration(delay)
		if err != nil {
			return nil, fmt.Errorf("invalid --delay: %w", err)
		}
		flags["delay"] = d
	}
	if changed("timeout") {
		d, err := parseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout: %w", err)
		}
		flags["timeout"] = d
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if noColor {
		flags["no-color"] = true
	}
	return flags, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	searchURL := strings.TrimSpace(args[0])
	if err := config.ValidateSearchURL(searchURL); err != nil {
		return err
	}

	flags, err := scrapeFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("boorudl starting")

	if err := resolveCredentials(cfg, searchURL, flags, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := ui.DefaultConsole()
	s := scraper.New(cfg, console, log)

	summary, err := s.Run(ctx, searchURL)
	if summary != nil {
		console.PrintSummary(summary.Report())
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		ui.PrintWarning("Interrupted")
		return err
	case errors.Is(err, errors.ErrForbidden):
		ui.PrintHint(cookieHint)
		return err
	default:
		return err
	}
}

// resolveCredentials loads the session cookies from a stored account when
// one is named, or when the cookies are incomplete and an account matches
// the search host.
func resolveCredentials(cfg *config.Config, searchURL string, flags map[string]interface{}, log logger.Logger) error {
	if accountName == "" && cfg.ValidateSession() == nil {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Credential store unavailable")
		if accountName != "" {
			return fmt.Errorf("cannot load account %q: %w", accountName, err)
		}
	} else if err := applyAccount(cfg, manager, accountName, searchURL, flags, log); err != nil {
		return err
	}

	if err := cfg.ValidateSession(); err != nil {
		ui.PrintHint(cookieHint)
		return fmt.Errorf("missing session cookies: %w", err)
	}
	return nil
}

// applyAccount copies stored cookies into cfg. A named account replaces the
// cookies from the config file and environment, and only cookie flags given
// on the command line override it. Without a name, an account for the
// search host fills in the missing cookies.
func applyAccount(cfg *config.Config, manager *auth.Manager, name, searchURL string, flags map[string]interface{}, log logger.Logger) error {
	var account *auth.Account

	if name != "" {
		found, err := manager.Retrieve(name)
		if err != nil {
			ui.PrintInfo("Available accounts", "Use 'boorudl auth list' to see stored accounts")
			return fmt.Errorf("account %q not found", name)
		}
		account = found
		account.Use(&cfg.Session)
		cfg.MergeCommandLineFlags(flags)
	} else {
		u, err := url.Parse(searchURL)
		if err != nil {
			return nil
		}
		if account, _ = manager.ForHost(u.Hostname()); account == nil {
			return nil
		}
		account.Apply(&cfg.Session)
	}

	log.WithField("account", account.Name).Info("Using stored credentials")
	ui.PrintInfo("Using account", account.Name)
	return nil
}
