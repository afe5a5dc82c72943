package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WorkingSea/booru.org-downloader/pkg/auth"
	"github.com/WorkingSea/booru.org-downloader/pkg/ui"
)

var (
	loginHost string
	logoutAll bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored booru accounts",
	Long: `Manage stored booru session cookies.

Accounts are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation (BOORUDL_PASSPHRASE)
  - Environment variables (read-only)

Never share your cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store session cookies under a name",
	Long: `Store the cf_clearance, user_id and pass_hash cookies of a logged-in
browser session. Secret values are not echoed.

With --host the account is picked automatically for searches on that host.`,
	Example: `  # Interactive login
  boorudl auth login

  # Bind the account to one booru
  boorudl auth login main --host example.booru.org`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored cookies",
	Example: `  boorudl auth logout main
  boorudl auth logout --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with the cookie values masked.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().StringVar(&loginHost, "host", "", "booru host the cookies belong to")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	ui.PrintHint(cookieHint)
	fmt.Println()

	account := &auth.Account{Host: loginHost}
	if len(args) > 0 {
		account.Name = args[0]
	} else {
		fmt.Print("Account name: ")
		if account.Name, err = readLine(stdin); err != nil {
			return fmt.Errorf("failed to read account name: %w", err)
		}
	}
	if account.Name == "" {
		return fmt.Errorf("account name is required")
	}

	if existing, _ := manager.Retrieve(account.Name); existing != nil {
		if !confirm(stdin, fmt.Sprintf("Account '%s' already exists. Update cookies? (y/N): ", account.Name)) {
			return nil
		}
	}

	fmt.Print("cf_clearance: ")
	if account.CFClearance, err = readSecret(stdin); err != nil {
		return fmt.Errorf("failed to read cf_clearance: %w", err)
	}
	fmt.Print("user_id: ")
	if account.UserID, err = readLine(stdin); err != nil {
		return fmt.Errorf("failed to read user_id: %w", err)
	}
	fmt.Print("pass_hash: ")
	if account.PassHash, err = readSecret(stdin); err != nil {
		return fmt.Errorf("failed to read pass_hash: %w", err)
	}
	fmt.Print("User Agent of that browser (Enter for default): ")
	account.UserAgent, _ = readLine(stdin)

	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess("Account saved: " + account.Name)
	if account.Host != "" {
		ui.PrintInfo("Used automatically for", account.Host)
	} else {
		ui.PrintInfo("Use it with", "boorudl scrape <search-url> --account "+account.Name)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var names []string
	switch {
	case logoutAll:
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		for _, a := range accounts {
			names = append(names, a.Name)
		}
		if len(names) > 0 && !confirm(stdin, fmt.Sprintf("Remove all %d accounts? (y/N): ", len(names))) {
			return nil
		}
	case len(args) == 1:
		names = []string{args[0]}
	default:
		return fmt.Errorf("give an account name or --all")
	}

	if len(names) == 0 {
		ui.PrintInfo("No stored accounts", "nothing to remove")
		return nil
	}

	for _, name := range names {
		if err := manager.Delete(name); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		ui.PrintSuccess("Account removed: " + name)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'boorudl auth login' to add an account")
		return nil
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. %s\n", i+1, ui.Cyan(sanitized.Name))
		if sanitized.Host != "" {
			fmt.Printf("   Host:          %s\n", sanitized.Host)
		}
		fmt.Printf("   cf_clearance:  %s\n", sanitized.CFClearance)
		fmt.Printf("   user_id:       %s\n", sanitized.UserID)
		fmt.Printf("   pass_hash:     %s\n", sanitized.PassHash)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent:    %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}
