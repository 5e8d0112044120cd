package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"chscraper/pkg/auth"
	"chscraper/pkg/validate"
)

var authProfile string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Companies House API credentials",
	Long: `Store, inspect and remove API keys.

Keys are kept in the system keychain when one is available, falling
back to an encrypted file under the user config directory. The
COMPANIES_HOUSE_API_KEY environment variable always takes precedence
over stored credentials.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API key",
	Long: `Prompt for a Companies House API key and store it securely.

Run 'chscraper auth login --help-guide' for instructions on obtaining
a key from the Companies House developer hub.`,
	RunE: runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored credentials",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:     "logout",
	Aliases: []string{"remove"},
	Short:   "Remove a stored API key",
	RunE:    runAuthLogout,
}

var showGuide bool

func init() {
	authLoginCmd.Flags().BoolVar(&showGuide, "help-guide", false, "show instructions for obtaining an API key")
	authCmd.PersistentFlags().StringVar(&authProfile, "profile", auth.DefaultProfile, "credential profile name")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	if showGuide {
		auth.ShowAPIKeyGuide()
		return nil
	}

	mgr, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential storage: %w", err)
	}

	fmt.Print("Companies House API key: ")
	key, err := readPassword()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	fmt.Println()

	key = strings.TrimSpace(key)
	if err := validate.APIKey(key); err != nil {
		fmt.Fprintln(os.Stderr, "That does not look like a valid API key.")
		fmt.Fprintln(os.Stderr)
		auth.ShowQuickAPIKeyGuide()
		return err
	}

	cred := &auth.Credential{
		Profile: authProfile,
		APIKey:  key,
	}
	if err := mgr.Store(cred); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("API key stored for profile %q\n", authProfile)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	mgr, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential storage: %w", err)
	}

	if key := os.Getenv(auth.EnvAPIKey); key != "" {
		fmt.Printf("Environment: %s is set (takes precedence over stored keys)\n", auth.EnvAPIKey)
	}

	creds, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}
	if len(creds) == 0 {
		fmt.Println("No stored credentials. Run 'chscraper auth login' to add one.")
		return nil
	}

	fmt.Println("Stored credentials:")
	for _, c := range creds {
		masked := auth.Sanitize(c)
		fmt.Printf("  %-12s %s  (modified %s)\n",
			masked.Profile, masked.APIKey, masked.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	mgr, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential storage: %w", err)
	}

	if err := mgr.Delete(authProfile); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	fmt.Printf("Removed stored API key for profile %q\n", authProfile)
	return nil
}

// readPassword reads a line without echoing when stdin is a terminal,
// falling back to a plain read when input is piped.
func readPassword() (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
