package cli

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Obtain a backend token for the given user",
	Long: `Obtain a bearer token from the accounting backend.

Prompts for the password and prints the token. Useful for seeding
BACKEND_TOKEN for the shared observer panels with a service account.

Example:
  jauge login panels-service`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.BackendURL == "" {
			return fmt.Errorf("backend URL is required (BACKEND_URL or jauge.toml)")
		}

		fmt.Print("Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		session, err := backend.New(cfg.BackendURL).Login(ctx, username, string(passwordBytes))
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		fmt.Printf("✓ Connecté en tant que %s (%s)\n", session.User.Username, session.User.Role)
		fmt.Println(session.AccessToken)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(loginCmd)
}
