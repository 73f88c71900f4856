package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"stash/internal/config"
	"stash/internal/storage"
)

// newSetPasswordCommand writes the shared password hash straight into the
// store. It runs on the server host, not through the API.
func newSetPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password <password>",
		Short: "Set the shared password in the local database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := args[0]
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			cfg := config.Load()
			store, err := storage.Open(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			if err := store.SetPasswordHash(cmd.Context(), string(hash)); err != nil {
				return fmt.Errorf("store password hash: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Password updated.")
			return nil
		},
	}
}
