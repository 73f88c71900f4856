// Package cli implements the stashctl commands. Every ledger command
// authenticates through the same client and session guard the UI uses.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stash/internal/client"
	"stash/internal/config"
	"stash/internal/session"
)

type options struct {
	serverURL string
	password  string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "stashctl",
		Short: "Manage the stash savings ledger from the terminal",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	cfg := config.Load()
	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", cfg.ServerURL, "stash server URL")
	cmd.PersistentFlags().StringVarP(&opts.password, "password", "p", "", "shared password (falls back to STASH_PASSWORD)")

	cmd.AddCommand(
		newSetPasswordCommand(),
		newLoginCommand(opts),
		newStatusCommand(opts),
		newBalanceCommand(opts),
		newAddCommand(opts),
		newHistoryCommand(opts),
	)

	return cmd
}

func (o *options) resolvePassword() (string, error) {
	if o.password != "" {
		return o.password, nil
	}
	if env := os.Getenv("STASH_PASSWORD"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no password given: use --password or set STASH_PASSWORD")
}

// connect builds a client plus guard and logs in. The caller owns the
// guard and must Close it.
func (o *options) connect(ctx context.Context) (*client.Client, *session.Guard, error) {
	password, err := o.resolvePassword()
	if err != nil {
		return nil, nil, err
	}

	api, err := client.New(client.Config{BaseURL: o.serverURL})
	if err != nil {
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	guard := session.New(session.Config{Auth: api})
	if !guard.Login(ctx, password) {
		defer guard.Close()
		return nil, nil, fmt.Errorf("login failed: %s", guard.Err())
	}
	return api, guard, nil
}
