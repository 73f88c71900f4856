package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"stash/internal/client"
	"stash/internal/core"
	"stash/internal/session"
)

func newLoginCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check that the shared password is accepted by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, guard, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer guard.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Login successful.")
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server reachability and session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := client.New(client.Config{BaseURL: opts.serverURL})
			if err != nil {
				return fmt.Errorf("create client: %w", err)
			}

			guard := session.New(session.Config{Auth: api})
			defer guard.Close()

			authenticated := guard.CheckExistingSession(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Server:        %s\n", opts.serverURL)
			fmt.Fprintf(cmd.OutOrStdout(), "Session state: %s\n", guard.State())
			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated: %v\n", authenticated)
			return nil
		},
	}
}

func newBalanceCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show current balances and monthly deposit stats per account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, guard, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer guard.Close()

			history, err := api.FetchHistory(cmd.Context(), "", 0)
			if err != nil {
				return fmt.Errorf("fetch balances: %w", err)
			}

			// Balances come from the server envelope; monthly deposit stats
			// are derived locally from the returned page, the same way the
			// web client does it.
			known := make([]string, 0, len(history.AccountBalances))
			for name := range history.AccountBalances {
				known = append(known, name)
			}
			sort.Strings(known)
			snap := core.Aggregate(known, history.Transactions, time.Now())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tBALANCE\tDEPOSITS THIS MONTH\tLAST DEPOSIT")
			for _, name := range known {
				stats := snap.Monthly[name]
				last := "-"
				if !stats.LastDeposit.IsZero() {
					last = stats.LastDeposit.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, history.AccountBalances[name].StringFixed(2), stats.Deposits, last)
			}
			fmt.Fprintf(w, "TOTAL\t%s\t\t\n", history.TotalBalance.StringFixed(2))
			return w.Flush()
		},
	}
}

func newAddCommand(opts *options) *cobra.Command {
	var (
		note     string
		withdraw bool
	)

	cmd := &cobra.Command{
		Use:   "add <account> <amount>",
		Short: "Record a deposit (or a withdrawal with --withdraw)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, guard, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer guard.Close()

			typ := core.Deposit
			if withdraw {
				typ = core.Withdrawal
			}

			result, err := api.RecordTransaction(cmd.Context(), args[0], args[1], typ, note, time.Now())
			if err != nil {
				return fmt.Errorf("record transaction: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s New balance: %s\n", result.Message, result.NewBalance.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "optional note for the transaction")
	cmd.Flags().BoolVar(&withdraw, "withdraw", false, "record a withdrawal instead of a deposit")
	return cmd
}

func newHistoryCommand(opts *options) *cobra.Command {
	var (
		account string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, guard, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer guard.Close()

			history, err := api.FetchHistory(cmd.Context(), account, limit)
			if err != nil {
				return fmt.Errorf("fetch history: %w", err)
			}

			if len(history.Transactions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tACCOUNT\tTYPE\tAMOUNT\tNOTE")
			for _, tx := range history.Transactions {
				sign := "+"
				if tx.Type == core.Withdrawal {
					sign = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\t%s\n",
					tx.Timestamp.Format("2006-01-02 15:04"),
					tx.AccountName,
					tx.Type,
					sign, tx.Amount.StringFixed(2),
					strings.TrimSpace(tx.Note))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "filter to one account")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries (server default when 0)")
	return cmd
}
