package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/store"
	"github.com/roach88/swipepad/internal/wallet"
)

// LedgerOptions holds flags for the ledger commands.
type LedgerOptions struct {
	*RootOptions
	Database string
	Address  string
}

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage the local token ledger",
		Long: `Manage the SQLite ledger that settles session transfers.

Examples:
  swipepad ledger fund 0xabc... cUSD 10 --db ledger.db
  swipepad ledger balance 0xabc... --db ledger.db
  swipepad ledger transfers --db ledger.db --address 0xabc...`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "ledger database path (default from config)")

	fund := &cobra.Command{
		Use:           "fund <address> <currency> <amount>",
		Short:         "Credit a wallet",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, st *store.Store, logger *slog.Logger) error {
				return runFund(ctx, cmd, opts, st, logger, args)
			})
		},
	}

	balance := &cobra.Command{
		Use:           "balance <address>",
		Short:         "Show a wallet's balances",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, st *store.Store, _ *slog.Logger) error {
				return runBalance(ctx, cmd, opts, st, args[0])
			})
		},
	}

	transfers := &cobra.Command{
		Use:           "transfers",
		Short:         "List settled transfers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(ctx context.Context, st *store.Store, _ *slog.Logger) error {
				return runTransfers(ctx, cmd, opts, st)
			})
		},
	}
	transfers.Flags().StringVar(&opts.Address, "address", "", "only transfers from or to this address")

	cmd.AddCommand(fund, balance, transfers)
	return cmd
}

func (o *LedgerOptions) withStore(cmd *cobra.Command, fn func(context.Context, *store.Store, *slog.Logger) error) error {
	logger := o.logger(cmd)
	path := stringFlag(o.Database, o.Config.LedgerDB)
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to open ledger %s", path), err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing ledger", "error", closeErr)
		}
	}()
	return fn(cmd.Context(), st, logger)
}

func runFund(ctx context.Context, cmd *cobra.Command, opts *LedgerOptions, st *store.Store, logger *slog.Logger, args []string) error {
	w, err := wallet.NewLedger(st, args[0], wallet.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid address", err)
	}
	currency, err := domain.ParseCurrency(args[1])
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid currency", err)
	}
	amount, err := decimal.NewFromString(args[2])
	if err != nil || !amount.IsPositive() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid amount %q: must be a positive decimal", args[2]))
	}

	bal, err := w.Fund(ctx, currency, amount)
	if err != nil {
		return WrapExitError(ExitFailure, "fund failed", err)
	}
	logger.Info("wallet funded", "address", w.Address(), "currency", currency, "amount", amount.String())

	data := map[string]string{
		"address":  w.Address(),
		"currency": string(currency),
		"balance":  bal.String(),
	}
	return opts.formatter(cmd).Success(data, func(out io.Writer) {
		fmt.Fprintf(out, "%s balance: %s %s\n", w.Address(), bal.String(), currency)
	})
}

func runBalance(ctx context.Context, cmd *cobra.Command, opts *LedgerOptions, st *store.Store, address string) error {
	if !domain.ValidAddress(address) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid address %q", address))
	}
	address = strings.ToLower(address)
	balances, err := st.Balances(ctx, address)
	if err != nil {
		return WrapExitError(ExitFailure, "read balances", err)
	}
	return opts.formatter(cmd).Success(balances, func(w io.Writer) {
		if len(balances) == 0 {
			fmt.Fprintf(w, "%s has no balances.\n", address)
			return
		}
		for _, c := range domain.Currencies {
			if b, ok := balances[string(c)]; ok {
				fmt.Fprintf(w, "%s %s\n", b.String(), c)
			}
		}
	})
}

func runTransfers(ctx context.Context, cmd *cobra.Command, opts *LedgerOptions, st *store.Store) error {
	address := strings.ToLower(opts.Address)
	if address != "" && !domain.ValidAddress(address) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid address %q", opts.Address))
	}
	transfers, err := st.ListTransfers(ctx, address)
	if err != nil {
		return WrapExitError(ExitFailure, "list transfers", err)
	}
	return opts.formatter(cmd).Success(transfers, func(w io.Writer) {
		if len(transfers) == 0 {
			fmt.Fprintln(w, "No transfers.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SEQ\tFROM\tTO\tAMOUNT\tTX")
		for _, t := range transfers {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s %s\t%s\n", t.Seq, t.From, t.To, t.Amount.String(), t.Currency, t.TxHash)
		}
		tw.Flush()
	})
}
