package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/swipepad/internal/batch"
	"github.com/roach88/swipepad/internal/catalog"
	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/engine"
	"github.com/roach88/swipepad/internal/session"
	"github.com/roach88/swipepad/internal/store"
	"github.com/roach88/swipepad/internal/wallet"
)

// SessionOptions holds flags for the session command.
type SessionOptions struct {
	*RootOptions
	Catalog  string
	Database string
	Wallet   string
	Category string
	Seed     uint64
}

// NewSessionCommand creates the interactive session command.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run a swipe session on stdin",
		Long: `Run a line-driven swipe session.

Each input line is one command:
  select AMOUNT CURRENCY THRESHOLD   choose donation parameters
  left | right                       swipe the current project
  quick PROJECT_ID [AMOUNT CURRENCY] donate outside the feed
  checkout                           submit the cart now
  retry                              requeue failures of the last batch
  category [NAME]                    switch feed (no name for all)
  wallet ADDRESS | disconnect        attach or detach the ledger wallet
  cart | stats | state               inspect the session
  quit

Transfers settle against the local ledger in --db. Fund the wallet with
"swipepad ledger fund" first.

Examples:
  swipepad session --catalog projects.json --db ledger.db --wallet 0xabc...
  printf 'select 0.10 cUSD 5\nright\nquit\n' | swipepad session --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "catalog file (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "ledger database path (default from config)")
	cmd.Flags().StringVar(&opts.Wallet, "wallet", "", "sender address of the ledger wallet")
	cmd.Flags().StringVar(&opts.Category, "category", "", "start with this category's feed")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "shuffle the feed with this seed (0 keeps catalog order)")

	return cmd
}

func runSession(cmd *cobra.Command, opts *SessionOptions) error {
	cfg := opts.Config
	logger := opts.logger(cmd)

	cat, err := catalog.Load(stringFlag(opts.Catalog, cfg.CatalogPath))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	presets, err := cfg.SessionPresets()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid presets", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid stats policy", err)
	}

	dbPath := stringFlag(opts.Database, cfg.LedgerDB)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing ledger", "error", closeErr)
		}
	}()

	var initial batch.Wallet
	if addr := stringFlag(opts.Wallet, cfg.WalletAddress); addr != "" {
		w, err := wallet.NewLedger(st, addr, wallet.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid wallet", err)
		}
		initial = w
	}

	sub := batch.New(initial,
		batch.WithTimeout(cfg.TransferTimeout),
		batch.WithLogger(logger),
	)
	sessOpts := []session.Option{
		session.WithPresets(presets),
		session.WithStatsPolicy(policy),
		session.WithLogger(logger),
	}
	if opts.Seed != 0 {
		sessOpts = append(sessOpts, session.WithRand(rand.New(rand.NewPCG(opts.Seed, opts.Seed))))
	}
	sess, err := session.New(cat, sub, sessOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	eng := engine.New(sess, engine.WithLogger(logger))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	defer func() {
		eng.Stop()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("engine stopped with error", "error", err)
		}
	}()

	sh := &shell{
		engine:  eng,
		catalog: cat,
		store:   st,
		out:     opts.formatter(cmd),
		logger:  logger,
	}
	if opts.Category != "" {
		if _, err := sh.exec(ctx, "category "+opts.Category); err != nil {
			return err
		}
	} else if err := sh.showCurrent(ctx); err != nil {
		return err
	}
	return sh.run(ctx, cmd.InOrStdin())
}

// shell parses session lines into engine commands and renders replies.
type shell struct {
	engine    *engine.Engine
	catalog   *catalog.Catalog
	store     *store.Store
	out       *OutputFormatter
	logger    *slog.Logger
	lastBatch *domain.BatchResult
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit, err := s.exec(ctx, line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

// exec runs one line. Session errors are reported and swallowed; only
// output failures and a stopped engine end the loop.
func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	verb, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch verb {
	case "quit", "exit":
		return true, nil
	case "select":
		err = s.selectParameters(ctx, args)
	case "left", "right", "l", "r":
		err = s.swipe(ctx, verb)
	case "quick":
		err = s.quick(ctx, args)
	case "checkout":
		err = s.checkout(ctx)
	case "retry":
		err = s.retry(ctx)
	case "category":
		err = s.category(ctx, strings.Join(args, " "))
	case "wallet":
		err = s.connect(ctx, args)
	case "disconnect":
		err = s.disconnect(ctx)
	case "cart":
		err = s.cart(ctx)
	case "stats":
		err = s.stats(ctx)
	case "state":
		err = s.state(ctx)
	default:
		err = domain.NewInvalidParameter("command", verb, "is not a session command")
	}

	if err == nil {
		return false, nil
	}
	if ctx.Err() != nil {
		return true, nil
	}
	if engine.IsStopped(err) {
		return false, WrapExitError(ExitFailure, "session engine stopped", err)
	}
	return false, s.out.DomainError(err)
}

func (s *shell) selectParameters(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return domain.NewInvalidParameter("select", strings.Join(args, " "), "usage: select AMOUNT CURRENCY THRESHOLD")
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return domain.NewInvalidParameter("amount", args[0], "is not a decimal")
	}
	threshold, err := strconv.Atoi(args[2])
	if err != nil {
		return domain.NewInvalidParameter("threshold", args[2], "is not an integer")
	}
	currency, err := domain.ParseCurrency(args[1])
	if err != nil {
		return err
	}
	reply, err := s.engine.Do(ctx, engine.SelectParameters{
		Amount:    amount,
		Currency:  currency,
		Threshold: threshold,
	})
	if err != nil {
		return err
	}
	sel := reply.Value.(session.Selection)
	return s.out.Success(sel, func(w io.Writer) {
		fmt.Fprintf(w, "Donating %s %s per right swipe, batching every %d.\n",
			sel.Amount.String(), sel.Currency, sel.Threshold)
	})
}

// swipeView is the JSON form of a swipe reply.
type swipeView struct {
	session.SwipeResult
	BatchError string `json:"batchError,omitempty"`
	SwipeCount int    `json:"swipeCount"`
	Threshold  int    `json:"threshold"`
}

func (s *shell) swipe(ctx context.Context, verb string) error {
	dir := domain.Left
	if verb == "right" || verb == "r" {
		dir = domain.Right
	}
	res, err := s.engine.Swipe(ctx, dir)
	if err != nil {
		return err
	}
	st, err := s.engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	if res.Batch != nil {
		b := *res.Batch
		s.lastBatch = &b
	}

	view := swipeView{SwipeResult: res, SwipeCount: st.SwipeCount, Threshold: st.Selection.Threshold}
	if res.BatchErr != nil {
		view.BatchError = res.BatchErr.Error()
	}
	return s.out.Success(view, func(w io.Writer) {
		switch {
		case res.Intent != nil:
			fmt.Fprintf(w, "♥ %s: %s %s [%d/%d]\n", res.Project.Name,
				res.Intent.Amount.String(), res.Intent.Currency, st.SwipeCount, st.Selection.Threshold)
		case res.Project.ID != "":
			fmt.Fprintf(w, "✗ %s skipped\n", res.Project.Name)
		default:
			fmt.Fprintln(w, "Feed is empty.")
		}
		if res.Batch != nil {
			renderBatch(w, *res.Batch)
		}
		if res.BatchErr != nil {
			fmt.Fprintf(w, "Batch not sent: %v\n", res.BatchErr)
		}
		renderBadges(w, res.Badges)
		renderCurrent(w, st)
	})
}

func (s *shell) quick(ctx context.Context, args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return domain.NewInvalidParameter("quick", strings.Join(args, " "), "usage: quick PROJECT_ID [AMOUNT CURRENCY]")
	}
	p, ok := s.catalog.Get(args[0])
	if !ok {
		return domain.NewNoProject()
	}
	cmd := engine.QuickDonate{Project: p}
	if len(args) == 3 {
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return domain.NewInvalidParameter("amount", args[1], "is not a decimal")
		}
		currency, err := domain.ParseCurrency(args[2])
		if err != nil {
			return err
		}
		cmd.Amount = amount
		cmd.Currency = currency
	}
	reply, err := s.engine.Do(ctx, cmd)
	if err != nil {
		return err
	}
	qd := reply.Value.(engine.QuickDonation)
	return s.out.Success(qd, func(w io.Writer) {
		fmt.Fprintf(w, "♥ %s: %s %s added to cart\n", qd.Intent.ProjectName,
			qd.Intent.Amount.String(), qd.Intent.Currency)
		renderBadges(w, qd.Badges)
	})
}

func (s *shell) checkout(ctx context.Context) error {
	res, err := s.engine.Checkout(ctx)
	if err != nil {
		return err
	}
	b := res.Batch
	s.lastBatch = &b
	return s.out.Success(res, func(w io.Writer) {
		renderBatch(w, res.Batch)
		renderBadges(w, res.Badges)
	})
}

func (s *shell) retry(ctx context.Context) error {
	if s.lastBatch == nil {
		return domain.NewInvalidParameter("retry", "", "no batch has been submitted")
	}
	reply, err := s.engine.Do(ctx, engine.RequeueFailed{Result: *s.lastBatch})
	if err != nil {
		return err
	}
	n := reply.Value.(int)
	s.lastBatch = nil
	return s.out.Success(map[string]int{"requeued": n}, func(w io.Writer) {
		fmt.Fprintf(w, "%d failed donation(s) back in the cart.\n", n)
	})
}

func (s *shell) category(ctx context.Context, name string) error {
	if strings.EqualFold(name, "all") {
		name = ""
	}
	reply, err := s.engine.Do(ctx, engine.SelectCategory{Category: name})
	if err != nil {
		return err
	}
	n := reply.Value.(int)
	st, err := s.engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	return s.out.Success(map[string]any{"category": name, "projects": n}, func(w io.Writer) {
		label := name
		if label == "" {
			label = "all categories"
		}
		fmt.Fprintf(w, "%d project(s) in %s.\n", n, label)
		renderCurrent(w, st)
	})
}

func (s *shell) connect(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return domain.NewInvalidParameter("wallet", strings.Join(args, " "), "usage: wallet ADDRESS")
	}
	w, err := wallet.NewLedger(s.store, args[0], wallet.WithLogger(s.logger))
	if err != nil {
		return err
	}
	if _, err := s.engine.Do(ctx, engine.ConnectWallet{Wallet: w}); err != nil {
		return err
	}
	return s.out.Success(map[string]string{"wallet": w.Address()}, func(out io.Writer) {
		fmt.Fprintf(out, "Wallet %s connected.\n", w.Address())
	})
}

func (s *shell) disconnect(ctx context.Context) error {
	if _, err := s.engine.Do(ctx, engine.DisconnectWallet{}); err != nil {
		return err
	}
	return s.out.Success(map[string]bool{"walletConnected": false}, func(w io.Writer) {
		fmt.Fprintln(w, "Wallet disconnected.")
	})
}

func (s *shell) cart(ctx context.Context) error {
	st, err := s.engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{"cart": st.Cart, "cartTotals": st.CartTotals}
	return s.out.Success(data, func(w io.Writer) {
		if len(st.Cart) == 0 {
			fmt.Fprintln(w, "Cart is empty.")
			return
		}
		for i, intent := range st.Cart {
			fmt.Fprintf(w, "%d. %s: %s %s\n", i+1, intent.ProjectName, intent.Amount.String(), intent.Currency)
		}
		for _, c := range domain.Currencies {
			if total, ok := st.CartTotals[c]; ok {
				fmt.Fprintf(w, "Total %s: %s\n", c, total.String())
			}
		}
	})
}

func (s *shell) stats(ctx context.Context) error {
	st, err := s.engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	stats := st.Stats
	return s.out.Success(stats, func(w io.Writer) {
		fmt.Fprintf(w, "Donations: %d\n", stats.TotalDonations)
		fmt.Fprintf(w, "Streak: %d day(s)\n", stats.Streak)
		fmt.Fprintf(w, "Categories: %s\n", strings.Join(stats.Categories, ", "))
		for _, c := range domain.Currencies {
			if total, ok := stats.TotalDonated[c]; ok {
				fmt.Fprintf(w, "Donated %s: %s\n", c, total.String())
			}
		}
	})
}

func (s *shell) state(ctx context.Context) error {
	st, err := s.engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	return s.out.Success(st, func(w io.Writer) {
		fmt.Fprintf(w, "Session %s\n", st.SessionID)
		fmt.Fprintf(w, "Swipes: %d total, %d toward batch (%d%%)\n", st.TotalSwipes, st.SwipeCount, st.Progress)
		fmt.Fprintf(w, "Cart: %d item(s), wallet connected: %t\n", len(st.Cart), st.WalletConnected)
		renderCurrent(w, st)
	})
}

func (s *shell) showCurrent(ctx context.Context) error {
	if s.out.Format == "json" {
		return nil
	}
	st, err := s.engine.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "session engine stopped", err)
	}
	renderCurrent(s.out.Writer, st)
	return nil
}

func renderCurrent(w io.Writer, st session.State) {
	if st.Current == nil {
		fmt.Fprintln(w, "No projects to show.")
		return
	}
	fmt.Fprintf(w, "→ %s (%s) %d/%d\n", st.Current.Name, st.Current.Category, st.Cursor+1, st.FeedLength)
}

func renderBatch(w io.Writer, b domain.BatchResult) {
	fmt.Fprintf(w, "Batch %s: %d submitted, %d failed\n", b.ID, b.SuccessCount(), b.FailCount())
	for _, o := range b.Outcomes {
		if o.Submitted() {
			fmt.Fprintf(w, "  ✓ %s %s %s %s\n", o.Intent.ProjectName, o.Intent.Amount.String(), o.Intent.Currency, o.TxRef)
			continue
		}
		fmt.Fprintf(w, "  ✗ %s %s %s: %s\n", o.Intent.ProjectName, o.Intent.Amount.String(), o.Intent.Currency, o.Reason)
	}
}

func renderBadges(w io.Writer, badges []session.Badge) {
	for _, b := range badges {
		fmt.Fprintf(w, "★ Badge earned: %s\n", b)
	}
}
