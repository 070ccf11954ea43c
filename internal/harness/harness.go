package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/batch"
	"github.com/roach88/swipepad/internal/catalog"
	"github.com/roach88/swipepad/internal/config"
	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/engine"
	"github.com/roach88/swipepad/internal/session"
	"github.com/roach88/swipepad/internal/store"
	"github.com/roach88/swipepad/internal/testutil"
	"github.com/roach88/swipepad/internal/wallet"
)

// DefaultStart is the wall-clock time a scenario starts at unless it sets
// its own.
var DefaultStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// DefaultTransferTimeout bounds each transfer in a scenario. It is short so
// hang_on steps finish quickly.
const DefaultTransferTimeout = 250 * time.Millisecond

// Harness runs one scenario against a real engine and session.
//
// Everything nondeterministic is pinned: the wall clock is a FixedClock,
// batch and transfer IDs are sequences, and the feed is only shuffled
// from an explicit seed.
type Harness struct {
	engine   *engine.Engine
	catalog  *catalog.Catalog
	badges   *session.BadgeTracker
	clock    *testutil.FixedClock
	seq      *testutil.DeterministicClock
	wallet   batch.Wallet
	scripted *testutil.ScriptedWallet
	ledger   *wallet.Ledger
	store    *store.Store
	logger   *slog.Logger

	// lastBatch is the most recent batch result, for requeue_failed.
	lastBatch domain.BatchResult
}

// Run executes a scenario and returns the result.
//
// The returned error is reserved for scenarios that cannot run at all
// (bad catalog, malformed args). Failed expectations are reported in
// Result.Errors with Pass set to false.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.close()

	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()
	defer func() {
		h.engine.Stop()
		<-done
	}()

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(ctx context.Context, sc *Scenario) (*Harness, error) {
	h := &Harness{
		badges: session.NewBadgeTracker(),
		seq:    testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	start := sc.Start
	if start.IsZero() {
		start = DefaultStart
	}
	h.clock = testutil.NewFixedClock(start)

	cat, err := loadCatalog(sc)
	if err != nil {
		return nil, err
	}
	h.catalog = cat

	presets, err := scenarioPresets(sc.Presets)
	if err != nil {
		return nil, err
	}
	policy, err := session.ParseStatsPolicy(sc.StatsPolicy)
	if err != nil {
		return nil, err
	}

	if err := h.buildWallet(ctx, sc.Wallet); err != nil {
		h.close()
		return nil, err
	}

	timeout := sc.Timeout
	if timeout == 0 {
		timeout = DefaultTransferTimeout
	}
	var initial batch.Wallet
	if sc.Wallet.Kind != WalletNone {
		initial = h.wallet
	}
	sub := batch.New(initial,
		batch.WithTimeout(timeout),
		batch.WithIDGenerator(batch.NewSequenceGenerator("batch")),
		batch.WithNow(h.clock.Now),
		batch.WithLogger(h.logger),
	)

	opts := []session.Option{
		session.WithID("session-" + sc.Name),
		session.WithPresets(presets),
		session.WithStatsPolicy(policy),
		session.WithClock(h.clock),
		session.WithBadgeTracker(h.badges),
		session.WithLogger(h.logger),
	}
	if sc.Seed != 0 {
		opts = append(opts, session.WithRand(rand.New(rand.NewPCG(sc.Seed, sc.Seed))))
	}
	sess, err := session.New(cat, sub, opts...)
	if err != nil {
		h.close()
		return nil, fmt.Errorf("create session: %w", err)
	}

	h.engine = engine.New(sess, engine.WithLogger(h.logger))
	return h, nil
}

func loadCatalog(sc *Scenario) (*catalog.Catalog, error) {
	if sc.Catalog != "" {
		return catalog.Load(sc.Catalog)
	}
	cat, err := catalog.New(sc.Projects)
	if err != nil {
		return nil, fmt.Errorf("inline catalog: %w", err)
	}
	return cat, nil
}

// scenarioPresets overlays the scenario's preset fields on the defaults.
func scenarioPresets(p *config.Presets) (session.Presets, error) {
	merged := config.DefaultPresets()
	if p != nil {
		if len(p.Amounts) > 0 {
			merged.Amounts = p.Amounts
		}
		if len(p.Currencies) > 0 {
			merged.Currencies = p.Currencies
		}
		if len(p.Thresholds) > 0 {
			merged.Thresholds = p.Thresholds
		}
		if p.DefaultCurrency != "" {
			merged.DefaultCurrency = p.DefaultCurrency
		}
		if p.DefaultThreshold != 0 {
			merged.DefaultThreshold = p.DefaultThreshold
		}
	}
	return merged.Session()
}

func (h *Harness) buildWallet(ctx context.Context, spec WalletSpec) error {
	if spec.Kind != WalletLedger {
		w := testutil.NewScriptedWallet()
		for n, reason := range spec.FailOn {
			w.FailOn(n, reason)
		}
		for _, n := range spec.HangOn {
			w.HangOn(n)
		}
		h.scripted = w
		h.wallet = w
		return nil
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	h.store = st

	ids := batch.NewSequenceGenerator("transfer")
	l, err := wallet.NewLedger(st, spec.Address,
		wallet.WithNow(h.clock.Now),
		wallet.WithIDFunc(ids.Generate),
		wallet.WithLogger(h.logger),
	)
	if err != nil {
		return err
	}

	currencies := make([]string, 0, len(spec.Fund))
	for c := range spec.Fund {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		cur, err := domain.ParseCurrency(c)
		if err != nil {
			return fmt.Errorf("wallet fund: %w", err)
		}
		amount, err := decimal.NewFromString(spec.Fund[c])
		if err != nil {
			return fmt.Errorf("wallet fund %s: %w", c, err)
		}
		if _, err := l.Fund(ctx, cur, amount); err != nil {
			return err
		}
	}

	h.ledger = l
	h.wallet = l
	return nil
}

func (h *Harness) close() {
	if h.store != nil {
		h.store.Close()
	}
}

// executeStep sends one flow step and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	result.AddInvocationTrace(step.Invoke, step.Args, h.seq.Next())

	gotCase, summary, err := h.apply(ctx, step)
	if err != nil {
		return err
	}
	result.AddCompletionTrace(step.Invoke, gotCase, summary, h.seq.Next())

	h.logger.Info("flow step completed",
		"step", i,
		"action", step.Invoke,
		"output_case", gotCase,
	)

	wantCase := CaseSuccess
	if step.Expect != nil {
		wantCase = step.Expect.Case
	}
	if gotCase != wantCase {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected case %s, got %s %v",
			i, step.Invoke, wantCase, gotCase, summary))
		return nil
	}
	if step.Expect != nil && len(step.Expect.Result) > 0 {
		if !matchSubset(normalize(summary), normalize(step.Expect.Result)) {
			result.AddError(fmt.Sprintf("flow[%d] %s: result %v does not contain %v",
				i, step.Invoke, summary, step.Expect.Result))
		}
	}
	return nil
}

// apply runs one step and returns its case and result summary. Domain
// failures become the case; only malformed steps return an error.
func (h *Harness) apply(ctx context.Context, step FlowStep) (string, map[string]any, error) {
	if step.Invoke == ActionAdvanceClock {
		d, err := argDuration(step.Args, "duration")
		if err != nil {
			return "", nil, err
		}
		h.clock.Advance(d)
		return CaseSuccess, map[string]any{"now": h.clock.Now().UTC().Format(time.RFC3339)}, nil
	}

	cmd, err := h.command(step)
	if err != nil {
		// Invalid values the session would reject surface as their code.
		if code := domain.CodeOf(err); code != "" {
			return string(code), nil, nil
		}
		return "", nil, err
	}

	reply, err := h.engine.Do(ctx, cmd)
	if err != nil {
		code := domain.CodeOf(err)
		if code == "" {
			var rt *engine.RuntimeError
			if !errors.As(err, &rt) {
				return "", nil, err
			}
			return string(rt.Code), map[string]any{"message": rt.Message}, nil
		}
		return string(code), nil, nil
	}

	summary := h.summarize(reply.Value)
	state, err := h.engine.Snapshot(ctx)
	if err != nil {
		return "", nil, err
	}
	summary["cart"] = len(state.Cart)
	summary["swipeCount"] = state.SwipeCount
	return CaseSuccess, summary, nil
}

// collect fills the final state, badges and transfer count.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	state, err := h.engine.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}
	m, ok := normalize(state).(map[string]any)
	if !ok {
		return fmt.Errorf("final snapshot: unexpected shape")
	}
	result.State = m

	for _, b := range h.badges.Shown() {
		result.Badges = append(result.Badges, string(b))
	}

	switch {
	case h.scripted != nil:
		result.Transfers = len(h.scripted.Calls())
	case h.ledger != nil:
		transfers, err := h.ledger.Transfers(ctx)
		if err != nil {
			return err
		}
		result.Transfers = len(transfers)
	}
	return nil
}
