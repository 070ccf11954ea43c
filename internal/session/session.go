package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/batch"
	"github.com/roach88/swipepad/internal/domain"
)

// Catalog supplies the projects shown in the feed. An empty category means
// every project.
type Catalog interface {
	List(category string) []domain.Project
}

// DefaultQuickAmount and DefaultQuickCurrency apply when QuickDonate is
// called without an amount or currency.
var (
	DefaultQuickAmount   = decimal.NewFromInt(5)
	DefaultQuickCurrency = domain.USDT
)

// Selection is the donation parameters applied to right swipes.
type Selection struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  domain.Currency `json:"currency"`
	Threshold int             `json:"threshold"`

	// AmountSelected is false until SelectDonationParameters succeeds.
	AmountSelected bool `json:"amountSelected"`
}

// SwipeResult describes what a swipe did.
type SwipeResult struct {
	Direction domain.Direction `json:"direction"`

	// Project is the project that was at the cursor. Zero for a left swipe
	// over an empty feed.
	Project domain.Project `json:"project"`

	// Intent is set for right swipes.
	Intent *domain.DonationIntent `json:"intent,omitempty"`

	// Batch is set when the swipe reached the threshold and the cart was
	// submitted.
	Batch *domain.BatchResult `json:"batch,omitempty"`

	// BatchErr is set when the threshold was reached but the batch could not
	// start (no wallet). The swipe itself still counted.
	BatchErr error `json:"-"`

	Badges []Badge `json:"badges,omitempty"`
}

// CheckoutResult is the outcome of a manual checkout.
type CheckoutResult struct {
	Batch  domain.BatchResult `json:"batch"`
	Badges []Badge            `json:"badges,omitempty"`
}

// Session is one user's swipe session.
type Session struct {
	id        string
	catalog   Catalog
	presets   Presets
	submitter *batch.Submitter
	clock     Clock
	rng       *rand.Rand
	badges    *BadgeTracker
	policy    StatsPolicy
	logger    *slog.Logger

	category    string
	projects    []domain.Project
	cursor      int
	cart        []domain.DonationIntent
	selection   Selection
	swipeCount  int
	totalSwipes int
	stats       stats
}

// Option configures a Session.
type Option func(*Session)

// WithPresets replaces DefaultPresets.
func WithPresets(p Presets) Option {
	return func(s *Session) {
		s.presets = p
	}
}

// WithClock sets the wall clock (default SystemClock).
func WithClock(c Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithBadgeTracker shares a shown-badge set between sessions.
func WithBadgeTracker(t *BadgeTracker) Option {
	return func(s *Session) {
		s.badges = t
	}
}

// WithStatsPolicy sets when donations are counted (default StatsOnAccept).
func WithStatsPolicy(p StatsPolicy) Option {
	return func(s *Session) {
		s.policy = p
	}
}

// WithRand shuffles the feed with r whenever the project list is loaded.
// Without it the catalog order is kept.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		s.rng = r
	}
}

// WithID sets the session ID (default a random UUID).
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// New creates a session over cat. sub may be nil, in which case the session
// starts with a submitter that has no wallet connected.
func New(cat Catalog, sub *batch.Submitter, opts ...Option) (*Session, error) {
	s := &Session{
		catalog:   cat,
		presets:   DefaultPresets(),
		submitter: sub,
		clock:     SystemClock{},
		badges:    NewBadgeTracker(),
		logger:    slog.Default(),
		stats:     newStats(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.presets.Validate(); err != nil {
		return nil, err
	}
	if s.submitter == nil {
		s.submitter = batch.New(nil, batch.WithLogger(s.logger))
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.selection = Selection{
		Currency:  s.presets.DefaultCurrency,
		Threshold: s.presets.DefaultThreshold,
	}
	s.loadProjects("")
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Presets returns the accepted parameter values.
func (s *Session) Presets() Presets { return s.presets }

// Selection returns the current donation parameters.
func (s *Session) Selection() Selection { return s.selection }

// SwipeCount returns right swipes since the last submission or selection.
func (s *Session) SwipeCount() int { return s.swipeCount }

// TotalSwipes returns every swipe decision made over a non-empty feed.
func (s *Session) TotalSwipes() int { return s.totalSwipes }

// Cursor returns the index of the current project.
func (s *Session) Cursor() int { return s.cursor }

// Category returns the active category filter ("" for all).
func (s *Session) Category() string { return s.category }

// Projects returns a copy of the active feed in display order.
func (s *Session) Projects() []domain.Project {
	out := make([]domain.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// Current returns the project at the cursor, or false for an empty feed.
func (s *Session) Current() (domain.Project, bool) {
	if len(s.projects) == 0 {
		return domain.Project{}, false
	}
	return s.projects[s.cursor], true
}

// Progress returns how many more right swipes trigger a submission.
func (s *Session) Progress() int {
	return s.selection.Threshold - s.swipeCount
}

// Cart returns a copy of the pending intents in insertion order.
func (s *Session) Cart() []domain.DonationIntent {
	out := make([]domain.DonationIntent, len(s.cart))
	copy(out, s.cart)
	return out
}

// CartTotals sums the pending intents per currency.
func (s *Session) CartTotals() map[domain.Currency]decimal.Decimal {
	totals := make(map[domain.Currency]decimal.Decimal)
	for _, it := range s.cart {
		totals[it.Currency] = totals[it.Currency].Add(it.Amount)
	}
	return totals
}

// Stats returns a snapshot of the gamification counters.
func (s *Session) Stats() Stats { return s.stats.snapshot() }

// ConnectWallet makes w the wallet for later submissions.
func (s *Session) ConnectWallet(w batch.Wallet) { s.submitter.Connect(w) }

// DisconnectWallet drops the wallet.
func (s *Session) DisconnectWallet() { s.submitter.Disconnect() }

// WalletConnected reports whether submissions can run.
func (s *Session) WalletConnected() bool { return s.submitter.Connected() }

// SelectDonationParameters sets the amount, currency and threshold applied
// to later right swipes and resets the swipe counter. Values outside the
// presets fail with INVALID_PARAMETER and change nothing.
func (s *Session) SelectDonationParameters(amount decimal.Decimal, currency domain.Currency, threshold int) error {
	if err := s.presets.check(amount, currency, threshold); err != nil {
		return err
	}
	s.selection = Selection{
		Amount:         amount,
		Currency:       currency,
		Threshold:      threshold,
		AmountSelected: true,
	}
	s.swipeCount = 0

	s.logger.Debug("donation parameters selected",
		"session", s.id,
		"amount", amount.String(),
		"currency", string(currency),
		"threshold", threshold,
	)
	return nil
}

// RecordSwipeDecision applies a swipe to the project at the cursor.
//
// A right swipe needs selected parameters (AMOUNT_NOT_SELECTED otherwise)
// and a non-empty feed (NO_PROJECT otherwise); a rejected right swipe
// changes nothing. An accepted right swipe snapshots the project into the
// cart and, once the threshold is reached, submits the whole cart. The
// swipe counter resets after every triggered submission, whether or not
// the batch could start.
//
// Both directions move the cursor forward, wrapping to 0.
func (s *Session) RecordSwipeDecision(ctx context.Context, dir domain.Direction) (SwipeResult, error) {
	res := SwipeResult{Direction: dir}

	switch dir {
	case domain.Left:
		p, ok := s.Current()
		if !ok {
			return res, nil
		}
		res.Project = p
		s.totalSwipes++
		s.advance()
		s.logger.Debug("swipe left", "session", s.id, "project", p.ID)
		return res, nil

	case domain.Right:
	default:
		return res, domain.NewInvalidParameter("direction", fmt.Sprint(int(dir)), "must be left or right")
	}

	if !s.selection.AmountSelected {
		return res, domain.NewAmountNotSelected()
	}
	p, ok := s.Current()
	if !ok {
		return res, domain.NewNoProject()
	}

	now := s.clock.Now()
	intent, err := domain.NewIntent(p, s.selection.Amount, s.selection.Currency, "", now)
	if err != nil {
		return res, err
	}

	res.Project = p
	res.Intent = &intent
	s.cart = append(s.cart, intent)
	s.swipeCount++
	s.totalSwipes++
	if s.policy == StatsOnAccept {
		res.Badges = s.countDonation(intent, now)
	}
	s.advance()

	s.logger.Debug("swipe right",
		"session", s.id,
		"project", p.ID,
		"amount", intent.Amount.String(),
		"currency", string(intent.Currency),
		"swipes", s.swipeCount,
		"threshold", s.selection.Threshold,
	)

	if s.swipeCount >= s.selection.Threshold {
		s.swipeCount = 0
		result, badges, err := s.submitCart(ctx)
		if err != nil {
			res.BatchErr = err
			s.logger.Warn("threshold reached but batch not submitted",
				"session", s.id,
				"pending", len(s.cart),
				"error", err,
			)
		} else {
			res.Batch = &result
			res.Badges = append(res.Badges, badges...)
		}
	}

	return res, nil
}

// QuickDonate adds one intent for p to the cart from outside the swipe
// feed. It neither reads nor increments the swipe counter and never
// submits. A zero amount or empty currency falls back to
// DefaultQuickAmount / DefaultQuickCurrency.
func (s *Session) QuickDonate(p domain.Project, amount decimal.Decimal, currency domain.Currency, message string) (domain.DonationIntent, []Badge, error) {
	if amount.IsZero() {
		amount = DefaultQuickAmount
	}
	if currency == "" {
		currency = DefaultQuickCurrency
	}

	now := s.clock.Now()
	intent, err := domain.NewIntent(p, amount, currency, message, now)
	if err != nil {
		return domain.DonationIntent{}, nil, err
	}

	s.cart = append(s.cart, intent)

	var badges []Badge
	if s.policy == StatsOnAccept {
		badges = s.countDonation(intent, now)
	}

	s.logger.Debug("quick donation added",
		"session", s.id,
		"project", p.ID,
		"amount", amount.String(),
		"currency", string(currency),
	)
	return intent, badges, nil
}

// Checkout submits the cart regardless of the threshold, then clears it
// and resets the swipe counter. Submitted and failed intents both leave
// the cart; use RequeueFailed to offer failures again.
//
// Without a wallet it fails with WALLET_NOT_CONNECTED and changes nothing.
func (s *Session) Checkout(ctx context.Context) (CheckoutResult, error) {
	result, badges, err := s.submitCart(ctx)
	if err != nil {
		return CheckoutResult{}, err
	}
	s.swipeCount = 0
	return CheckoutResult{Batch: result, Badges: badges}, nil
}

// SelectCategory replaces the feed with the catalog's projects in category
// ("" for all) and moves the cursor back to the start.
func (s *Session) SelectCategory(category string) int {
	s.loadProjects(category)
	s.logger.Debug("category selected",
		"session", s.id,
		"category", category,
		"projects", len(s.projects),
	)
	return len(s.projects)
}

// RequeueFailed appends the failed intents of r back onto the cart. It
// touches neither the swipe counter nor the stats. Returns the number of
// intents requeued.
func (s *Session) RequeueFailed(r domain.BatchResult) int {
	failed := r.FailedIntents()
	s.cart = append(s.cart, failed...)
	return len(failed)
}

// submitCart hands the cart to the submitter. On success the cart is
// emptied; if the batch cannot start the cart is left untouched.
func (s *Session) submitCart(ctx context.Context) (domain.BatchResult, []Badge, error) {
	pending := s.Cart()
	result, err := s.submitter.Submit(ctx, pending)
	if err != nil {
		return domain.BatchResult{}, nil, err
	}
	s.cart = nil

	var badges []Badge
	if s.policy == StatsOnSettle {
		now := s.clock.Now()
		for _, o := range result.Outcomes {
			if o.Submitted() {
				badges = append(badges, s.countDonation(o.Intent, now)...)
			}
		}
	}

	s.logger.Info("cart submitted",
		"session", s.id,
		"batch", result.ID,
		"succeeded", result.SuccessCount(),
		"failed", result.FailCount(),
	)
	return result, badges, nil
}

// countDonation updates the stats and runs badge evaluation.
func (s *Session) countDonation(intent domain.DonationIntent, now time.Time) []Badge {
	s.stats.recordDonation(intent, now)
	if b, ok := s.badges.evaluate(&s.stats, now); ok {
		s.logger.Info("badge earned", "session", s.id, "badge", string(b))
		return []Badge{b}
	}
	return nil
}

func (s *Session) advance() {
	if len(s.projects) == 0 {
		s.cursor = 0
		return
	}
	s.cursor = (s.cursor + 1) % len(s.projects)
}

func (s *Session) loadProjects(category string) {
	var projects []domain.Project
	if s.catalog != nil {
		projects = s.catalog.List(category)
	}
	feed := make([]domain.Project, len(projects))
	copy(feed, projects)
	if s.rng != nil {
		s.rng.Shuffle(len(feed), func(i, j int) {
			feed[i], feed[j] = feed[j], feed[i]
		})
	}
	s.category = category
	s.projects = feed
	s.cursor = 0
}
