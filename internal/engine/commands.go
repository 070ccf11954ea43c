package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/batch"
	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/session"
)

// Command is an operation the loop applies to the session.
// The set is closed: only the types in this file implement it.
type Command interface {
	Name() string
	apply(ctx context.Context, s *session.Session) (any, error)
}

// SelectParameters sets the donation amount, currency and threshold.
// Reply value: session.Selection.
type SelectParameters struct {
	Amount    decimal.Decimal
	Currency  domain.Currency
	Threshold int
}

func (SelectParameters) Name() string { return "select_parameters" }

func (c SelectParameters) apply(_ context.Context, s *session.Session) (any, error) {
	if err := s.SelectDonationParameters(c.Amount, c.Currency, c.Threshold); err != nil {
		return nil, err
	}
	return s.Selection(), nil
}

// Swipe records a swipe decision. Reply value: session.SwipeResult.
type Swipe struct {
	Direction domain.Direction
}

func (Swipe) Name() string { return "swipe" }

func (c Swipe) apply(ctx context.Context, s *session.Session) (any, error) {
	return s.RecordSwipeDecision(ctx, c.Direction)
}

// QuickDonate adds a donation from outside the swipe feed.
// Reply value: QuickDonation.
type QuickDonate struct {
	Project  domain.Project
	Amount   decimal.Decimal
	Currency domain.Currency
	Message  string
}

// QuickDonation is the reply value of QuickDonate.
type QuickDonation struct {
	Intent domain.DonationIntent `json:"intent"`
	Badges []session.Badge       `json:"badges,omitempty"`
}

func (QuickDonate) Name() string { return "quick_donate" }

func (c QuickDonate) apply(_ context.Context, s *session.Session) (any, error) {
	intent, badges, err := s.QuickDonate(c.Project, c.Amount, c.Currency, c.Message)
	if err != nil {
		return nil, err
	}
	return QuickDonation{Intent: intent, Badges: badges}, nil
}

// Checkout submits the cart. Reply value: session.CheckoutResult.
type Checkout struct{}

func (Checkout) Name() string { return "checkout" }

func (Checkout) apply(ctx context.Context, s *session.Session) (any, error) {
	return s.Checkout(ctx)
}

// SelectCategory reloads the feed. Reply value: int, the feed length.
type SelectCategory struct {
	Category string
}

func (SelectCategory) Name() string { return "select_category" }

func (c SelectCategory) apply(_ context.Context, s *session.Session) (any, error) {
	return s.SelectCategory(c.Category), nil
}

// RequeueFailed puts the failed intents of a batch back in the cart.
// Reply value: int, the number requeued.
type RequeueFailed struct {
	Result domain.BatchResult
}

func (RequeueFailed) Name() string { return "requeue_failed" }

func (c RequeueFailed) apply(_ context.Context, s *session.Session) (any, error) {
	return s.RequeueFailed(c.Result), nil
}

// Snapshot reads the session state. Reply value: session.State.
type Snapshot struct{}

func (Snapshot) Name() string { return "snapshot" }

func (Snapshot) apply(_ context.Context, s *session.Session) (any, error) {
	return s.Snapshot(), nil
}

// ConnectWallet attaches a wallet. Reply value: nil.
type ConnectWallet struct {
	Wallet batch.Wallet
}

func (ConnectWallet) Name() string { return "connect_wallet" }

func (c ConnectWallet) apply(_ context.Context, s *session.Session) (any, error) {
	s.ConnectWallet(c.Wallet)
	return nil, nil
}

// DisconnectWallet detaches the wallet. Reply value: nil.
type DisconnectWallet struct{}

func (DisconnectWallet) Name() string { return "disconnect_wallet" }

func (DisconnectWallet) apply(_ context.Context, s *session.Session) (any, error) {
	s.DisconnectWallet()
	return nil, nil
}
