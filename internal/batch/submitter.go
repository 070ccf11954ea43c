package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/domain"
)

// Wallet is the externally supplied transfer capability.
//
// Transfer authorizes and submits one token transfer and returns the
// transaction reference. Implementations should honour ctx: the submitter
// puts a per-transfer deadline on it and waits for Transfer to return.
type Wallet interface {
	Transfer(ctx context.Context, to string, amount decimal.Decimal, currency domain.Currency) (string, error)
}

// DefaultTransferTimeout bounds a single transfer when no timeout is configured.
const DefaultTransferTimeout = 60 * time.Second

// Submitter runs batches against the connected wallet.
//
// Not safe for concurrent use; the owning session (or the engine loop in
// front of it) is the only caller.
type Submitter struct {
	wallet  Wallet
	timeout time.Duration
	ids     IDGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithTimeout sets the per-transfer deadline. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) {
		s.timeout = d
	}
}

// WithIDGenerator overrides the batch ID generator (default UUIDv7).
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Submitter) {
		s.ids = g
	}
}

// WithNow overrides the time source used for StartedAt/FinishedAt.
func WithNow(now func() time.Time) Option {
	return func(s *Submitter) {
		s.now = now
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = l
	}
}

// New creates a Submitter. w may be nil: the submitter then reports
// WALLET_NOT_CONNECTED until Connect is called.
func New(w Wallet, opts ...Option) *Submitter {
	s := &Submitter{
		wallet:  w,
		timeout: DefaultTransferTimeout,
		ids:     UUIDv7Generator{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect makes w the wallet used for subsequent batches.
func (s *Submitter) Connect(w Wallet) {
	s.wallet = w
}

// Disconnect drops the wallet; later batches fail with WALLET_NOT_CONNECTED.
func (s *Submitter) Disconnect() {
	s.wallet = nil
}

// Connected reports whether a wallet is available.
func (s *Submitter) Connected() bool {
	return s.wallet != nil
}

// Submit sends every intent, in order, to the wallet and returns the
// per-intent outcomes.
//
// With no wallet connected the whole batch fails with WALLET_NOT_CONNECTED
// and nothing is attempted. An empty batch succeeds with zero outcomes.
// Per-item failures never surface as the returned error; they are Failed
// outcomes in the result.
//
// The batch is detached from ctx cancellation: once started it runs until
// every intent has been attempted. Values carried by ctx are kept.
func (s *Submitter) Submit(ctx context.Context, intents []domain.DonationIntent) (domain.BatchResult, error) {
	if s.wallet == nil {
		return domain.BatchResult{}, domain.NewWalletNotConnected(len(intents))
	}

	ctx = context.WithoutCancel(ctx)

	result := domain.BatchResult{
		ID:        s.ids.Generate(),
		Outcomes:  make([]domain.Outcome, 0, len(intents)),
		StartedAt: s.now(),
	}

	for i, intent := range intents {
		o := s.submitOne(ctx, intent)
		result.Outcomes = append(result.Outcomes, o)

		if o.Submitted() {
			s.logger.Debug("transfer submitted",
				"batch", result.ID,
				"index", i,
				"project", intent.ProjectID,
				"amount", intent.Amount.String(),
				"currency", string(intent.Currency),
				"tx", o.TxRef,
			)
		} else {
			s.logger.Warn("transfer failed",
				"batch", result.ID,
				"index", i,
				"project", intent.ProjectID,
				"kind", string(o.Kind),
				"reason", o.Reason,
			)
		}
	}

	result.FinishedAt = s.now()

	s.logger.Info("batch submitted",
		"batch", result.ID,
		"intents", len(intents),
		"succeeded", result.SuccessCount(),
		"failed", result.FailCount(),
	)

	return result, nil
}

// submitOne performs a single transfer under the per-transfer deadline and
// converts every failure, panics included, into a Failed outcome.
func (s *Submitter) submitOne(ctx context.Context, intent domain.DonationIntent) (o domain.Outcome) {
	o.Intent = intent

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			o = failed(intent, domain.CodeTransferFailed, fmt.Sprintf("wallet panic: %v", r))
		}
	}()

	txRef, err := s.wallet.Transfer(ctx, intent.RecipientAddress, intent.Amount, intent.Currency)
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)):
		return failed(intent, domain.CodeTransferTimeout, fmt.Sprintf("transfer not confirmed within %s: %v", s.timeout, err))
	case err != nil:
		return failed(intent, domain.CodeTransferFailed, err.Error())
	case txRef == "":
		return failed(intent, domain.CodeTransferFailed, "wallet returned an empty transaction reference")
	}

	o.Status = domain.StatusSubmitted
	o.TxRef = txRef
	return o
}

func failed(intent domain.DonationIntent, kind domain.ErrorCode, reason string) domain.Outcome {
	return domain.Outcome{
		Intent: intent,
		Status: domain.StatusFailed,
		Reason: reason,
		Kind:   kind,
	}
}
