package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/store"
)

// Ledger is a wallet whose funds live in the SQLite ledger.
type Ledger struct {
	store   *store.Store
	address string
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithNow overrides the timestamp source for transfer records.
func WithNow(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithIDFunc overrides transfer record IDs (default UUIDv7).
func WithIDFunc(f func() string) LedgerOption {
	return func(l *Ledger) {
		l.newID = f
	}
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// NewLedger creates a wallet for address backed by s.
func NewLedger(s *store.Store, address string, opts ...LedgerOption) (*Ledger, error) {
	if !domain.ValidAddress(address) {
		return nil, domain.NewInvalidParameter("address", address, "is not a 0x-prefixed 40-hex address")
	}
	l := &Ledger{
		store:   s,
		address: strings.ToLower(address),
		now:     time.Now,
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Address returns the wallet's own address, lower-cased.
func (l *Ledger) Address() string { return l.address }

// Fund credits the wallet and returns the new balance.
func (l *Ledger) Fund(ctx context.Context, currency domain.Currency, amount decimal.Decimal) (decimal.Decimal, error) {
	if _, ok := LookupToken(currency); !ok {
		return decimal.Zero, fmt.Errorf("fund: unsupported token %q", currency)
	}
	return l.store.Credit(ctx, l.address, string(currency), amount)
}

// Balance returns the wallet's balance in currency.
func (l *Ledger) Balance(ctx context.Context, currency domain.Currency) (decimal.Decimal, error) {
	return l.store.Balance(ctx, l.address, string(currency))
}

// Transfers returns the wallet's transfer history in order.
func (l *Ledger) Transfers(ctx context.Context) ([]store.Transfer, error) {
	return l.store.ListTransfers(ctx, l.address)
}

// Transfer sends amount of currency to the recipient and returns the
// transaction hash. It implements batch.Wallet.
func (l *Ledger) Transfer(ctx context.Context, to string, amount decimal.Decimal, currency domain.Currency) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, ok := LookupToken(currency)
	if !ok {
		return "", fmt.Errorf("token address not found for %s", currency)
	}
	if !domain.ValidAddress(to) {
		return "", fmt.Errorf("invalid recipient address %q", to)
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("transfer amount %s must be positive", amount)
	}
	units, err := token.ToBaseUnits(amount)
	if err != nil {
		return "", err
	}

	id := l.newID()
	to = strings.ToLower(to)
	hash := txHash(id, l.address, to, token.Address, units.String())

	_, err = l.store.RecordTransfer(ctx, store.Transfer{
		ID:        id,
		TxHash:    hash,
		From:      l.address,
		To:        to,
		Currency:  string(currency),
		Token:     token.Address,
		Amount:    amount,
		BaseUnits: units.String(),
		CreatedAt: l.now(),
	})
	if err != nil {
		return "", err
	}

	l.logger.Debug("ledger transfer",
		"from", l.address,
		"to", to,
		"amount", amount.String(),
		"currency", string(currency),
		"tx", hash,
	)
	return hash, nil
}

// txHash derives a 32-byte transaction reference from the transfer fields.
func txHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "0x" + hex.EncodeToString(sum[:])
}
