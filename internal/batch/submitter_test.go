package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intents(n int) []domain.DonationIntent {
	out := make([]domain.DonationIntent, n)
	for i := range out {
		out[i] = domain.DonationIntent{
			ProjectID:        fmt.Sprintf("p%d", i+1),
			RecipientAddress: fmt.Sprintf("0x%040d", i+1),
			Amount:           decimal.RequireFromString("0.10"),
			Currency:         domain.CUSD,
		}
	}
	return out
}

func newTestSubmitter(w Wallet, opts ...Option) *Submitter {
	base := []Option{
		WithLogger(quietLogger()),
		WithIDGenerator(NewSequenceGenerator("batch")),
	}
	return New(w, append(base, opts...)...)
}

func TestSubmit_PartialFailureIsolation(t *testing.T) {
	w := testutil.NewScriptedWallet().
		FailOn(2, "user rejected").
		FailOn(4, "insufficient balance")
	s := newTestSubmitter(w)

	result, err := s.Submit(context.Background(), intents(5))
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 5)
	assert.Equal(t, 3, result.SuccessCount())
	assert.Equal(t, 2, result.FailCount())
	assert.Len(t, w.Calls(), 5, "every intent is attempted")

	wantStatus := []domain.OutcomeStatus{
		domain.StatusSubmitted,
		domain.StatusFailed,
		domain.StatusSubmitted,
		domain.StatusFailed,
		domain.StatusSubmitted,
	}
	for i, o := range result.Outcomes {
		assert.Equal(t, fmt.Sprintf("p%d", i+1), o.Intent.ProjectID, "outcomes keep batch order")
		assert.Equal(t, wantStatus[i], o.Status, "outcome %d", i)
	}

	assert.Equal(t, "tx-1", result.Outcomes[0].TxRef)
	assert.Equal(t, "user rejected", result.Outcomes[1].Reason)
	assert.Equal(t, domain.CodeTransferFailed, result.Outcomes[1].Kind)
	assert.Equal(t, "insufficient balance", result.Outcomes[3].Reason)
	assert.Equal(t, "tx-5", result.Outcomes[4].TxRef)
}

func TestSubmit_CallsWalletWithIntentFields(t *testing.T) {
	w := testutil.NewScriptedWallet()
	s := newTestSubmitter(w)

	in := intents(1)
	in[0].Currency = domain.USDC
	in[0].Amount = decimal.RequireFromString("0.50")

	_, err := s.Submit(context.Background(), in)
	require.NoError(t, err)

	calls := w.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, in[0].RecipientAddress, calls[0].To)
	assert.True(t, calls[0].Amount.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, domain.USDC, calls[0].Currency)
}

func TestSubmit_WalletNotConnected(t *testing.T) {
	s := newTestSubmitter(nil)
	assert.False(t, s.Connected())

	result, err := s.Submit(context.Background(), intents(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrWalletNotConnected))
	assert.Empty(t, result.Outcomes)
}

func TestSubmit_ConnectDisconnect(t *testing.T) {
	w := testutil.NewScriptedWallet()
	s := newTestSubmitter(nil)

	s.Connect(w)
	assert.True(t, s.Connected())
	_, err := s.Submit(context.Background(), intents(1))
	require.NoError(t, err)

	s.Disconnect()
	_, err = s.Submit(context.Background(), intents(1))
	assert.True(t, errors.Is(err, domain.ErrWalletNotConnected))
	assert.Len(t, w.Calls(), 1)
}

func TestSubmit_EmptyBatch(t *testing.T) {
	w := testutil.NewScriptedWallet()
	s := newTestSubmitter(w)

	result, err := s.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "batch-1", result.ID)
	assert.Empty(t, result.Outcomes)
	assert.Equal(t, 0, result.SuccessCount())
	assert.Empty(t, w.Calls())
}

func TestSubmit_TimeoutIsAFailureKind(t *testing.T) {
	w := testutil.NewScriptedWallet().HangOn(2)
	s := newTestSubmitter(w, WithTimeout(20*time.Millisecond))

	result, err := s.Submit(context.Background(), intents(3))
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 3)
	assert.True(t, result.Outcomes[0].Submitted())
	assert.Equal(t, domain.CodeTransferTimeout, result.Outcomes[1].Kind)
	assert.True(t, errors.Is(result.Outcomes[1].Err(), domain.ErrTransferTimeout))
	assert.True(t, result.Outcomes[2].Submitted(), "batch continues after a timeout")
}

// slowWallet ignores ctx and settles after delay.
type slowWallet struct{ delay time.Duration }

func (w slowWallet) Transfer(context.Context, string, decimal.Decimal, domain.Currency) (string, error) {
	time.Sleep(w.delay)
	return "0xslow", nil
}

func TestSubmit_TimeoutReliesOnWalletHonouringContext(t *testing.T) {
	s := newTestSubmitter(slowWallet{delay: 50 * time.Millisecond}, WithTimeout(5*time.Millisecond))

	start := time.Now()
	result, err := s.Submit(context.Background(), intents(1))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "the submitter waits for the wallet")
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, domain.StatusSubmitted, result.Outcomes[0].Status)
	assert.Equal(t, "0xslow", result.Outcomes[0].TxRef)
}

func TestSubmit_PanicBecomesFailedOutcome(t *testing.T) {
	w := testutil.NewScriptedWallet().PanicOn(1)
	s := newTestSubmitter(w)

	result, err := s.Submit(context.Background(), intents(2))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, result.Outcomes[0].Status)
	assert.Contains(t, result.Outcomes[0].Reason, "wallet panic")
	assert.True(t, result.Outcomes[1].Submitted())
}

func TestSubmit_CancelledContextDoesNotAbortBatch(t *testing.T) {
	w := testutil.NewScriptedWallet()
	s := newTestSubmitter(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Submit(ctx, intents(3))
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount())
}

type emptyRefWallet struct{}

func (emptyRefWallet) Transfer(context.Context, string, decimal.Decimal, domain.Currency) (string, error) {
	return "", nil
}

func TestSubmit_EmptyTxRefIsFailure(t *testing.T) {
	s := newTestSubmitter(emptyRefWallet{})

	result, err := s.Submit(context.Background(), intents(1))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, result.Outcomes[0].Status)
	assert.Contains(t, result.Outcomes[0].Reason, "empty transaction reference")
}

func TestSubmit_StampsTimes(t *testing.T) {
	clock := testutil.NewFixedClock(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	s := newTestSubmitter(testutil.NewScriptedWallet(), WithNow(clock.Now))

	result, err := s.Submit(context.Background(), intents(1))
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), result.StartedAt)
	assert.Equal(t, clock.Now(), result.FinishedAt)
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("")
	assert.Equal(t, "batch-1", g.Generate())
	assert.Equal(t, "batch-2", g.Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
