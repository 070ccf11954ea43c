package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/domain"
)

// TransferCall records one call made to a ScriptedWallet.
type TransferCall struct {
	To       string
	Amount   decimal.Decimal
	Currency domain.Currency
}

// ScriptedWallet is a wallet whose behaviour is decided per call number.
//
// Calls are numbered from 1 across the wallet's lifetime. By default every
// call succeeds with transaction reference "tx-<n>". FailOn, HangOn and
// PanicOn script the exceptions.
type ScriptedWallet struct {
	mu      sync.Mutex
	failOn  map[int]string
	hangOn  map[int]bool
	panicOn map[int]bool
	calls   []TransferCall
}

// NewScriptedWallet creates a wallet that accepts every transfer.
func NewScriptedWallet() *ScriptedWallet {
	return &ScriptedWallet{
		failOn:  make(map[int]string),
		hangOn:  make(map[int]bool),
		panicOn: make(map[int]bool),
	}
}

// FailOn makes call n return an error with the given reason.
func (w *ScriptedWallet) FailOn(n int, reason string) *ScriptedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failOn[n] = reason
	return w
}

// HangOn makes call n block until its context is done.
func (w *ScriptedWallet) HangOn(n int) *ScriptedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hangOn[n] = true
	return w
}

// PanicOn makes call n panic.
func (w *ScriptedWallet) PanicOn(n int) *ScriptedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.panicOn[n] = true
	return w
}

// Transfer implements batch.Wallet.
func (w *ScriptedWallet) Transfer(ctx context.Context, to string, amount decimal.Decimal, currency domain.Currency) (string, error) {
	w.mu.Lock()
	w.calls = append(w.calls, TransferCall{To: to, Amount: amount, Currency: currency})
	n := len(w.calls)
	reason, fail := w.failOn[n]
	hang := w.hangOn[n]
	boom := w.panicOn[n]
	w.mu.Unlock()

	switch {
	case hang:
		<-ctx.Done()
		return "", ctx.Err()
	case boom:
		panic(fmt.Sprintf("scripted panic on call %d", n))
	case fail:
		return "", errors.New(reason)
	}
	return fmt.Sprintf("tx-%d", n), nil
}

// Calls returns a copy of the calls made so far.
func (w *ScriptedWallet) Calls() []TransferCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]TransferCall, len(w.calls))
	copy(out, w.calls)
	return out
}
