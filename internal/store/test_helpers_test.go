package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// createTestStore opens a fresh ledger in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTransfer creates a transfer with minimal required fields.
func createTestTransfer(id, from, to, amount string) Transfer {
	return Transfer{
		ID:        id,
		TxHash:    "0xhash-" + id,
		From:      from,
		To:        to,
		Currency:  "cUSD",
		Token:     "0x765de816845861e75a25fca122bb6898b8b1282a",
		Amount:    decimal.RequireFromString(amount),
		BaseUnits: "0",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}
