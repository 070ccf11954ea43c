package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned when a debit exceeds the balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Transfer is one settled ledger transfer.
type Transfer struct {
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	TxHash    string          `json:"txHash"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Currency  string          `json:"currency"`
	Token     string          `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	BaseUnits string          `json:"baseUnits"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Credit adds amount to the balance of (address, currency) and returns the
// new balance. amount must be positive.
func (s *Store) Credit(ctx context.Context, address, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("credit: amount %s must be positive", amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	bal, err := adjust(ctx, tx, address, currency, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("credit: commit: %w", err)
	}
	return bal, nil
}

// Balance returns the balance of (address, currency), zero if none.
func (s *Store) Balance(ctx context.Context, address, currency string) (decimal.Decimal, error) {
	bal, err := balance(ctx, s.db, address, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", err)
	}
	return bal, nil
}

// Balances returns every non-empty balance of address keyed by currency.
func (s *Store) Balances(ctx context.Context, address string) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT currency, amount FROM balances
		WHERE address = ?
		ORDER BY currency COLLATE BINARY ASC
	`, address)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var currency, amount string
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse balance %q: %w", amount, err)
		}
		if d.IsZero() {
			continue
		}
		out[currency] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}

// RecordTransfer debits t.From, credits t.To and appends t, atomically.
//
// Fails with ErrInsufficientBalance (wrapped) and writes nothing if the
// sender cannot cover t.Amount. Seq is assigned by the store and returned.
func (s *Store) RecordTransfer(ctx context.Context, t Transfer) (int64, error) {
	if !t.Amount.IsPositive() {
		return 0, fmt.Errorf("record transfer: amount %s must be positive", t.Amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("record transfer: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	have, err := balance(ctx, tx, t.From, t.Currency)
	if err != nil {
		return 0, fmt.Errorf("record transfer: %w", err)
	}
	if have.LessThan(t.Amount) {
		return 0, fmt.Errorf("record transfer: %w: %s has %s %s, needs %s",
			ErrInsufficientBalance, t.From, have, t.Currency, t.Amount)
	}

	if _, err := adjust(ctx, tx, t.From, t.Currency, t.Amount.Neg()); err != nil {
		return 0, fmt.Errorf("record transfer: debit: %w", err)
	}
	if _, err := adjust(ctx, tx, t.To, t.Currency, t.Amount); err != nil {
		return 0, fmt.Errorf("record transfer: credit: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO transfers
		(id, tx_hash, from_address, to_address, currency, token, amount, base_units, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.TxHash,
		t.From,
		t.To,
		t.Currency,
		t.Token,
		t.Amount.String(),
		t.BaseUnits,
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("record transfer: insert: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record transfer: seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record transfer: commit: %w", err)
	}
	return seq, nil
}

// ListTransfers returns transfers in seq order. A non-empty address keeps
// only transfers from or to it.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListTransfers(ctx context.Context, address string) ([]Transfer, error) {
	query := `
		SELECT seq, id, tx_hash, from_address, to_address, currency, token, amount, base_units, created_at
		FROM transfers
	`
	var args []any
	if address != "" {
		query += ` WHERE from_address = ? OR to_address = ?`
		args = append(args, address, address)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	transfers := []Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return transfers, nil
}

// ReadTransfer returns the transfer with the given transaction hash.
// Returns sql.ErrNoRows (wrapped) if it does not exist.
func (s *Store) ReadTransfer(ctx context.Context, txHash string) (Transfer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, tx_hash, from_address, to_address, currency, token, amount, base_units, created_at
		FROM transfers
		WHERE tx_hash = ?
	`, txHash)
	t, err := scanTransfer(row)
	if err != nil {
		return Transfer{}, fmt.Errorf("read transfer %s: %w", txHash, err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row scanner) (Transfer, error) {
	var (
		t       Transfer
		amount  string
		created string
	)
	if err := row.Scan(&t.Seq, &t.ID, &t.TxHash, &t.From, &t.To, &t.Currency, &t.Token, &amount, &t.BaseUnits, &created); err != nil {
		return Transfer{}, fmt.Errorf("scan transfer: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Transfer{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Amount = d
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Transfer{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	t.CreatedAt = ts
	return t, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func balance(ctx context.Context, q querier, address, currency string) (decimal.Decimal, error) {
	var amount string
	err := q.QueryRowContext(ctx, `
		SELECT amount FROM balances WHERE address = ? AND currency = ?
	`, address, currency).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("query balance: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", amount, err)
	}
	return d, nil
}

// adjust adds delta to a balance inside tx and returns the result.
func adjust(ctx context.Context, tx *sql.Tx, address, currency string, delta decimal.Decimal) (decimal.Decimal, error) {
	cur, err := balance(ctx, tx, address, currency)
	if err != nil {
		return decimal.Zero, err
	}
	next := cur.Add(delta)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO balances (address, currency, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(address, currency) DO UPDATE SET amount = excluded.amount
	`, address, currency, next.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}
	return next, nil
}
