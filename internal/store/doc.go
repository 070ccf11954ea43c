// Package store provides the SQLite ledger behind the development wallet.
//
// The ledger holds two tables:
//   - balances: one row per (address, currency), amount as a decimal string
//   - transfers: an append-only record of every settled transfer
//
// A transfer debits the sender, credits the recipient and appends the
// record in one transaction, so balances and history never disagree.
// Reads are ordered by seq, the insertion counter, never by timestamp.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
