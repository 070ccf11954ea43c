// Package wallet provides the token registry and a development wallet.
//
// Ledger implements the batch.Wallet capability against the SQLite ledger
// in package store: a transfer debits the wallet's own address and
// credits the recipient, and the returned transaction reference is a
// 0x-prefixed 32-byte hash. It stands in for an on-chain wallet in the
// CLI and in end-to-end tests.
package wallet
