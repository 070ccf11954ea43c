package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const donorAddress = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func TestLedgerFundAndBalance(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := execute(t, "", "ledger", "fund", donorAddress, "cusd", "1.5", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa balance: 1.5 cUSD\n", out)

	_, err = execute(t, "", "ledger", "fund", donorAddress, "cUSD", "0.5", "--db", db)
	require.NoError(t, err)

	out, err = execute(t, "", "--format", "json", "ledger", "balance", donorAddress, "--db", db)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"cUSD":"2"}}`, out)

	out, err = execute(t, "", "ledger", "balance", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "has no balances")
}

func TestLedgerFund_Rejects(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	tests := []struct {
		name string
		args []string
	}{
		{"bad address", []string{"0x123", "cUSD", "1"}},
		{"bad currency", []string{donorAddress, "EUR", "1"}},
		{"bad amount", []string{donorAddress, "cUSD", "lots"}},
		{"zero amount", []string{donorAddress, "cUSD", "0"}},
		{"negative amount", []string{donorAddress, "cUSD", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"ledger", "fund", "--db", db, "--"}, tt.args...)
			_, err := execute(t, "", args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestLedgerTransfers_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := execute(t, "", "ledger", "transfers", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No transfers.\n", out)

	out, err = execute(t, "", "--format", "json", "ledger", "transfers", "--db", db)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[]}`, out)

	_, err = execute(t, "", "ledger", "transfers", "--db", db, "--address", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
