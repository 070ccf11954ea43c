package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "one swipe"
projects:
  - id: one
    name: One
    category: A
    recipientAddress: "0x1111111111111111111111111111111111111111"
flow:
  - invoke: swipe
    args: {direction: left}
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Projects, 1)
	assert.Equal(t, "one", s.Projects[0].ID)
	require.Len(t, s.Flow, 1)
	assert.Equal(t, ActionSwipe, s.Flow[0].Invoke)
	assert.Equal(t, "left", s.Flow[0].Args["direction"])
	assert.Nil(t, s.Flow[0].Expect)
}

func TestParseScenario_Fields(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: full
description: "every field"
catalog: projects.yaml
start: 2025-06-01T08:00:00Z
stats_policy: settle
seed: 7
timeout: 50ms
presets:
  thresholds: [2, 20]
wallet:
  kind: scripted
  fail_on: {1: "nope"}
  hang_on: [2]
flow:
  - invoke: checkout
    args: {}
    expect:
      case: WALLET_NOT_CONNECTED
assertions:
  - type: badges
    badges: []
`))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), s.Start.UTC())
	assert.Equal(t, 50*time.Millisecond, s.Timeout)
	assert.Equal(t, uint64(7), s.Seed)
	assert.Equal(t, []int{2, 20}, s.Presets.Thresholds)
	assert.Equal(t, "nope", s.Wallet.FailOn[1])
	assert.Equal(t, []int{2}, s.Wallet.HangOn)
	assert.Equal(t, "WALLET_NOT_CONNECTED", s.Flow[0].Expect.Case)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", minimalScenario + "assertion: []\n", "field assertion not found"},
		{"no name", "description: d\nprojects: []\nflow: []\n", "name is required"},
		{"no description", "name: n\n", "description is required"},
		{"no catalog", "name: n\ndescription: d\nflow: [{invoke: checkout}]\n", "exactly one of catalog and projects"},
		{"empty flow", "name: n\ndescription: d\ncatalog: c.yaml\n", "flow list is required"},
		{"unknown action", "name: n\ndescription: d\ncatalog: c.yaml\nflow: [{invoke: teleport}]\n", `unknown action "teleport"`},
		{"expect without case", "name: n\ndescription: d\ncatalog: c.yaml\nflow: [{invoke: checkout, expect: {result: {cart: 0}}}]\n", "case is required"},
		{"wallet kind", "name: n\ndescription: d\ncatalog: c.yaml\nwallet: {kind: paper}\nflow: [{invoke: checkout}]\n", `unknown kind "paper"`},
		{"ledger address", "name: n\ndescription: d\ncatalog: c.yaml\nwallet: {kind: ledger}\nflow: [{invoke: checkout}]\n", "valid address"},
		{"assertion type", "name: n\ndescription: d\ncatalog: c.yaml\nflow: [{invoke: checkout}]\nassertions: [{type: vibes}]\n", `unknown assertion type "vibes"`},
		{"trace_count action", "name: n\ndescription: d\ncatalog: c.yaml\nflow: [{invoke: checkout}]\nassertions: [{type: trace_count}]\n", "action is required for trace_count"},
		{"final_state table", "name: n\ndescription: d\ncatalog: c.yaml\nflow: [{invoke: checkout}]\nassertions: [{type: final_state, expect: {a: 1}}]\n", "table is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_ResolvesCatalogPath(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "auto_batch_partial_failure.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "catalog.yaml"), s.Catalog)
}

func TestLoadScenario_MissingCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	body := "name: n\ndescription: d\ncatalog: nowhere.yaml\nflow: [{invoke: checkout}]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
