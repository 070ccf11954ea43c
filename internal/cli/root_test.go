package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = "../catalog/testdata/projects.json"

// execute runs the root command with an isolated config directory.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeWithConfig(t, t.TempDir(), stdin, args...)
}

func executeWithConfig(t *testing.T, configDir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "swipepad.yaml"), []byte(body), 0o644))
	return dir
}

// decodeResponses parses one CLIResponse per output line.
func decodeResponses(t *testing.T, out string) []map[string]any {
	t.Helper()
	var responses []map[string]any
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var r map[string]any
		require.NoError(t, dec.Decode(&r), "output: %s", out)
		responses = append(responses, r)
	}
	return responses
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "swipepad", cmd.Use)
	assert.Contains(t, cmd.Long, "swipe-to-donate")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"catalog", "list"},
		{"catalog", "categories"},
		{"session"},
		{"simulate"},
		{"ledger", "fund"},
		{"ledger", "balance"},
		{"ledger", "transfers"},
		{"serve"},
	}

	for _, path := range commands {
		t.Run(strings.Join(path, "_"), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		path []string
		flag string
	}{
		{[]string{"session"}, "catalog"},
		{[]string{"session"}, "db"},
		{[]string{"session"}, "wallet"},
		{[]string{"session"}, "seed"},
		{[]string{"simulate"}, "golden"},
		{[]string{"simulate"}, "update"},
		{[]string{"simulate"}, "filter"},
		{[]string{"serve"}, "addr"},
		{[]string{"catalog", "list"}, "category"},
		{[]string{"ledger", "transfers"}, "address"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.path, "_")+"_"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find(tt.path)
			require.NoError(t, err)
			assert.NotNil(t, sub.Flag(tt.flag))
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "", "--format", "xml", "catalog", "list", "--catalog", testCatalog)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidConfig(t *testing.T) {
	dir := writeConfig(t, "stats_policy: never\n")
	_, err := executeWithConfig(t, dir, "", "catalog", "list", "--catalog", testCatalog)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestConfigSuppliesCatalogPath(t *testing.T) {
	abs, err := filepath.Abs(testCatalog)
	require.NoError(t, err)
	dir := writeConfig(t, "catalog_path: "+abs+"\n")

	out, err := executeWithConfig(t, dir, "", "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "mangrove-restore")
}

func TestFlagErrors_ExitCommandError(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown long flag", []string{"catalog", "list", "--bogus"}},
		{"unknown shorthand", []string{"ledger", "fund", donorAddress, "cUSD", "-1", "--db", db}},
		{"bad int value", []string{"session", "--catalog", testCatalog, "--seed", "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "invalid flags")
		})
	}
}
