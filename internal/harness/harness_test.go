package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swipepad/internal/domain"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{"auto_batch_partial_failure", "no_wallet_auto_trigger"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "auto_batch_partial_failure")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first.Trace)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_SeqIsMonotonic(t *testing.T) {
	result, err := Run(loadTestScenario(t, "streak_and_champion"))
	require.NoError(t, err)

	for i, ev := range result.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, EventInvocation, result.Trace[0].Type)
	assert.Equal(t, EventCompletion, result.Trace[1].Type)
}

func inlineScenario(flow ...FlowStep) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Projects: []domain.Project{
			{ID: "one", Name: "One", Category: "A", RecipientAddress: "0x1111111111111111111111111111111111111111"},
			{ID: "two", Name: "Two", Category: "B", RecipientAddress: "0x2222222222222222222222222222222222222222"},
		},
		Flow: flow,
	}
}

func TestRun_UnexpectedCaseFails(t *testing.T) {
	s := inlineScenario(FlowStep{
		Invoke: ActionSwipe,
		Args:   map[string]any{"direction": "right"},
	})

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected case Success, got AMOUNT_NOT_SELECTED")
}

func TestRun_ResultMismatchFails(t *testing.T) {
	s := inlineScenario(
		FlowStep{Invoke: ActionSelectParameters, Args: map[string]any{"amount": "0.01", "currency": "USDT", "threshold": 10}},
		FlowStep{
			Invoke: ActionSwipe,
			Args:   map[string]any{"direction": "left"},
			Expect: &ExpectClause{Case: CaseSuccess, Result: map[string]any{"project": "two"}},
		},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "does not contain")
}

func TestRun_InvalidPresetIsACase(t *testing.T) {
	s := inlineScenario(FlowStep{
		Invoke: ActionSelectParameters,
		Args:   map[string]any{"amount": "0.15", "currency": "USDT", "threshold": 10},
		Expect: &ExpectClause{Case: "INVALID_PARAMETER"},
	})

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownProjectIsNoProject(t *testing.T) {
	s := inlineScenario(FlowStep{
		Invoke: ActionQuickDonate,
		Args:   map[string]any{"project": "missing"},
		Expect: &ExpectClause{Case: "NO_PROJECT"},
	})

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_MalformedArgsError(t *testing.T) {
	s := inlineScenario(FlowStep{
		Invoke: ActionSelectParameters,
		Args:   map[string]any{"currency": "USDT", "threshold": 10},
	})

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing arg "amount"`)
}

func TestRun_FinalStateNeedsLedger(t *testing.T) {
	s := inlineScenario(FlowStep{Invoke: ActionCheckout})
	s.Assertions = []Assertion{{
		Type:   AssertFinalState,
		Table:  "balances",
		Expect: map[string]any{"amount": "1"},
	}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "requires a ledger wallet")
}

func TestRun_CollectsStateAndBadges(t *testing.T) {
	result, err := Run(loadTestScenario(t, "streak_and_champion"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, "session-streak_and_champion", result.State["sessionId"])
	assert.ElementsMatch(t, []string{"First Swipe", "Category Champion", "5-Day Streak"}, result.Badges)
	assert.Equal(t, 0, result.Transfers)
}
