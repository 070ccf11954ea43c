package harness

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/swipepad/internal/store"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.AddInvocationTrace(ActionSelectParameters, map[string]any{"amount": "0.10", "currency": "cUSD", "threshold": 3}, 1)
	r.AddCompletionTrace(ActionSelectParameters, CaseSuccess, map[string]any{"cart": 0}, 2)
	r.AddInvocationTrace(ActionSwipe, map[string]any{"direction": "right"}, 3)
	r.AddCompletionTrace(ActionSwipe, CaseSuccess, map[string]any{"cart": 1}, 4)
	r.AddInvocationTrace(ActionSwipe, map[string]any{"direction": "left"}, 5)
	r.AddCompletionTrace(ActionSwipe, CaseSuccess, map[string]any{"cart": 1}, 6)
	r.AddInvocationTrace(ActionCheckout, nil, 7)
	r.AddCompletionTrace(ActionCheckout, "WALLET_NOT_CONNECTED", nil, 8)
	return r.Trace
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ActionSwipe}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ActionSwipe, Args: map[string]any{"direction": "left"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ActionSelectParameters, Args: map[string]any{"threshold": 3}}))

	err := assertTraceContains(trace, Assertion{Action: ActionSwipe, Args: map[string]any{"direction": "up"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionSelectParameters, ActionCheckout}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionSwipe, ActionCheckout}}))

	err := assertTraceOrder(trace, Assertion{Actions: []string{ActionCheckout, ActionSwipe}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Actions: []string{ActionSwipe, ActionRequeueFailed}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: requeue_failed")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionSwipe, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionRequeueFailed, Count: 0}))
	assert.Error(t, assertTraceCount(trace, Assertion{Action: ActionSwipe, Count: 3}))
}

func TestAssertSessionState(t *testing.T) {
	state, ok := normalize(map[string]any{
		"swipeCount": 2,
		"stats": map[string]any{
			"totalDonations": 3,
			"categories":     []string{"A", "B"},
		},
	}).(map[string]any)
	require.True(t, ok)

	assert.NoError(t, assertSessionState(state, Assertion{Expect: map[string]any{"swipeCount": 2}}))
	assert.NoError(t, assertSessionState(state, Assertion{Expect: map[string]any{
		"stats": map[string]any{"totalDonations": 3},
	}}))
	assert.NoError(t, assertSessionState(state, Assertion{Expect: map[string]any{
		"stats": map[string]any{"categories": []any{"A", "B"}},
	}}))

	assert.Error(t, assertSessionState(state, Assertion{Expect: map[string]any{"swipeCount": 1}}))
	assert.Error(t, assertSessionState(state, Assertion{Expect: map[string]any{"cursor": 0}}))
	assert.Error(t, assertSessionState(state, Assertion{Expect: map[string]any{
		"stats": map[string]any{"categories": []any{"A"}},
	}}))
}

func TestAssertBadges(t *testing.T) {
	shown := []string{"Category Champion", "First Swipe"}

	assert.NoError(t, assertBadges(shown, Assertion{Badges: []string{"First Swipe", "Category Champion"}}))
	assert.Error(t, assertBadges(shown, Assertion{Badges: []string{"First Swipe"}}))
	assert.NoError(t, assertBadges(nil, Assertion{}))
}

func TestAssertFinalState(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.Credit(ctx, "0xabc", "cUSD", decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	_, err = st.Credit(ctx, "0xabc", "USDT", decimal.RequireFromString("2"))
	require.NoError(t, err)

	ok := Assertion{Table: "balances", Where: map[string]any{"address": "0xabc", "currency": "cUSD"}, Expect: map[string]any{"amount": "1.5"}}
	assert.NoError(t, assertFinalState(ctx, st, ok))

	wrong := Assertion{Table: "balances", Where: map[string]any{"address": "0xabc", "currency": "cUSD"}, Expect: map[string]any{"amount": "2"}}
	assert.Error(t, assertFinalState(ctx, st, wrong))

	ambiguous := Assertion{Table: "balances", Where: map[string]any{"address": "0xabc"}, Expect: map[string]any{"amount": "2"}}
	err = assertFinalState(ctx, st, ambiguous)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	missing := Assertion{Table: "balances", Where: map[string]any{"address": "0xdef"}, Expect: map[string]any{"amount": "2"}}
	err = assertFinalState(ctx, st, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row not found")

	injected := Assertion{Table: "balances; DROP TABLE balances", Expect: map[string]any{"amount": "2"}}
	assert.Error(t, assertFinalState(ctx, st, injected))

	badColumn := Assertion{Table: "balances", Where: map[string]any{"1=1 OR address": "x"}, Expect: map[string]any{"amount": "2"}}
	assert.Error(t, assertFinalState(ctx, st, badColumn))
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual("a", "a"))
	assert.True(t, stateValuesEqual("a", []byte("a")))
	assert.True(t, stateValuesEqual(3, int64(3)))
	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.True(t, stateValuesEqual(nil, nil))
	assert.False(t, stateValuesEqual("3", int64(3)))
	assert.False(t, stateValuesEqual(nil, "x"))
}

func TestMatchSubset(t *testing.T) {
	actual := normalize(map[string]any{
		"batch": map[string]any{"id": "batch-1", "submitted": 2},
		"cart":  0,
	})

	assert.True(t, matchSubset(actual, normalize(map[string]any{"cart": 0})))
	assert.True(t, matchSubset(actual, normalize(map[string]any{"batch": map[string]any{"submitted": 2}})))
	assert.False(t, matchSubset(actual, normalize(map[string]any{"batch": map[string]any{"failed": 0}})))
	assert.False(t, matchSubset(actual, normalize(map[string]any{"cart": "0"})))
}
