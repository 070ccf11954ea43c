package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTrace_Format(t *testing.T) {
	r := NewResult()
	r.AddInvocationTrace(ActionCheckout, map[string]any{}, 1)
	r.AddCompletionTrace(ActionCheckout, CaseSuccess, map[string]any{"swipeCount": 0, "cart": 0}, 2)

	data, err := MarshalTrace("tiny", r.Trace)
	require.NoError(t, err)

	want := `{
  "scenario_name": "tiny",
  "trace": [
    {
      "seq": 1,
      "type": "invocation",
      "action": "checkout"
    },
    {
      "seq": 2,
      "type": "completion",
      "action": "checkout",
      "case": "Success",
      "result": {
        "cart": 0,
        "swipeCount": 0
      }
    }
  ]
}
`
	assert.Equal(t, want, string(data))
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	s := loadTestScenario(t, "no_wallet_auto_trigger")
	result, err := Run(s)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, s.Name, result))
}
