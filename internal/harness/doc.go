// Package harness runs scripted swipe sessions and checks their outcome.
//
// A scenario drives a real engine and session with a pinned wall clock,
// sequential batch IDs and a scripted or SQLite-ledger wallet, so the same
// scenario always produces the same trace.
//
// # Scenario Format
//
//	name: auto_batch_partial_failure
//	description: "Third right swipe submits the cart; one transfer fails"
//	catalog: ../../catalog/testdata/projects.json
//	presets:
//	  thresholds: [3, 20]
//	wallet:
//	  kind: scripted
//	  fail_on: {2: "insufficient funds"}
//	flow:
//	  - invoke: select_parameters
//	    args: {amount: "0.10", currency: cUSD, threshold: 3}
//	  - invoke: swipe
//	    args: {direction: right}
//	    expect:
//	      case: Success
//	      result: {project: mangrove-restore}
//	assertions:
//	  - type: session_state
//	    expect: {swipeCount: 0}
//
// Flow commands are select_parameters, swipe, quick_donate, checkout,
// select_category, requeue_failed, connect_wallet, disconnect_wallet and
// advance_clock. A step's case is "Success" or the error code it failed
// with.
//
// # Assertion Types
//
//   - trace_contains: an action was invoked with matching args
//   - trace_order: actions were first invoked in the given order
//   - trace_count: an action was invoked exactly N times
//   - session_state: subset match on the final session snapshot
//   - badges: the exact set of badges shown
//   - transfer_count: transfers the wallet received or recorded
//   - final_state: subset match on one ledger row (ledger wallet only)
//
// # Golden Traces
//
// RunWithGolden compares the trace with testdata/golden/<name>.golden;
// run "go test ./internal/harness -update" to regenerate.
package harness
