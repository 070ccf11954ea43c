package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/swipepad/internal/config"
	"github.com/roach88/swipepad/internal/domain"
)

// Scenario is a scripted swipe session.
// A scenario drives one session through the engine, step by step, and then
// asserts on the trace, the session state and the ledger.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is a catalog file, relative to the scenario file.
	// Exactly one of Catalog and Projects must be set.
	Catalog string `yaml:"catalog,omitempty"`

	// Projects is an inline catalog.
	Projects []domain.Project `yaml:"projects,omitempty"`

	// Start is the wall-clock time the session begins at.
	// Defaults to DefaultStart.
	Start time.Time `yaml:"start,omitempty"`

	// StatsPolicy is "accept" (default) or "settle".
	StatsPolicy string `yaml:"stats_policy,omitempty"`

	// Presets overrides the default presets. Omitted fields keep defaults.
	Presets *config.Presets `yaml:"presets,omitempty"`

	// Seed shuffles the feed when non-zero. Zero keeps catalog order.
	Seed uint64 `yaml:"seed,omitempty"`

	// Timeout bounds each transfer. Defaults to DefaultTransferTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Wallet configures the wallet connected at start.
	Wallet WalletSpec `yaml:"wallet"`

	// Flow is the list of commands sent to the engine, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace, session and ledger.
	Assertions []Assertion `yaml:"assertions"`
}

// Wallet kinds.
const (
	WalletNone     = "none"
	WalletScripted = "scripted"
	WalletLedger   = "ledger"
)

// WalletSpec describes the wallet behind the session.
type WalletSpec struct {
	// Kind is "none", "scripted" (default) or "ledger".
	Kind string `yaml:"kind,omitempty"`

	// FailOn maps a 1-based transfer call number to a failure reason
	// (scripted wallet only).
	FailOn map[int]string `yaml:"fail_on,omitempty"`

	// HangOn lists transfer calls that block until the timeout
	// (scripted wallet only).
	HangOn []int `yaml:"hang_on,omitempty"`

	// Address is the ledger wallet's own address (ledger wallet only).
	Address string `yaml:"address,omitempty"`

	// Fund credits the ledger wallet before the flow, keyed by currency.
	Fund map[string]string `yaml:"fund,omitempty"`
}

// FlowStep sends one command to the engine.
type FlowStep struct {
	// Invoke is the command name, e.g. "swipe". See Actions.
	Invoke string `yaml:"invoke"`

	// Args contains the command arguments.
	Args map[string]any `yaml:"args"`

	// Expect specifies the expected completion. Nil means the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected completion of a step.
type ExpectClause struct {
	// Case is "Success" or an error code such as "AMOUNT_NOT_SELECTED".
	Case string `yaml:"case"`

	// Result is a subset match against the completion result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the command name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected arguments (trace_contains, subset match).
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the expected number of occurrences (trace_count,
	// transfer_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Badges is the exact set of badges shown (badges).
	Badges []string `yaml:"badges,omitempty"`

	// Table and Where select one ledger row (final_state).
	Table string         `yaml:"table,omitempty"`
	Where map[string]any `yaml:"where,omitempty"`

	// Expect is a subset match against the session snapshot
	// (session_state) or the selected row (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertSessionState  = "session_state"
	AssertBadges        = "badges"
	AssertTransferCount = "transfer_count"
	AssertFinalState    = "final_state"
)

// Flow commands.
const (
	ActionSelectParameters = "select_parameters"
	ActionSwipe            = "swipe"
	ActionQuickDonate      = "quick_donate"
	ActionCheckout         = "checkout"
	ActionSelectCategory   = "select_category"
	ActionRequeueFailed    = "requeue_failed"
	ActionConnectWallet    = "connect_wallet"
	ActionDisconnectWallet = "disconnect_wallet"
	ActionAdvanceClock     = "advance_clock"
)

// Actions lists every flow command.
var Actions = []string{
	ActionSelectParameters,
	ActionSwipe,
	ActionQuickDonate,
	ActionCheckout,
	ActionSelectCategory,
	ActionRequeueFailed,
	ActionConnectWallet,
	ActionDisconnectWallet,
	ActionAdvanceClock,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected and a relative Catalog path is resolved
// against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}

	if s.Catalog != "" && !filepath.IsAbs(s.Catalog) {
		s.Catalog = filepath.Join(filepath.Dir(path), s.Catalog)
	}
	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); err != nil {
			return nil, fmt.Errorf("scenario %s: catalog: %w", path, err)
		}
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Catalog == "") == (len(s.Projects) == 0) {
		return fmt.Errorf("exactly one of catalog and projects is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	switch s.Wallet.Kind {
	case "", WalletNone, WalletScripted, WalletLedger:
	default:
		return fmt.Errorf("wallet: unknown kind %q", s.Wallet.Kind)
	}
	if s.Wallet.Kind == WalletLedger && !domain.ValidAddress(s.Wallet.Address) {
		return fmt.Errorf("wallet: ledger wallet needs a valid address")
	}

	for i, step := range s.Flow {
		if !isAction(step.Invoke) {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Invoke)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func isAction(name string) bool {
	for _, a := range Actions {
		if a == name {
			return true
		}
	}
	return false
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertSessionState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for session_state", index)
		}
	case AssertBadges, AssertTransferCount:
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
