package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/domain"
	"github.com/roach88/swipepad/internal/engine"
	"github.com/roach88/swipepad/internal/session"
)

// command builds the engine command for a flow step.
func (h *Harness) command(step FlowStep) (engine.Command, error) {
	args := step.Args
	switch step.Invoke {
	case ActionSelectParameters:
		amount, err := argDecimal(args, "amount")
		if err != nil {
			return nil, err
		}
		currency, err := argString(args, "currency")
		if err != nil {
			return nil, err
		}
		threshold, err := argInt(args, "threshold")
		if err != nil {
			return nil, err
		}
		// Unknown currencies go through unparsed so the session rejects them.
		cur, perr := domain.ParseCurrency(currency)
		if perr != nil {
			cur = domain.Currency(currency)
		}
		return engine.SelectParameters{Amount: amount, Currency: cur, Threshold: threshold}, nil

	case ActionSwipe:
		s, err := argString(args, "direction")
		if err != nil {
			return nil, err
		}
		dir, err := domain.ParseDirection(s)
		if err != nil {
			return nil, err
		}
		return engine.Swipe{Direction: dir}, nil

	case ActionQuickDonate:
		id, err := argString(args, "project")
		if err != nil {
			return nil, err
		}
		p, ok := h.catalog.Get(id)
		if !ok {
			return nil, fmt.Errorf("unknown project %q: %w", id, domain.ErrNoProject)
		}
		cmd := engine.QuickDonate{Project: p}
		if _, ok := args["amount"]; ok {
			if cmd.Amount, err = argDecimal(args, "amount"); err != nil {
				return nil, err
			}
		}
		if _, ok := args["currency"]; ok {
			s, err := argString(args, "currency")
			if err != nil {
				return nil, err
			}
			if cmd.Currency, err = domain.ParseCurrency(s); err != nil {
				return nil, err
			}
		}
		if _, ok := args["message"]; ok {
			if cmd.Message, err = argString(args, "message"); err != nil {
				return nil, err
			}
		}
		return cmd, nil

	case ActionCheckout:
		return engine.Checkout{}, nil

	case ActionSelectCategory:
		var category string
		if _, ok := args["category"]; ok {
			var err error
			if category, err = argString(args, "category"); err != nil {
				return nil, err
			}
		}
		return engine.SelectCategory{Category: category}, nil

	case ActionRequeueFailed:
		return engine.RequeueFailed{Result: h.lastBatch}, nil

	case ActionConnectWallet:
		return engine.ConnectWallet{Wallet: h.wallet}, nil

	case ActionDisconnectWallet:
		return engine.DisconnectWallet{}, nil
	}
	return nil, fmt.Errorf("unknown action %q", step.Invoke)
}

// summarize reduces a command reply to the fields a trace shows.
func (h *Harness) summarize(value any) map[string]any {
	out := map[string]any{}
	switch v := value.(type) {
	case session.Selection:
		out["amount"] = v.Amount.String()
		out["currency"] = string(v.Currency)
		out["threshold"] = v.Threshold

	case session.SwipeResult:
		out["direction"] = v.Direction.String()
		if v.Project.ID != "" {
			out["project"] = v.Project.ID
		}
		if v.Intent != nil {
			out["amount"] = v.Intent.Amount.String()
			out["currency"] = string(v.Intent.Currency)
		}
		if v.Batch != nil {
			h.lastBatch = *v.Batch
			out["batch"] = batchSummary(*v.Batch)
		}
		if v.BatchErr != nil {
			out["batchError"] = string(domain.CodeOf(v.BatchErr))
		}
		addBadges(out, v.Badges)

	case engine.QuickDonation:
		out["project"] = v.Intent.ProjectID
		out["amount"] = v.Intent.Amount.String()
		out["currency"] = string(v.Intent.Currency)
		addBadges(out, v.Badges)

	case session.CheckoutResult:
		h.lastBatch = v.Batch
		out["batch"] = batchSummary(v.Batch)
		addBadges(out, v.Badges)

	case int:
		// select_category and requeue_failed reply with a count.
		out["count"] = v

	case nil:
	}
	return out
}

func batchSummary(r domain.BatchResult) map[string]any {
	statuses := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		statuses[i] = string(o.Status)
		if o.Kind != "" {
			statuses[i] += ":" + string(o.Kind)
		}
	}
	return map[string]any{
		"id":        r.ID,
		"submitted": r.SuccessCount(),
		"failed":    r.FailCount(),
		"outcomes":  statuses,
	}
}

func addBadges(out map[string]any, badges []session.Badge) {
	if len(badges) == 0 {
		return
	}
	names := make([]string, len(badges))
	for i, b := range badges {
		names[i] = string(b)
	}
	out["badges"] = names
}

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int, int64, float64, bool:
		return fmt.Sprint(s), nil
	}
	return "", fmt.Errorf("arg %q: expected string, got %T", key, v)
}

func argInt(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("arg %q: expected integer, got %v", key, v)
}

// argDecimal accepts quoted decimals ("0.10") and YAML numbers.
func argDecimal(args map[string]any, key string) (decimal.Decimal, error) {
	v, ok := args[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing arg %q", key)
	}
	switch n := v.(type) {
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("arg %q: %w", key, err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	}
	return decimal.Zero, fmt.Errorf("arg %q: expected decimal, got %T", key, v)
}

func argDuration(args map[string]any, key string) (time.Duration, error) {
	s, err := argString(args, key)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("arg %q: %w", key, err)
	}
	return d, nil
}

// normalize round-trips v through JSON so YAML-decoded expectations and
// Go values compare with the same types.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// matchSubset reports whether actual contains expected. Maps match when
// every expected key matches; other values must be equal.
func matchSubset(actual, expected any) bool {
	em, ok := expected.(map[string]any)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	am, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for k, ev := range em {
		av, exists := am[k]
		if !exists || !matchSubset(av, ev) {
			return false
		}
	}
	return true
}
