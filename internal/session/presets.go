package session

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/domain"
)

// Presets enumerates the values selectDonationParameters accepts.
type Presets struct {
	Amounts    []decimal.Decimal
	Currencies []domain.Currency
	Thresholds []int

	// DefaultCurrency and DefaultThreshold are in effect before the first
	// selection.
	DefaultCurrency  domain.Currency
	DefaultThreshold int
}

// DefaultPresets returns the amount selector of the swipe screen:
// 1, 10, 20 or 50 cents in cUSD, USDT or USDC, confirmed every 10, 20 or
// 30 swipes.
func DefaultPresets() Presets {
	return Presets{
		Amounts: []decimal.Decimal{
			decimal.RequireFromString("0.01"),
			decimal.RequireFromString("0.10"),
			decimal.RequireFromString("0.20"),
			decimal.RequireFromString("0.50"),
		},
		Currencies:       []domain.Currency{domain.CUSD, domain.USDT, domain.USDC},
		Thresholds:       []int{10, 20, 30},
		DefaultCurrency:  domain.USDT,
		DefaultThreshold: 20,
	}
}

// Validate checks the presets are usable.
func (p Presets) Validate() error {
	if len(p.Amounts) == 0 {
		return fmt.Errorf("presets: no amounts")
	}
	if len(p.Currencies) == 0 {
		return fmt.Errorf("presets: no currencies")
	}
	if len(p.Thresholds) == 0 {
		return fmt.Errorf("presets: no thresholds")
	}
	for _, a := range p.Amounts {
		if !a.IsPositive() {
			return fmt.Errorf("presets: amount %s must be positive", a)
		}
	}
	for _, c := range p.Currencies {
		if !c.Valid() {
			return fmt.Errorf("presets: unsupported currency %q", c)
		}
	}
	for _, t := range p.Thresholds {
		if t <= 0 {
			return fmt.Errorf("presets: threshold %d must be positive", t)
		}
	}
	if !p.allowsCurrency(p.DefaultCurrency) {
		return fmt.Errorf("presets: default currency %q is not a preset", p.DefaultCurrency)
	}
	if !p.allowsThreshold(p.DefaultThreshold) {
		return fmt.Errorf("presets: default threshold %d is not a preset", p.DefaultThreshold)
	}
	return nil
}

// check returns an InvalidParameter error for the first value outside the
// presets.
func (p Presets) check(amount decimal.Decimal, currency domain.Currency, threshold int) error {
	if !p.allowsAmount(amount) {
		return domain.NewInvalidParameter("amount", amount.String(), "is not a preset amount")
	}
	if !p.allowsCurrency(currency) {
		return domain.NewInvalidParameter("currency", string(currency), "is not a supported currency")
	}
	if !p.allowsThreshold(threshold) {
		return domain.NewInvalidParameter("threshold", strconv.Itoa(threshold), "is not a preset threshold")
	}
	return nil
}

func (p Presets) allowsAmount(a decimal.Decimal) bool {
	return slices.ContainsFunc(p.Amounts, a.Equal)
}

func (p Presets) allowsCurrency(c domain.Currency) bool {
	return slices.Contains(p.Currencies, c)
}

func (p Presets) allowsThreshold(t int) bool {
	return slices.Contains(p.Thresholds, t)
}
