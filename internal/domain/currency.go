package domain

import (
	"fmt"
	"strings"
)

// Currency identifies a supported USD-pegged stable token.
type Currency string

const (
	CUSD Currency = "cUSD"
	USDT Currency = "USDT"
	USDC Currency = "USDC"
)

// Currencies lists every currency the core knows about, in display order.
var Currencies = []Currency{CUSD, USDT, USDC}

// ParseCurrency resolves a token symbol case-insensitively ("cusd" -> cUSD).
func ParseCurrency(s string) (Currency, error) {
	s = strings.TrimSpace(s)
	for _, c := range Currencies {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", NewInvalidParameter("currency", s, "is not a supported token")
}

// Valid reports whether c is one of Currencies.
func (c Currency) Valid() bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// Direction is a swipe decision.
type Direction int

const (
	Left Direction = iota + 1
	Right
)

// ParseDirection accepts "left"/"l" and "right"/"r".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return 0, NewInvalidParameter("direction", s, "must be left or right")
	}
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// MarshalText encodes d as "left" or "right".
func (d Direction) MarshalText() ([]byte, error) {
	switch d {
	case Left, Right:
		return []byte(d.String()), nil
	}
	return nil, fmt.Errorf("invalid direction %d", int(d))
}

// UnmarshalText accepts the forms ParseDirection accepts.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
