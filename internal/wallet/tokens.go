package wallet

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/domain"
)

// Token is a supported stablecoin contract on Celo.
type Token struct {
	Symbol   domain.Currency `json:"symbol"`
	Address  string          `json:"address"`
	Decimals int32           `json:"decimals"`
}

// tokenDecimals is the precision of every supported stablecoin.
const tokenDecimals = 18

var celoTokens = []Token{
	{Symbol: domain.CUSD, Address: "0x765de816845861e75a25fca122bb6898b8b1282a", Decimals: tokenDecimals},
	{Symbol: domain.USDT, Address: "0x617f3112bf5397D0467D315cC709EF968D9ba546", Decimals: tokenDecimals},
	{Symbol: domain.USDC, Address: "0xcebA9300f2b948710d2653dD7B07f33A8B32118C", Decimals: tokenDecimals},
}

// Tokens returns the registry in currency order.
func Tokens() []Token {
	out := make([]Token, len(celoTokens))
	copy(out, celoTokens)
	return out
}

// LookupToken returns the token for currency.
func LookupToken(c domain.Currency) (Token, bool) {
	for _, t := range celoTokens {
		if t.Symbol == c {
			return t, true
		}
	}
	return Token{}, false
}

// ToBaseUnits converts a token amount to its integer base units.
// Amounts finer than the token's precision are rejected, never rounded.
func (t Token) ToBaseUnits(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%s: negative amount %s", t.Symbol, amount)
	}
	shifted := amount.Shift(t.Decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%s: amount %s has more than %d decimal places", t.Symbol, amount, t.Decimals)
	}
	return shifted.BigInt(), nil
}

// FromBaseUnits converts integer base units back to a token amount.
func (t Token) FromBaseUnits(units *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(units, -t.Decimals)
}
