package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DonationIntent is a recorded decision to donate Amount of Currency to a
// project, prior to settlement.
//
// Intents are values: the cart hands out copies and removal deletes the
// element, so nothing ever edits an intent after NewIntent returns it.
type DonationIntent struct {
	ProjectID        string          `json:"projectId"`
	ProjectName      string          `json:"projectName,omitempty"`
	Category         string          `json:"category,omitempty"`
	RecipientAddress string          `json:"recipientAddress"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         Currency        `json:"currency"`
	Message          string          `json:"message,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// NewIntent snapshots p into an intent. The amount must be positive and the
// currency supported; the project must carry a recipient address.
func NewIntent(p Project, amount decimal.Decimal, currency Currency, message string, at time.Time) (DonationIntent, error) {
	if !amount.IsPositive() {
		return DonationIntent{}, NewInvalidParameter("amount", amount.String(), "must be greater than zero")
	}
	if !currency.Valid() {
		return DonationIntent{}, NewInvalidParameter("currency", string(currency), "is not a supported token")
	}
	if strings.TrimSpace(p.RecipientAddress) == "" {
		return DonationIntent{}, NewInvalidParameter("recipientAddress", p.ID, "project has no recipient address")
	}
	return DonationIntent{
		ProjectID:        p.ID,
		ProjectName:      p.Name,
		Category:         p.Category,
		RecipientAddress: p.RecipientAddress,
		Amount:           amount,
		Currency:         currency,
		Message:          message,
		CreatedAt:        at,
	}, nil
}
