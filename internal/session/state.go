package session

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/domain"
)

// State is a read-only copy of everything a UI renders for a session.
type State struct {
	SessionID       string                              `json:"sessionId"`
	Category        string                              `json:"category"`
	Cursor          int                                 `json:"cursor"`
	FeedLength      int                                 `json:"feedLength"`
	Current         *domain.Project                     `json:"current,omitempty"`
	Selection       Selection                           `json:"selection"`
	SwipeCount      int                                 `json:"swipeCount"`
	Progress        int                                 `json:"progress"`
	TotalSwipes     int                                 `json:"totalSwipes"`
	Cart            []domain.DonationIntent             `json:"cart"`
	CartTotals      map[domain.Currency]decimal.Decimal `json:"cartTotals"`
	Stats           Stats                               `json:"stats"`
	WalletConnected bool                                `json:"walletConnected"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() State {
	st := State{
		SessionID:       s.id,
		Category:        s.category,
		Cursor:          s.cursor,
		FeedLength:      len(s.projects),
		Selection:       s.selection,
		SwipeCount:      s.swipeCount,
		Progress:        s.Progress(),
		TotalSwipes:     s.totalSwipes,
		Cart:            s.Cart(),
		CartTotals:      s.CartTotals(),
		Stats:           s.Stats(),
		WalletConnected: s.WalletConnected(),
	}
	if p, ok := s.Current(); ok {
		st.Current = &p
	}
	return st
}
