package session

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/swipepad/internal/domain"
)

// StatsPolicy decides when a donation is counted in the stats.
type StatsPolicy int

const (
	// StatsOnAccept counts an intent when it enters the cart (right swipe or
	// quick donate). Batches never count the same intent again.
	StatsOnAccept StatsPolicy = iota

	// StatsOnSettle counts nothing at acceptance and counts every Submitted
	// outcome when its batch returns.
	StatsOnSettle
)

// ParseStatsPolicy accepts "accept" or "settle".
func ParseStatsPolicy(s string) (StatsPolicy, error) {
	switch s {
	case "", "accept":
		return StatsOnAccept, nil
	case "settle":
		return StatsOnSettle, nil
	}
	return 0, domain.NewInvalidParameter("stats_policy", s, "must be accept or settle")
}

func (p StatsPolicy) String() string {
	if p == StatsOnSettle {
		return "settle"
	}
	return "accept"
}

// streakWindow is the longest gap between donations that keeps a streak.
const streakWindow = 24 * time.Hour

// Stats is a snapshot of the session's gamification counters.
type Stats struct {
	TotalDonations int                                 `json:"totalDonations"`
	Categories     []string                            `json:"categories"`
	Streak         int                                 `json:"streak"`
	LastDonation   time.Time                           `json:"lastDonation,omitzero"`
	TotalDonated   map[domain.Currency]decimal.Decimal `json:"totalDonated"`
}

type stats struct {
	totalDonations int
	categories     map[string]struct{}
	streak         int
	lastDonation   time.Time
	totalDonated   map[domain.Currency]decimal.Decimal
}

func newStats() stats {
	return stats{
		categories:   make(map[string]struct{}),
		totalDonated: make(map[domain.Currency]decimal.Decimal),
	}
}

// recordDonation counts one donation made at now.
func (s *stats) recordDonation(intent domain.DonationIntent, now time.Time) {
	s.totalDonations++
	if intent.Category != "" {
		s.categories[intent.Category] = struct{}{}
	}
	if !s.lastDonation.IsZero() && now.Sub(s.lastDonation) <= streakWindow {
		s.streak++
	} else {
		s.streak = 1
	}
	s.lastDonation = now
	s.totalDonated[intent.Currency] = s.totalDonated[intent.Currency].Add(intent.Amount)
}

// currentStreak is the streak as seen at now: the stored value while the
// last donation is at most one day old (days rounded up), otherwise 0.
func (s *stats) currentStreak(now time.Time) int {
	if s.lastDonation.IsZero() {
		return 0
	}
	diff := now.Sub(s.lastDonation)
	if diff < 0 {
		diff = -diff
	}
	days := math.Ceil(diff.Hours() / 24)
	if days <= 1 {
		return s.streak
	}
	return 0
}

func (s *stats) snapshot() Stats {
	cats := make([]string, 0, len(s.categories))
	for c := range s.categories {
		cats = append(cats, c)
	}
	slices.Sort(cats)

	donated := make(map[domain.Currency]decimal.Decimal, len(s.totalDonated))
	for c, v := range s.totalDonated {
		donated[c] = v
	}

	return Stats{
		TotalDonations: s.totalDonations,
		Categories:     cats,
		Streak:         s.streak,
		LastDonation:   s.lastDonation,
		TotalDonated:   donated,
	}
}
