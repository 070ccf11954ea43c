package session

import (
	"slices"
	"sync"
	"time"
)

// Badge names an achievement notification.
type Badge string

const (
	BadgeFirstSwipe       Badge = "First Swipe"
	BadgeFiveDayStreak    Badge = "5-Day Streak"
	BadgeCategoryChampion Badge = "Category Champion"
)

// championCategories is the number of distinct categories that earns
// BadgeCategoryChampion.
const championCategories = 3

// BadgeTracker is the set of badges already shown. Sessions that share a
// tracker show each badge at most once between them.
type BadgeTracker struct {
	mu    sync.Mutex
	shown map[Badge]bool
}

// NewBadgeTracker creates an empty tracker.
func NewBadgeTracker() *BadgeTracker {
	return &BadgeTracker{shown: make(map[Badge]bool)}
}

// Shown returns the badges shown so far, sorted by name.
func (t *BadgeTracker) Shown() []Badge {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Badge, 0, len(t.shown))
	for b := range t.shown {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

// evaluate returns the first badge, in priority order, whose condition
// holds and which has not been shown yet, and marks it shown. At most one
// badge is returned per call.
func (t *BadgeTracker) evaluate(s *stats, now time.Time) (Badge, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b Badge
	switch {
	case s.totalDonations == 1 && !t.shown[BadgeFirstSwipe]:
		b = BadgeFirstSwipe
	case s.currentStreak(now) == 5 && !t.shown[BadgeFiveDayStreak]:
		b = BadgeFiveDayStreak
	case len(s.categories) >= championCategories && !t.shown[BadgeCategoryChampion]:
		b = BadgeCategoryChampion
	default:
		return "", false
	}
	t.shown[b] = true
	return b, true
}
