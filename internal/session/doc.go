// Package session implements the donation swipe session.
//
// A Session is the single aggregate behind the swipe feed: it owns the
// cursor into the active project list, the cart of pending donation
// intents, the confirmation threshold and its swipe counter, and the
// gamification stats. When the swipe counter reaches the threshold the
// whole cart is handed to the batch submitter.
//
// A Session is not safe for concurrent use. Callers that need to drive it
// from several goroutines put it behind an engine.Engine, which serialises
// every command onto one goroutine.
package session
