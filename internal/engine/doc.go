// Package engine serialises commands onto one swipe session.
//
// A session.Session has no internal locking. The engine owns one session
// and applies commands to it from a single goroutine, in the order they
// were enqueued, so any number of callers (an HTTP handler, a CLI reader,
// a test) can drive the same session safely.
//
// Single-writer loop:
//  1. Do() wraps a Command in an envelope and enqueues it (any goroutine).
//  2. Run() dequeues envelopes one at a time (exactly one goroutine).
//  3. The command is applied to the session and stamped with Clock.Next().
//  4. The reply is delivered on the envelope's buffered channel.
//
// A batch submission triggered by a command runs inside Run, so the loop
// is busy until every transfer of that batch has been attempted. Later
// commands wait their turn.
package engine
