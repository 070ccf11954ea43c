// Package domain defines the SwipePad data model shared by the session
// manager, the batch submitter and their collaborators.
//
// Everything here is plain data: projects read from the catalog, donation
// intents captured at swipe time, and the per-item outcomes of a batch
// submission. Intents are immutable once created; the cart removes them,
// it never edits them.
package domain
