// Package catalog loads the read-only list of donation projects.
//
// Catalog files are JSON or YAML arrays of project records. Every record
// is checked against a CUE schema (schema.cue) before it is accepted:
// required fields must be non-empty, recipient addresses must be
// 0x-prefixed 20-byte hex, and unknown fields are rejected. A catalog with
// a single bad record fails to load as a whole.
//
// Category filters compare case-insensitively after Unicode NFC
// normalisation, so "Climate", "climate" and a decomposed "Clímate" all
// select the same projects.
package catalog
