package domain

import "regexp"

// Project is a donation target as supplied by the catalog.
//
// The core only reads projects. RecipientAddress is copied into every
// intent at swipe time, so later catalog changes never redirect a pending
// donation.
type Project struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	Category         string `json:"category" yaml:"category"`
	RecipientAddress string `json:"recipientAddress" yaml:"recipientAddress"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
	ImageURL         string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Website          string `json:"website,omitempty" yaml:"website,omitempty"`
	Farcaster        string `json:"farcaster,omitempty" yaml:"farcaster,omitempty"`
	GitHub           string `json:"github,omitempty" yaml:"github,omitempty"`
	Verified         bool   `json:"verified,omitempty" yaml:"verified,omitempty"`
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether addr is a 0x-prefixed 20-byte hex address.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}
