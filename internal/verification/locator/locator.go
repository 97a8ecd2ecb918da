// Package locator extracts verification references from the raw text a user
// pastes (usually a full verification URL). Parsing is pure and total: the
// same input always yields the same result, and text without a recognizable
// pattern yields an empty locator, never a partial ID.
package locator

import (
	"regexp"
	"strings"
)

var (
	verificationIDPattern = regexp.MustCompile(`(?i)verificationId=([a-f0-9]+)`)
	externalUserIDPattern = regexp.MustCompile(`(?i)externalUserId=([A-Za-z0-9._~-]+)`)
)

// Locator is the parsed verification reference. Either field may be empty;
// both empty means the input was unusable.
type Locator struct {
	VerificationID string
	ExternalUserID string
}

// Parse extracts a verification ID and, when present, an external user ID
// from raw input. Verification IDs are normalized to lowercase hex.
func Parse(raw string) Locator {
	var loc Locator
	if m := verificationIDPattern.FindStringSubmatch(raw); m != nil {
		loc.VerificationID = strings.ToLower(m[1])
	}
	if m := externalUserIDPattern.FindStringSubmatch(raw); m != nil {
		loc.ExternalUserID = m[1]
	}
	return loc
}

// Empty reports whether the input contained no usable reference.
func (l Locator) Empty() bool {
	return l.VerificationID == "" && l.ExternalUserID == ""
}
