package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "veriflow/pkg/domain-errors"
)

// UserID identifies a chat-platform user. The front end hands us numeric
// identifiers, so this is an int64 rather than a UUID.
type UserID int64

// ParseUserID validates and returns a UserID from its string form.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "user id must be a positive integer")
	}
	return UserID(n), nil
}

// IsNil reports whether the user ID is unset.
func (u UserID) IsNil() bool {
	return u == 0
}

// String returns the decimal representation of the user ID.
func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

// VerificationID is the upstream-assigned opaque identifier for one
// verification attempt. The remote system issues lowercase hex strings.
type VerificationID string

// ParseVerificationID validates and normalizes a verification ID. IDs are
// matched case-insensitively but stored lowercase.
func ParseVerificationID(s string) (VerificationID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "verification id is required")
	}
	lower := strings.ToLower(s)
	for _, r := range lower {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", dErrors.New(dErrors.CodeInvalidInput, "verification id must be a hex string")
		}
	}
	return VerificationID(lower), nil
}

// IsNil reports whether the verification ID is unset.
func (v VerificationID) IsNil() bool {
	return v == ""
}

// String returns the raw verification ID.
func (v VerificationID) String() string {
	return string(v)
}

// AttemptID identifies one recorded verification attempt.
type AttemptID uuid.UUID

// NewAttemptID returns a fresh attempt ID.
func NewAttemptID() AttemptID {
	return AttemptID(uuid.New())
}

// ParseAttemptID validates and returns an AttemptID.
func ParseAttemptID(s string) (AttemptID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil || parsed == uuid.Nil {
		return AttemptID{}, dErrors.New(dErrors.CodeInvalidInput, "attempt id must be a valid UUID")
	}
	return AttemptID(parsed), nil
}

// IsNil reports whether the attempt ID is unset.
func (a AttemptID) IsNil() bool {
	return uuid.UUID(a) == uuid.Nil
}

// String returns the canonical UUID form of the attempt ID.
func (a AttemptID) String() string {
	return uuid.UUID(a).String()
}

// MarshalText renders the attempt ID as its canonical UUID string so JSON
// payloads carry readable identifiers rather than byte arrays.
func (a AttemptID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (a *AttemptID) UnmarshalText(text []byte) error {
	parsed, err := ParseAttemptID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
