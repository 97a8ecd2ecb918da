package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Run("extracts verification id from a full url", func(t *testing.T) {
		loc := Parse("https://services.sheerid.com/verify/68cf2d1a/?verificationId=6929436b50d7dc18638890d0")
		assert.Equal(t, "6929436b50d7dc18638890d0", loc.VerificationID)
		assert.Empty(t, loc.ExternalUserID)
		assert.False(t, loc.Empty())
	})

	t.Run("matches case-insensitively and normalizes to lowercase", func(t *testing.T) {
		loc := Parse("VERIFICATIONID=6929436B50D7DC18638890D0")
		assert.Equal(t, "6929436b50d7dc18638890d0", loc.VerificationID)
	})

	t.Run("extracts external user id", func(t *testing.T) {
		loc := Parse("https://example.com/start?externalUserId=team-4821_alpha")
		assert.Equal(t, "team-4821_alpha", loc.ExternalUserID)
		assert.Empty(t, loc.VerificationID)
	})

	t.Run("extracts both when present", func(t *testing.T) {
		loc := Parse("?verificationId=abc123&externalUserId=u-77")
		assert.Equal(t, "abc123", loc.VerificationID)
		assert.Equal(t, "u-77", loc.ExternalUserID)
	})

	t.Run("unrecognizable input yields an empty locator", func(t *testing.T) {
		for _, raw := range []string{"", "hello world", "verificationId=", "verification=abc"} {
			loc := Parse(raw)
			assert.True(t, loc.Empty(), "input %q", raw)
		}
	})

	t.Run("parsing is deterministic", func(t *testing.T) {
		raw := "verificationId=deadbeef&externalUserId=x1"
		assert.Equal(t, Parse(raw), Parse(raw))
	})
}
