package profiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/verification/models"
)

func TestForType(t *testing.T) {
	t.Run("every profile type has a configuration", func(t *testing.T) {
		for _, pt := range models.AllProfileTypes() {
			cfg, err := ForType(pt)
			require.NoError(t, err, "profile %s", pt)
			assert.Equal(t, pt, cfg.Type)
			assert.NotEmpty(t, cfg.ProgramID)
			assert.NotEmpty(t, cfg.PersonalInfoStep)
			assert.NotEmpty(t, cfg.Documents)
			assert.NotEmpty(t, cfg.Institutions)
			assert.Greater(t, cfg.MaxAge, cfg.MinAge)
		}
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		_, err := ForType(models.ProfileType("bogus"))
		assert.Error(t, err)
	})
}

func TestCatalogShape(t *testing.T) {
	t.Run("exactly one resumable program", func(t *testing.T) {
		resumable := 0
		for _, cfg := range All() {
			if cfg.Resumable {
				resumable++
				assert.Equal(t, models.ProfileBoltTeacher, cfg.Type)
			}
		}
		assert.Equal(t, 1, resumable)
	})

	t.Run("reward-code polling only on the resumable program", func(t *testing.T) {
		for _, cfg := range All() {
			if cfg.PollsRewardCode {
				assert.True(t, cfg.Resumable)
			}
		}
	})

	t.Run("student programs use the student step and age range", func(t *testing.T) {
		for _, cfg := range All() {
			if cfg.Role == models.RoleStudent {
				assert.Equal(t, "collectStudentPersonalInfo", cfg.PersonalInfoStep)
				assert.Equal(t, 16, cfg.MinAge)
			} else {
				assert.Equal(t, "collectTeacherPersonalInfo", cfg.PersonalInfoStep)
				assert.Equal(t, 25, cfg.MinAge)
			}
		}
	})
}
