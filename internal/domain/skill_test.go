package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSkill(t *testing.T) {
	now := time.Now().UTC()
	skill := NewSkill("skill-1", "ws-1", "Billing FAQ", "billing-faq", "user-1", now)

	assert.Equal(t, "skill-1", skill.ID)
	assert.Equal(t, "ws-1", skill.WorkspaceID)
	assert.Equal(t, SkillStatusDraft, skill.Status)
	assert.Equal(t, SkillUsageReleased, skill.Usage)
	assert.Equal(t, "user-1", skill.CreatedBy)
	assert.Equal(t, now, skill.CreatedAt)
	assert.Equal(t, now, skill.UpdatedAt)
}

func TestValidateSkill(t *testing.T) {
	now := time.Now().UTC()

	valid := func() *Skill {
		return NewSkill("skill-1", "ws-1", "Billing FAQ", "billing-faq", "user-1", now)
	}

	t.Run("valid skill passes", func(t *testing.T) {
		require.NoError(t, ValidateSkill(valid()))
	})

	t.Run("nil skill fails", func(t *testing.T) {
		assert.Error(t, ValidateSkill(nil))
	})

	t.Run("missing workspace fails", func(t *testing.T) {
		s := valid()
		s.WorkspaceID = ""
		err := ValidateSkill(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WorkspaceID")
	})

	t.Run("whitespace-only name fails", func(t *testing.T) {
		s := valid()
		s.Name = "   "
		err := ValidateSkill(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Name")
	})

	t.Run("missing slug fails", func(t *testing.T) {
		s := valid()
		s.Slug = ""
		assert.Error(t, ValidateSkill(s))
	})

	t.Run("unknown status fails", func(t *testing.T) {
		s := valid()
		s.Status = SkillStatus("bogus")
		assert.Error(t, ValidateSkill(s))
	})

	t.Run("unknown usage fails", func(t *testing.T) {
		s := valid()
		s.Usage = SkillUsage("bogus")
		assert.Error(t, ValidateSkill(s))
	})
}
