package domain

import (
	"fmt"
	"strings"
	"time"
)

// SkillStatus represents the lifecycle status of a skill
type SkillStatus string

const (
	SkillStatusDraft    SkillStatus = "draft"
	SkillStatusActive   SkillStatus = "active"
	SkillStatusInactive SkillStatus = "inactive"
	SkillStatusArchived SkillStatus = "archived"
)

// SkillUsage represents the processing/usage status of a skill
type SkillUsage string

const (
	SkillUsageReleased   SkillUsage = "released"
	SkillUsageProcessing SkillUsage = "processing"
	SkillUsageError      SkillUsage = "error"
)

// Skill is a configured knowledge base plus retrieval settings, owned by a
// workspace. Readiness validation gates its transition to active.
type Skill struct {
	ID          string
	WorkspaceID string
	Name        string
	Slug        string
	Description string
	Status      SkillStatus
	Usage       SkillUsage
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSkill creates a new Skill instance
func NewSkill(id, workspaceID, name, slug, createdBy string, createdAt time.Time) *Skill {
	return &Skill{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        name,
		Slug:        slug,
		Status:      SkillStatusDraft,
		Usage:       SkillUsageReleased,
		CreatedBy:   createdBy,
		UpdatedBy:   createdBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// ValidateSkill validates a Skill instance
func ValidateSkill(s *Skill) error {
	if s == nil {
		return fmt.Errorf("skill cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("skill ID is required")
	}

	if s.WorkspaceID == "" {
		return fmt.Errorf("skill WorkspaceID is required")
	}

	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("skill Name is required")
	}

	if s.Slug == "" {
		return fmt.Errorf("skill Slug is required")
	}

	if !isValidSkillStatus(s.Status) {
		return fmt.Errorf("skill Status is invalid: %s", s.Status)
	}

	if !isValidSkillUsage(s.Usage) {
		return fmt.Errorf("skill Usage is invalid: %s", s.Usage)
	}

	return nil
}

// isValidSkillStatus checks if a SkillStatus is valid
func isValidSkillStatus(s SkillStatus) bool {
	switch s {
	case SkillStatusDraft, SkillStatusActive, SkillStatusInactive, SkillStatusArchived:
		return true
	}
	return false
}

// isValidSkillUsage checks if a SkillUsage is valid
func isValidSkillUsage(u SkillUsage) bool {
	switch u {
	case SkillUsageReleased, SkillUsageProcessing, SkillUsageError:
		return true
	}
	return false
}
