package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/telemetry"
)

// SkillRepositoryInterface defines the repository interface for skill persistence
type SkillRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Skill) error
	GetByID(ctx context.Context, id string) (*domain.Skill, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Skill, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Skill, error)
	Update(ctx context.Context, s *domain.Skill) error
	Delete(ctx context.Context, id string) error
}

// SkillService handles business logic for skills
type SkillService struct {
	skillRepo SkillRepositoryInterface
	txRunner  TxRunner
	uuidGen   UUIDGenerator
}

// NewSkillService creates a new SkillService instance
func NewSkillService(skillRepo SkillRepositoryInterface, txRunner TxRunner) *SkillService {
	return &SkillService{
		skillRepo: skillRepo,
		txRunner:  txRunner,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewSkillServiceWithUUIDGen creates a new SkillService with custom UUID generator (for testing)
func NewSkillServiceWithUUIDGen(skillRepo SkillRepositoryInterface, txRunner TxRunner, uuidGen UUIDGenerator) *SkillService {
	return &SkillService{
		skillRepo: skillRepo,
		txRunner:  txRunner,
		uuidGen:   uuidGen,
	}
}

// CreateSkillInput represents the input for creating a skill
type CreateSkillInput struct {
	WorkspaceID string
	Name        string
	Slug        string
	Description string
	CreatedBy   string
}

// UpdateSkillInput represents the input for updating a skill
type UpdateSkillInput struct {
	SkillID     string
	Name        string
	Description string
	Status      domain.SkillStatus
	UpdatedBy   string
}

// Create creates a skill together with its default retrieval config, in one
// transaction, so a skill never exists half-configured.
func (s *SkillService) Create(ctx context.Context, input CreateSkillInput) (*domain.Skill, error) {
	ctx, span := telemetry.StartSpan(ctx, "SkillService.Create", telemetry.SpanAttributes{
		WorkspaceID: input.WorkspaceID,
		Operation:   "create",
	})
	defer span.End()

	now := time.Now().UTC()

	slug := input.Slug
	if slug == "" {
		slug = Slugify(input.Name)
	}

	skill := domain.NewSkill(s.uuidGen.NewString(), input.WorkspaceID, input.Name, slug, input.CreatedBy, now)
	skill.Description = input.Description

	if err := domain.ValidateSkill(skill); err != nil {
		return nil, err
	}

	cfg := domain.NewRetrievalConfig(s.uuidGen.NewString(), skill.ID, now)

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Skills().Create(ctx, skill); err != nil {
			return err
		}
		return repos.RetrievalConfigs().Create(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	return skill, nil
}

// GetByID retrieves a skill by ID
func (s *SkillService) GetByID(ctx context.Context, id string) (*domain.Skill, error) {
	ctx, span := telemetry.StartSpan(ctx, "SkillService.GetByID", telemetry.SpanAttributes{
		SkillID:   id,
		Operation: "get",
	})
	defer span.End()

	return s.skillRepo.GetByID(ctx, id)
}

// GetBySlug retrieves a skill by its slug
func (s *SkillService) GetBySlug(ctx context.Context, slug string) (*domain.Skill, error) {
	return s.skillRepo.GetBySlug(ctx, slug)
}

// ListByWorkspace retrieves all skills in a workspace
func (s *SkillService) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Skill, error) {
	ctx, span := telemetry.StartSpan(ctx, "SkillService.ListByWorkspace", telemetry.SpanAttributes{
		WorkspaceID: workspaceID,
		Operation:   "list",
	})
	defer span.End()

	return s.skillRepo.ListByWorkspace(ctx, workspaceID)
}

// Update modifies the mutable skill fields
func (s *SkillService) Update(ctx context.Context, input UpdateSkillInput) (*domain.Skill, error) {
	ctx, span := telemetry.StartSpan(ctx, "SkillService.Update", telemetry.SpanAttributes{
		SkillID:   input.SkillID,
		Operation: "update",
	})
	defer span.End()

	skill, err := s.skillRepo.GetByID(ctx, input.SkillID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		skill.Name = input.Name
	}
	if input.Description != "" {
		skill.Description = input.Description
	}
	if input.Status != "" {
		skill.Status = input.Status
	}
	skill.UpdatedBy = input.UpdatedBy

	if err := domain.ValidateSkill(skill); err != nil {
		return nil, err
	}

	if err := s.skillRepo.Update(ctx, skill); err != nil {
		return nil, err
	}
	return skill, nil
}

// Delete removes the skill and everything attached to it
func (s *SkillService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "SkillService.Delete", telemetry.SpanAttributes{
		SkillID:   id,
		Operation: "delete",
	})
	defer span.End()

	return s.skillRepo.Delete(ctx, id)
}

// Slugify lowers the name and collapses every non-alphanumeric run into a
// single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
