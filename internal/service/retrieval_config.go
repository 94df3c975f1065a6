package service

import (
	"context"
	"time"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/telemetry"
)

// RetrievalConfigService manages the per-skill chunking and retrieval
// settings.
type RetrievalConfigService struct {
	configRepo RetrievalConfigRepositoryInterface
	uuidGen    UUIDGenerator
}

// NewRetrievalConfigService creates a new RetrievalConfigService instance
func NewRetrievalConfigService(configRepo RetrievalConfigRepositoryInterface) *RetrievalConfigService {
	return &RetrievalConfigService{
		configRepo: configRepo,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewRetrievalConfigServiceWithUUIDGen creates a new RetrievalConfigService
// with custom UUID generator (for testing)
func NewRetrievalConfigServiceWithUUIDGen(configRepo RetrievalConfigRepositoryInterface, uuidGen UUIDGenerator) *RetrievalConfigService {
	return &RetrievalConfigService{
		configRepo: configRepo,
		uuidGen:    uuidGen,
	}
}

// Create creates the skill's retrieval config. Omitted patch fields keep
// their defaults; a second create for the same skill is a conflict.
func (s *RetrievalConfigService) Create(ctx context.Context, skillID string, patch domain.RetrievalConfigPatch) (*domain.RetrievalConfig, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalConfigService.Create", telemetry.SpanAttributes{
		SkillID:   skillID,
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	cfg := patch.Apply(*domain.NewRetrievalConfig(s.uuidGen.NewString(), skillID, now))

	if err := domain.ValidateRetrievalConfig(&cfg); err != nil {
		return nil, err
	}

	if err := s.configRepo.Create(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the skill's retrieval config
func (s *RetrievalConfigService) Get(ctx context.Context, skillID string) (*domain.RetrievalConfig, error) {
	return s.configRepo.GetBySkill(ctx, skillID)
}

// Update applies a partial update and re-validates the full resulting
// record, so a patch can never leave the config internally inconsistent.
func (s *RetrievalConfigService) Update(ctx context.Context, skillID string, patch domain.RetrievalConfigPatch) (*domain.RetrievalConfig, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalConfigService.Update", telemetry.SpanAttributes{
		SkillID:   skillID,
		Operation: "update",
	})
	defer span.End()

	current, err := s.configRepo.GetBySkill(ctx, skillID)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)
	if err := domain.ValidateRetrievalConfig(&updated); err != nil {
		return nil, err
	}

	if err := s.configRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
