package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/telemetry"
)

// ReadinessService validates that a skill is ready to serve retrieval
// traffic.
type ReadinessService struct {
	skillRepo  SkillRepositoryInterface
	sourceRepo KnowledgeSourceRepositoryInterface
	configRepo RetrievalConfigRepositoryInterface
}

// NewReadinessService creates a new ReadinessService instance
func NewReadinessService(
	skillRepo SkillRepositoryInterface,
	sourceRepo KnowledgeSourceRepositoryInterface,
	configRepo RetrievalConfigRepositoryInterface,
) *ReadinessService {
	return &ReadinessService{
		skillRepo:  skillRepo,
		sourceRepo: sourceRepo,
		configRepo: configRepo,
	}
}

// ReadinessResult reports every failed readiness check, not just the first,
// so one validation round trip surfaces everything that needs fixing.
type ReadinessResult struct {
	SkillID string
	Ready   bool
	Errors  []string
}

// Validate runs the readiness checks for a skill:
// a non-empty name, at least one knowledge source, no source still pending
// or processing, no failed source, and a retrieval config in place.
func (s *ReadinessService) Validate(ctx context.Context, skillID string) (*ReadinessResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReadinessService.Validate", telemetry.SpanAttributes{
		SkillID:   skillID,
		Operation: "validate",
	})
	defer span.End()

	skill, err := s.skillRepo.GetByID(ctx, skillID)
	if err != nil {
		return nil, err
	}

	result := &ReadinessResult{SkillID: skillID}

	if strings.TrimSpace(skill.Name) == "" {
		result.Errors = append(result.Errors, "skill name must not be empty")
	}

	sources, err := s.sourceRepo.ListBySkill(ctx, skillID)
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		result.Errors = append(result.Errors, "skill has no knowledge sources")
	}

	var unfinished int
	var failedNames []string
	for _, src := range sources {
		switch src.Status {
		case domain.ProcessingStatusPending, domain.ProcessingStatusProcessing:
			unfinished++
		case domain.ProcessingStatusFailed:
			failedNames = append(failedNames, src.Name)
		}
	}
	if unfinished > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d knowledge source(s) still pending or processing", unfinished))
	}
	if len(failedNames) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("knowledge source(s) failed processing: %s", strings.Join(failedNames, ", ")))
	}

	if _, err := s.configRepo.GetBySkill(ctx, skillID); err != nil {
		if errors.Is(err, domain.ErrRetrievalConfigNotFound) {
			result.Errors = append(result.Errors, "skill has no retrieval config")
		} else {
			return nil, err
		}
	}

	result.Ready = len(result.Errors) == 0
	return result, nil
}
