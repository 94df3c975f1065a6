package service

import (
	"context"
	"log"
	"time"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/telemetry"
)

// KnowledgeSourceRepositoryInterface defines the repository interface for
// knowledge source persistence
type KnowledgeSourceRepositoryInterface interface {
	Create(ctx context.Context, ks *domain.KnowledgeSource) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error)
	ListBySkill(ctx context.Context, skillID string) ([]*domain.KnowledgeSource, error)
	ListBySkillAndStatus(ctx context.Context, skillID string, status domain.ProcessingStatus) ([]*domain.KnowledgeSource, error)
	CountBySkillAndStatus(ctx context.Context, skillID string) (map[domain.ProcessingStatus]int, error)
	Update(ctx context.Context, ks *domain.KnowledgeSource) error
	Delete(ctx context.Context, id string) error
	TransitionStatus(ctx context.Context, id string, from, to domain.ProcessingStatus) error
	MarkCompleted(ctx context.Context, id string, totalChunks, totalTokens int, processedAt time.Time) error
	MarkFailed(ctx context.Context, id string, processingError string) error
	Retry(ctx context.Context, id string) error
	ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error)
}

// VectorIndexClientInterface is the boundary to the external vector index.
// Implementations must be idempotent: upserting the same point twice and
// deleting a missing point are both fine.
type VectorIndexClientInterface interface {
	Upsert(ctx context.Context, collection, pointID string, vector []float32, payload map[string]any) error
	Delete(ctx context.Context, collection, pointID string) error
}

// IngestionService manages the lifecycle of knowledge sources: registration,
// processing status transitions, retries and removal.
type IngestionService struct {
	sourceRepo   KnowledgeSourceRepositoryInterface
	chunkRepo    ChunkRepositoryInterface
	gateway      StorageGatewayInterface
	vectorClient VectorIndexClientInterface
	uuidGen      UUIDGenerator
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	sourceRepo KnowledgeSourceRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	gateway StorageGatewayInterface,
	vectorClient VectorIndexClientInterface,
) *IngestionService {
	return &IngestionService{
		sourceRepo:   sourceRepo,
		chunkRepo:    chunkRepo,
		gateway:      gateway,
		vectorClient: vectorClient,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// NewIngestionServiceWithUUIDGen creates a new IngestionService with custom
// UUID generator (for testing)
func NewIngestionServiceWithUUIDGen(
	sourceRepo KnowledgeSourceRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	gateway StorageGatewayInterface,
	vectorClient VectorIndexClientInterface,
	uuidGen UUIDGenerator,
) *IngestionService {
	return &IngestionService{
		sourceRepo:   sourceRepo,
		chunkRepo:    chunkRepo,
		gateway:      gateway,
		vectorClient: vectorClient,
		uuidGen:      uuidGen,
	}
}

// RegisterSourceInput represents the input for registering a knowledge source
type RegisterSourceInput struct {
	SkillID    string
	SourceType domain.SourceType
	Name       string
	Content    string
	StorageRef domain.StorageObjectRef
	File       domain.FileMetadata
}

// RegisterSource creates a knowledge source in pending state. File-backed
// sources must arrive with their storage reference already populated (the
// upload happens first, via UploadService).
func (s *IngestionService) RegisterSource(ctx context.Context, input RegisterSourceInput) (*domain.KnowledgeSource, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.RegisterSource", telemetry.SpanAttributes{
		SkillID:   input.SkillID,
		Operation: "register",
	})
	defer span.End()

	now := time.Now().UTC()
	source := domain.NewKnowledgeSource(s.uuidGen.NewString(), input.SkillID, input.SourceType, input.Name, now)
	source.Content = input.Content
	source.StorageRef = input.StorageRef
	source.File = input.File

	if err := domain.ValidateKnowledgeSource(source); err != nil {
		return nil, err
	}

	if err := s.sourceRepo.Create(ctx, source); err != nil {
		return nil, err
	}
	return source, nil
}

// GetSource retrieves a knowledge source by ID
func (s *IngestionService) GetSource(ctx context.Context, id string) (*domain.KnowledgeSource, error) {
	return s.sourceRepo.GetByID(ctx, id)
}

// ListBySkill retrieves all knowledge sources of a skill
func (s *IngestionService) ListBySkill(ctx context.Context, skillID string) ([]*domain.KnowledgeSource, error) {
	return s.sourceRepo.ListBySkill(ctx, skillID)
}

// MarkProcessing claims a pending (or completed, when reprocessing) source.
// Concurrent claims lose with ErrInvalidStatusTransition.
func (s *IngestionService) MarkProcessing(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.MarkProcessing", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "transition",
	})
	defer span.End()

	return s.sourceRepo.TransitionStatus(ctx, id, domain.ProcessingStatusPending, domain.ProcessingStatusProcessing)
}

// MarkCompleted finishes processing and records the chunk totals
func (s *IngestionService) MarkCompleted(ctx context.Context, id string, totalChunks, totalTokens int) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.MarkCompleted", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "transition",
	})
	defer span.End()

	return s.sourceRepo.MarkCompleted(ctx, id, totalChunks, totalTokens, time.Now().UTC())
}

// MarkFailed records the processing failure message
func (s *IngestionService) MarkFailed(ctx context.Context, id string, processingError string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.MarkFailed", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "transition",
	})
	defer span.End()

	return s.sourceRepo.MarkFailed(ctx, id, processingError)
}

// Retry resets a failed source to pending so the processor picks it up
// again. Only failed sources can be retried.
func (s *IngestionService) Retry(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Retry", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "retry",
	})
	defer span.End()

	return s.sourceRepo.Retry(ctx, id)
}

// DeleteSource removes the source row (chunks cascade with it) and then
// cleans up the vector points and the stored blob best-effort: cleanup
// failures are logged and reported to telemetry but never block deletion.
func (s *IngestionService) DeleteSource(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.DeleteSource", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "delete",
	})
	defer span.End()

	source, err := s.sourceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	chunks, err := s.chunkRepo.ListBySource(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sourceRepo.Delete(ctx, id); err != nil {
		return err
	}

	for _, c := range chunks {
		if !c.Synced {
			continue
		}
		if err := s.vectorClient.Delete(ctx, c.Collection, c.VectorPointID); err != nil {
			log.Printf("ingestion: failed to delete vector point %s for source %s: %v", c.VectorPointID, id, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	if !source.StorageRef.IsZero() {
		if err := s.gateway.Delete(ctx, source.StorageRef.Key); err != nil {
			log.Printf("ingestion: failed to delete stored object %s for source %s: %v", source.StorageRef.Key, id, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	return nil
}
