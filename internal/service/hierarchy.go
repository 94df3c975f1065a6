package service

import (
	"context"
	"log"
	"time"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/telemetry"
)

// ChunkRepositoryInterface defines the repository interface for chunk
// persistence
type ChunkRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Chunk) error
	CreateBatch(ctx context.Context, chunks []*domain.Chunk) error
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
	ListBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error)
	ListChildren(ctx context.Context, parentChunkID string) ([]*domain.Chunk, error)
	ListPendingSync(ctx context.Context, limit int) ([]*domain.Chunk, error)
	ListPendingSyncBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error)
	ListPendingSyncBySkill(ctx context.Context, skillID string, limit int) ([]*domain.Chunk, error)
	MarkSynced(ctx context.Context, id string, syncedAt time.Time) error
	MarkUnsynced(ctx context.Context, id string) error
	DeleteBySource(ctx context.Context, sourceID string) (int64, error)
	DeleteParent(ctx context.Context, id string) error
	CountBySource(ctx context.Context, sourceID string) (int, int, int, error)
}

// RetrievalConfigRepositoryInterface defines the repository interface for
// retrieval config persistence
type RetrievalConfigRepositoryInterface interface {
	Create(ctx context.Context, cfg *domain.RetrievalConfig) error
	GetBySkill(ctx context.Context, skillID string) (*domain.RetrievalConfig, error)
	ExistsForSkill(ctx context.Context, skillID string) (bool, error)
	Update(ctx context.Context, cfg *domain.RetrievalConfig) error
}

// HierarchyService builds and maintains the parent/child chunk hierarchy of
// knowledge sources.
type HierarchyService struct {
	sourceRepo   KnowledgeSourceRepositoryInterface
	chunkRepo    ChunkRepositoryInterface
	configRepo   RetrievalConfigRepositoryInterface
	gateway      StorageGatewayInterface
	vectorClient VectorIndexClientInterface
	txRunner     TxRunner
	uuidGen      UUIDGenerator
}

// NewHierarchyService creates a new HierarchyService instance
func NewHierarchyService(
	sourceRepo KnowledgeSourceRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	configRepo RetrievalConfigRepositoryInterface,
	gateway StorageGatewayInterface,
	vectorClient VectorIndexClientInterface,
	txRunner TxRunner,
) *HierarchyService {
	return &HierarchyService{
		sourceRepo:   sourceRepo,
		chunkRepo:    chunkRepo,
		configRepo:   configRepo,
		gateway:      gateway,
		vectorClient: vectorClient,
		txRunner:     txRunner,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// NewHierarchyServiceWithUUIDGen creates a new HierarchyService with custom
// UUID generator (for testing)
func NewHierarchyServiceWithUUIDGen(
	sourceRepo KnowledgeSourceRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	configRepo RetrievalConfigRepositoryInterface,
	gateway StorageGatewayInterface,
	vectorClient VectorIndexClientInterface,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *HierarchyService {
	return &HierarchyService{
		sourceRepo:   sourceRepo,
		chunkRepo:    chunkRepo,
		configRepo:   configRepo,
		gateway:      gateway,
		vectorClient: vectorClient,
		txRunner:     txRunner,
		uuidGen:      uuidGen,
	}
}

// BuildHierarchyResult summarizes a completed chunking run
type BuildHierarchyResult struct {
	ParentCount int
	ChildCount  int
	TotalTokens int
}

// BuildHierarchy resolves the source's text, splits it into parent and child
// chunks per the skill's retrieval config and replaces any previous
// hierarchy in a single transaction. Only a source in processing state may
// be chunked; the claim is the single-writer guard.
func (s *HierarchyService) BuildHierarchy(ctx context.Context, sourceID string) (*BuildHierarchyResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "HierarchyService.BuildHierarchy", telemetry.SpanAttributes{
		SourceID:  sourceID,
		Operation: "chunk",
	})
	defer span.End()

	source, err := s.sourceRepo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source.Status != domain.ProcessingStatusProcessing {
		return nil, domain.NewConflictError("source must be claimed for processing before chunking")
	}

	cfg, err := s.configRepo.GetBySkill(ctx, source.SkillID)
	if err != nil {
		return nil, err
	}

	content, err := s.resolveContent(ctx, source)
	if err != nil {
		return nil, err
	}

	parents := buildHierarchyChunks(content, cfg.ParentChunkSize, cfg.ChildChunkSize, cfg.ChunkOverlap)

	now := time.Now().UTC()
	result := &BuildHierarchyResult{}
	chunks := make([]*domain.Chunk, 0, len(parents)*2)
	// chunk_index is one zero-based sequence over the whole source, each
	// parent followed by its children, so index ordering is total and
	// reproduces document order.
	nextIndex := 0
	for _, p := range parents {
		parent := &domain.Chunk{
			ID:            s.uuidGen.NewString(),
			SkillID:       source.SkillID,
			SourceID:      source.ID,
			Type:          domain.ChunkTypeParent,
			Content:       p.Content,
			ContentHash:   domain.HashContent(p.Content),
			TokenCount:    p.TokenCount,
			ChunkIndex:    nextIndex,
			VectorPointID: s.uuidGen.NewString(),
			Collection:    cfg.VectorCollection,
			Metadata: map[string]any{
				"source_name": source.Name,
				"source_type": string(source.SourceType),
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		chunks = append(chunks, parent)
		nextIndex++
		result.ParentCount++
		result.TotalTokens += p.TokenCount

		for _, c := range p.Children {
			chunks = append(chunks, &domain.Chunk{
				ID:            s.uuidGen.NewString(),
				SkillID:       source.SkillID,
				SourceID:      source.ID,
				Type:          domain.ChunkTypeChild,
				ParentChunkID: parent.ID,
				Content:       c.Content,
				ContentHash:   domain.HashContent(c.Content),
				TokenCount:    c.TokenCount,
				ChunkIndex:    nextIndex,
				VectorPointID: s.uuidGen.NewString(),
				Collection:    cfg.VectorCollection,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			nextIndex++
			result.ChildCount++
		}
	}

	for _, c := range chunks {
		if err := domain.ValidateChunk(c); err != nil {
			return nil, err
		}
	}

	// Reprocessing replaces the previous hierarchy atomically.
	var stale []*domain.Chunk
	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		prior, err := repos.Chunks().ListBySource(ctx, sourceID)
		if err != nil {
			return err
		}
		stale = prior
		if _, err := repos.Chunks().DeleteBySource(ctx, sourceID); err != nil {
			return err
		}
		return repos.Chunks().CreateBatch(ctx, chunks)
	})
	if err != nil {
		return nil, err
	}

	for _, c := range stale {
		if !c.Synced {
			continue
		}
		if err := s.vectorClient.Delete(ctx, c.Collection, c.VectorPointID); err != nil {
			log.Printf("hierarchy: failed to delete stale vector point %s: %v", c.VectorPointID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	return result, nil
}

// resolveContent returns the text to chunk: inline content when present,
// otherwise the stored blob.
func (s *HierarchyService) resolveContent(ctx context.Context, source *domain.KnowledgeSource) (string, error) {
	if source.Content != "" {
		return source.Content, nil
	}
	if source.StorageRef.IsZero() {
		return "", domain.ErrMissingStorageRef
	}
	raw, err := s.gateway.Download(ctx, source.StorageRef.Key)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ListBySource returns the source's chunks, parents before children
func (s *HierarchyService) ListBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error) {
	return s.chunkRepo.ListBySource(ctx, sourceID)
}

// ListChildren returns a parent's children in index order
func (s *HierarchyService) ListChildren(ctx context.Context, parentChunkID string) ([]*domain.Chunk, error) {
	return s.chunkRepo.ListChildren(ctx, parentChunkID)
}

// PendingSync returns up to limit chunks still waiting to reach the vector
// index
func (s *HierarchyService) PendingSync(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	return s.chunkRepo.ListPendingSync(ctx, limit)
}

// PendingSyncBySource returns one source's unsynced chunks in ascending
// chunk_index order
func (s *HierarchyService) PendingSyncBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error) {
	return s.chunkRepo.ListPendingSyncBySource(ctx, sourceID)
}

// MarkSynced records that a chunk's embedding landed in the vector index
func (s *HierarchyService) MarkSynced(ctx context.Context, chunkID string) error {
	return s.chunkRepo.MarkSynced(ctx, chunkID, time.Now().UTC())
}

// MarkUnsynced flags a chunk for re-embedding
func (s *HierarchyService) MarkUnsynced(ctx context.Context, chunkID string) error {
	return s.chunkRepo.MarkUnsynced(ctx, chunkID)
}

// DeleteParent removes a parent chunk and its children, then cleans their
// vector points best-effort.
func (s *HierarchyService) DeleteParent(ctx context.Context, parentChunkID string) error {
	ctx, span := telemetry.StartSpan(ctx, "HierarchyService.DeleteParent", telemetry.SpanAttributes{
		Operation: "delete",
	})
	defer span.End()

	parent, err := s.chunkRepo.GetByID(ctx, parentChunkID)
	if err != nil {
		return err
	}
	if parent.Type != domain.ChunkTypeParent {
		return domain.NewConflictError("chunk is not a parent chunk")
	}

	children, err := s.chunkRepo.ListChildren(ctx, parentChunkID)
	if err != nil {
		return err
	}

	if err := s.chunkRepo.DeleteParent(ctx, parentChunkID); err != nil {
		return err
	}

	doomed := append([]*domain.Chunk{parent}, children...)
	for _, c := range doomed {
		if !c.Synced {
			continue
		}
		if err := s.vectorClient.Delete(ctx, c.Collection, c.VectorPointID); err != nil {
			log.Printf("hierarchy: failed to delete vector point %s: %v", c.VectorPointID, err)
			telemetry.CaptureError(ctx, err)
		}
	}
	return nil
}
