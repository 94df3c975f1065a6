package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/telemetry"
)

const (
	// SyncBatchSize is how many unsynced chunks one tick pushes to the index
	SyncBatchSize = 25
)

// ChunkSyncRepository lists and flags chunks for embedding sync
type ChunkSyncRepository interface {
	PendingSync(ctx context.Context, limit int) ([]*domain.Chunk, error)
	MarkSynced(ctx context.Context, chunkID string) error
}

// EmbeddingGenerator turns chunk text into a vector
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorIndexWriter pushes points into the vector index
type VectorIndexWriter interface {
	Upsert(ctx context.Context, collection, pointID string, vector []float32, payload map[string]any) error
}

// SyncWorker reconciles the chunk table with the vector index: every
// unsynced chunk gets embedded and upserted, then marked synced. A chunk
// that fails stays unsynced and is retried on a later tick; upserts are
// idempotent so repeats are harmless.
type SyncWorker struct {
	chunks   ChunkSyncRepository
	embedder EmbeddingGenerator
	index    VectorIndexWriter
}

// NewSyncWorker creates a new SyncWorker instance
func NewSyncWorker(chunks ChunkSyncRepository, embedder EmbeddingGenerator, index VectorIndexWriter) *SyncWorker {
	return &SyncWorker{
		chunks:   chunks,
		embedder: embedder,
		index:    index,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *SyncWorker) ProcessJobs(ctx context.Context) error {
	pending, err := w.chunks.PendingSync(ctx, SyncBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unsynced chunks: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("Syncing %d chunks to the vector index", len(pending))

	for _, c := range pending {
		if err := w.syncChunk(ctx, c); err != nil {
			log.Printf("Error syncing chunk %s: %v", c.ID, err)
		}
	}

	return nil
}

func (w *SyncWorker) syncChunk(ctx context.Context, c *domain.Chunk) error {
	ctx, span := telemetry.StartTransaction(ctx, "SyncWorker.syncChunk", "worker.sync")
	defer span.End()

	vector, err := w.embedder.GenerateEmbedding(ctx, c.Content)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to embed chunk: %w", err)
	}

	payload := map[string]any{
		"chunk_id":   c.ID,
		"skill_id":   c.SkillID,
		"source_id":  c.SourceID,
		"chunk_type": string(c.Type),
	}
	if c.ParentChunkID != "" {
		payload["parent_chunk_id"] = c.ParentChunkID
	}

	if err := w.index.Upsert(ctx, c.Collection, c.VectorPointID, vector, payload); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to upsert vector point: %w", err)
	}

	if err := w.chunks.MarkSynced(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to mark chunk synced: %w", err)
	}

	return nil
}
