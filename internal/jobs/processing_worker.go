package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/service"
	"github.com/lumenai/skillforge/internal/telemetry"
)

const (
	// ClaimBatchSize is how many pending sources one tick claims
	ClaimBatchSize = 10
)

// SourceClaimer claims pending knowledge sources for processing
type SourceClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error)
	MarkCompleted(ctx context.Context, id string, totalChunks, totalTokens int) error
	MarkFailed(ctx context.Context, id string, processingError string) error
}

// HierarchyBuilder chunks a claimed source
type HierarchyBuilder interface {
	BuildHierarchy(ctx context.Context, sourceID string) (*service.BuildHierarchyResult, error)
}

// ProcessingWorker drains pending knowledge sources: claim, chunk, complete
// or fail. Chunk-level embedding sync happens separately in the sync worker.
type ProcessingWorker struct {
	claimer SourceClaimer
	builder HierarchyBuilder
}

// NewProcessingWorker creates a new ProcessingWorker instance
func NewProcessingWorker(claimer SourceClaimer, builder HierarchyBuilder) *ProcessingWorker {
	return &ProcessingWorker{
		claimer: claimer,
		builder: builder,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ProcessingWorker) ProcessJobs(ctx context.Context) error {
	sources, err := w.claimer.ClaimPending(ctx, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending sources: %w", err)
	}

	if len(sources) == 0 {
		return nil
	}

	log.Printf("Processing %d claimed knowledge sources", len(sources))

	for _, src := range sources {
		if err := w.processSource(ctx, src); err != nil {
			log.Printf("Error processing source %s: %v", src.ID, err)
		}
	}

	return nil
}

func (w *ProcessingWorker) processSource(ctx context.Context, src *domain.KnowledgeSource) error {
	ctx, span := telemetry.StartTransaction(ctx, "ProcessingWorker.processSource", "worker.process")
	defer span.End()

	log.Printf("Chunking source %s (%s)", src.ID, src.Name)

	result, err := w.builder.BuildHierarchy(ctx, src.ID)
	if err != nil {
		span.SetError(err)
		if failErr := w.claimer.MarkFailed(ctx, src.ID, err.Error()); failErr != nil {
			return fmt.Errorf("failed to mark source failed: %w", failErr)
		}
		log.Printf("Source %s failed: %v", src.ID, err)
		return nil
	}

	totalChunks := result.ParentCount + result.ChildCount
	if err := w.claimer.MarkCompleted(ctx, src.ID, totalChunks, result.TotalTokens); err != nil {
		return fmt.Errorf("failed to mark source completed: %w", err)
	}

	log.Printf("Source %s completed: %d parents, %d children, %d tokens",
		src.ID, result.ParentCount, result.ChildCount, result.TotalTokens)
	return nil
}
