package domain

import "time"

// Default retrieval configuration values, applied when a field is omitted at
// creation time.
const (
	DefaultParentChunkSize     = 2048
	DefaultChildChunkSize      = 512
	DefaultChunkOverlap        = 128
	DefaultMaxResults          = 5
	DefaultSimilarityThreshold = 0.70
	DefaultEmbeddingModel      = "text-embedding-3-small"
	DefaultEmbeddingDimensions = 1536
	DefaultVectorCollection    = "skill_chunks"
)

// RetrievalConfig holds the per-skill chunking and retrieval settings.
// Exactly one exists per skill.
type RetrievalConfig struct {
	ID      string
	SkillID string

	// parent-child chunking, all sizes in tokens
	ParentChunkSize int
	ChildChunkSize  int
	ChunkOverlap    int

	MaxResults          int
	SimilarityThreshold float64

	EmbeddingModel      string
	EmbeddingDimensions int

	VectorCollection string
	AdvancedConfig   map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RetrievalConfigPatch is an explicit partial update: a nil field is
// "leave unchanged", a non-nil field is "set to this value". This keeps
// "omitted" distinct from "explicitly set to zero".
type RetrievalConfigPatch struct {
	ParentChunkSize     *int
	ChildChunkSize      *int
	ChunkOverlap        *int
	MaxResults          *int
	SimilarityThreshold *float64
	EmbeddingModel      *string
	EmbeddingDimensions *int
	VectorCollection    *string
	AdvancedConfig      map[string]any
}

// Apply returns a copy of cfg with the patch's set fields applied. The
// result must be re-validated in full before persisting.
func (p RetrievalConfigPatch) Apply(cfg RetrievalConfig) RetrievalConfig {
	if p.ParentChunkSize != nil {
		cfg.ParentChunkSize = *p.ParentChunkSize
	}
	if p.ChildChunkSize != nil {
		cfg.ChildChunkSize = *p.ChildChunkSize
	}
	if p.ChunkOverlap != nil {
		cfg.ChunkOverlap = *p.ChunkOverlap
	}
	if p.MaxResults != nil {
		cfg.MaxResults = *p.MaxResults
	}
	if p.SimilarityThreshold != nil {
		cfg.SimilarityThreshold = *p.SimilarityThreshold
	}
	if p.EmbeddingModel != nil {
		cfg.EmbeddingModel = *p.EmbeddingModel
	}
	if p.EmbeddingDimensions != nil {
		cfg.EmbeddingDimensions = *p.EmbeddingDimensions
	}
	if p.VectorCollection != nil {
		cfg.VectorCollection = *p.VectorCollection
	}
	if p.AdvancedConfig != nil {
		cfg.AdvancedConfig = p.AdvancedConfig
	}
	return cfg
}

// NewRetrievalConfig creates a RetrievalConfig with defaults for a skill
func NewRetrievalConfig(id, skillID string, createdAt time.Time) *RetrievalConfig {
	return &RetrievalConfig{
		ID:                  id,
		SkillID:             skillID,
		ParentChunkSize:     DefaultParentChunkSize,
		ChildChunkSize:      DefaultChildChunkSize,
		ChunkOverlap:        DefaultChunkOverlap,
		MaxResults:          DefaultMaxResults,
		SimilarityThreshold: DefaultSimilarityThreshold,
		EmbeddingModel:      DefaultEmbeddingModel,
		EmbeddingDimensions: DefaultEmbeddingDimensions,
		VectorCollection:    DefaultVectorCollection,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}
}

// ValidateRetrievalConfig checks the sizing and threshold invariants. The
// whole record is checked, never just changed fields.
func ValidateRetrievalConfig(cfg *RetrievalConfig) error {
	if cfg == nil {
		return NewValidationError("config", "retrieval config cannot be nil")
	}

	if cfg.SkillID == "" {
		return NewValidationError("skill_id", "is required")
	}

	if cfg.ParentChunkSize <= 0 {
		return NewValidationError("parent_chunk_size", "must be positive")
	}

	if cfg.ChildChunkSize <= 0 {
		return NewValidationError("child_chunk_size", "must be positive")
	}

	if cfg.ChildChunkSize >= cfg.ParentChunkSize {
		return NewValidationError("child_chunk_size", "must be smaller than parent_chunk_size")
	}

	if cfg.ChunkOverlap < 0 {
		return NewValidationError("chunk_overlap", "must not be negative")
	}

	if cfg.ChunkOverlap >= cfg.ChildChunkSize {
		return NewValidationError("chunk_overlap", "must be smaller than child_chunk_size")
	}

	if cfg.MaxResults < 1 {
		return NewValidationError("max_results", "must be at least 1")
	}

	if cfg.SimilarityThreshold < 0.0 || cfg.SimilarityThreshold > 1.0 {
		return NewValidationError("similarity_threshold", "must be between 0.0 and 1.0")
	}

	if cfg.EmbeddingModel == "" {
		return NewValidationError("embedding_model", "is required")
	}

	if cfg.EmbeddingDimensions <= 0 {
		return NewValidationError("embedding_dimensions", "must be positive")
	}

	if cfg.VectorCollection == "" {
		return NewValidationError("vector_collection", "is required")
	}

	return nil
}
