package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenai/skillforge/internal/domain"
)

const retrievalConfigColumns = `id, skill_id, parent_chunk_size, child_chunk_size, chunk_overlap,
	max_results, similarity_threshold, embedding_model, embedding_dimensions,
	vector_collection, advanced_config, created_at, updated_at`

type RetrievalConfigRepository struct {
	db dbtx
}

func NewRetrievalConfigRepository(pool *pgxpool.Pool) *RetrievalConfigRepository {
	return &RetrievalConfigRepository{db: pool}
}

func NewRetrievalConfigRepositoryWithTx(tx pgx.Tx) *RetrievalConfigRepository {
	return &RetrievalConfigRepository{db: tx}
}

// Create inserts the skill's retrieval config. The skill_id unique
// constraint enforces one config per skill.
func (r *RetrievalConfigRepository) Create(ctx context.Context, cfg *domain.RetrievalConfig) error {
	advanced, err := marshalJSON(cfg.AdvancedConfig)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO retrieval_configs (id, skill_id, parent_chunk_size, child_chunk_size, chunk_overlap,
			max_results, similarity_threshold, embedding_model, embedding_dimensions,
			vector_collection, advanced_config, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		cfg.ID, cfg.SkillID, cfg.ParentChunkSize, cfg.ChildChunkSize, cfg.ChunkOverlap,
		cfg.MaxResults, cfg.SimilarityThreshold, cfg.EmbeddingModel, cfg.EmbeddingDimensions,
		cfg.VectorCollection, advanced, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRetrievalConfigExists
		}
		return err
	}
	return nil
}

func (r *RetrievalConfigRepository) GetBySkill(ctx context.Context, skillID string) (*domain.RetrievalConfig, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+retrievalConfigColumns+` FROM retrieval_configs WHERE skill_id = $1`, skillID)
	cfg, err := scanRetrievalConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRetrievalConfigNotFound
		}
		return nil, err
	}
	return cfg, nil
}

// ExistsForSkill reports whether the skill has a retrieval config without
// loading it.
func (r *RetrievalConfigRepository) ExistsForSkill(ctx context.Context, skillID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM retrieval_configs WHERE skill_id = $1)`, skillID,
	).Scan(&exists)
	return exists, err
}

func (r *RetrievalConfigRepository) Update(ctx context.Context, cfg *domain.RetrievalConfig) error {
	advanced, err := marshalJSON(cfg.AdvancedConfig)
	if err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE retrieval_configs SET parent_chunk_size = $1, child_chunk_size = $2, chunk_overlap = $3,
			max_results = $4, similarity_threshold = $5, embedding_model = $6, embedding_dimensions = $7,
			vector_collection = $8, advanced_config = $9, updated_at = $10
		 WHERE skill_id = $11`,
		cfg.ParentChunkSize, cfg.ChildChunkSize, cfg.ChunkOverlap,
		cfg.MaxResults, cfg.SimilarityThreshold, cfg.EmbeddingModel, cfg.EmbeddingDimensions,
		cfg.VectorCollection, advanced, cfg.UpdatedAt, cfg.SkillID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrRetrievalConfigNotFound
	}
	return nil
}

func scanRetrievalConfig(row pgx.Row) (*domain.RetrievalConfig, error) {
	var cfg domain.RetrievalConfig
	var advanced []byte
	if err := row.Scan(&cfg.ID, &cfg.SkillID, &cfg.ParentChunkSize, &cfg.ChildChunkSize, &cfg.ChunkOverlap,
		&cfg.MaxResults, &cfg.SimilarityThreshold, &cfg.EmbeddingModel, &cfg.EmbeddingDimensions,
		&cfg.VectorCollection, &advanced, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	m, err := unmarshalJSON(advanced)
	if err != nil {
		return nil, err
	}
	cfg.AdvancedConfig = m
	return &cfg, nil
}
