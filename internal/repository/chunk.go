package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenai/skillforge/internal/domain"
)

const chunkColumns = `id, skill_id, source_id, chunk_type, parent_chunk_id,
	content, content_hash, token_count, chunk_index,
	vector_point_id, collection, synced, synced_at, metadata,
	created_at, updated_at`

type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) Create(ctx context.Context, c *domain.Chunk) error {
	metadata, err := marshalJSON(c.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO chunks (id, skill_id, source_id, chunk_type, parent_chunk_id,
			content, content_hash, token_count, chunk_index,
			vector_point_id, collection, synced, synced_at, metadata,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, c.SkillID, c.SourceID, c.Type, nullableString(c.ParentChunkID),
		c.Content, c.ContentHash, c.TokenCount, c.ChunkIndex,
		c.VectorPointID, c.Collection, c.Synced, c.SyncedAt, metadata,
		c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// CreateBatch inserts a set of chunks in one round trip per chunk on the
// same connection; callers run it inside a transaction so a hierarchy lands
// all-or-nothing.
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []*domain.Chunk) error {
	for _, c := range chunks {
		if err := r.Create(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, id)
	c, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ChunkRepository) ListBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error) {
	return r.list(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE source_id = $1 ORDER BY chunk_type DESC, chunk_index ASC`, sourceID)
}

// ListChildren returns a parent's child chunks in index order.
func (r *ChunkRepository) ListChildren(ctx context.Context, parentChunkID string) ([]*domain.Chunk, error) {
	return r.list(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE parent_chunk_id = $1 ORDER BY chunk_index ASC`, parentChunkID)
}

// ListPendingSync returns unsynced chunks oldest first, capped at limit, so
// the sync worker drains the backlog in creation order.
func (r *ChunkRepository) ListPendingSync(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	return r.list(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE synced = FALSE ORDER BY created_at ASC, chunk_index ASC LIMIT $1`, limit)
}

// ListPendingSyncBySource returns one source's unsynced chunks in index
// order. chunk_index is a single sequence per source, so this is document
// order.
func (r *ChunkRepository) ListPendingSyncBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error) {
	return r.list(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE source_id = $1 AND synced = FALSE
		 ORDER BY chunk_index ASC`, sourceID)
}

// ListPendingSyncBySkill is ListPendingSync scoped to one skill.
func (r *ChunkRepository) ListPendingSyncBySkill(ctx context.Context, skillID string, limit int) ([]*domain.Chunk, error) {
	return r.list(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE skill_id = $1 AND synced = FALSE
		 ORDER BY created_at ASC, chunk_index ASC LIMIT $2`, skillID, limit)
}

// MarkSynced records that the chunk's embedding reached the vector index.
func (r *ChunkRepository) MarkSynced(ctx context.Context, id string, syncedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chunks SET synced = TRUE, synced_at = $1, updated_at = $2 WHERE id = $3`,
		syncedAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// MarkUnsynced flags the chunk for re-embedding, e.g. after the collection
// or embedding model changes.
func (r *ChunkRepository) MarkUnsynced(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chunks SET synced = FALSE, synced_at = NULL, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// DeleteBySource removes every chunk of a knowledge source and returns how
// many rows went away.
func (r *ChunkRepository) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE source_id = $1`, sourceID)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// DeleteParent removes a parent chunk; its children go with it via the
// self-referencing ON DELETE CASCADE.
func (r *ChunkRepository) DeleteParent(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE id = $1 AND chunk_type = $2`, id, domain.ChunkTypeParent)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// CountBySource returns (parents, children, totalTokens) for a source.
func (r *ChunkRepository) CountBySource(ctx context.Context, sourceID string) (int, int, int, error) {
	var parents, children, totalTokens int
	err := r.db.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE chunk_type = $2),
			COUNT(*) FILTER (WHERE chunk_type = $3),
			COALESCE(SUM(token_count), 0)
		 FROM chunks WHERE source_id = $1`,
		sourceID, domain.ChunkTypeParent, domain.ChunkTypeChild,
	).Scan(&parents, &children, &totalTokens)
	if err != nil {
		return 0, 0, 0, err
	}
	return parents, children, totalTokens, nil
}

func (r *ChunkRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func scanChunk(row pgx.Row) (*domain.Chunk, error) {
	var c domain.Chunk
	var parentChunkID *string
	var metadata []byte
	if err := row.Scan(&c.ID, &c.SkillID, &c.SourceID, &c.Type, &parentChunkID,
		&c.Content, &c.ContentHash, &c.TokenCount, &c.ChunkIndex,
		&c.VectorPointID, &c.Collection, &c.Synced, &c.SyncedAt, &metadata,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ParentChunkID = derefString(parentChunkID)
	m, err := unmarshalJSON(metadata)
	if err != nil {
		return nil, err
	}
	c.Metadata = m
	return &c, nil
}
