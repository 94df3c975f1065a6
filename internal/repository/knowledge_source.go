package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenai/skillforge/internal/domain"
)

const knowledgeSourceColumns = `id, skill_id, source_type, name, content,
	storage_bucket, storage_key, storage_region, storage_url,
	file_name, file_size, file_mime_type, file_hash, file_extension,
	processing_status, processing_error, processed_at, total_chunks, total_tokens,
	created_at, updated_at`

type KnowledgeSourceRepository struct {
	db dbtx
}

func NewKnowledgeSourceRepository(pool *pgxpool.Pool) *KnowledgeSourceRepository {
	return &KnowledgeSourceRepository{db: pool}
}

func NewKnowledgeSourceRepositoryWithTx(tx pgx.Tx) *KnowledgeSourceRepository {
	return &KnowledgeSourceRepository{db: tx}
}

func (r *KnowledgeSourceRepository) Create(ctx context.Context, ks *domain.KnowledgeSource) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_sources (id, skill_id, source_type, name, content,
			storage_bucket, storage_key, storage_region, storage_url,
			file_name, file_size, file_mime_type, file_hash, file_extension,
			processing_status, processing_error, processed_at, total_chunks, total_tokens,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		ks.ID, ks.SkillID, ks.SourceType, ks.Name, nullableString(ks.Content),
		nullableString(ks.StorageRef.Bucket), nullableString(ks.StorageRef.Key),
		nullableString(ks.StorageRef.Region), nullableString(ks.StorageRef.URL),
		nullableString(ks.File.Name), ks.File.Size, nullableString(ks.File.MimeType),
		nullableString(ks.File.SHA256), nullableString(ks.File.Extension),
		ks.Status, nullableString(ks.ProcessingError), ks.ProcessedAt,
		ks.TotalChunks, ks.TotalTokens, ks.CreatedAt, ks.UpdatedAt,
	)
	if err != nil {
		// skill_id FK: registering against a missing skill is a not-found,
		// not a raw constraint error
		if isForeignKeyViolation(err) {
			return domain.ErrSkillNotFound
		}
		return err
	}
	return nil
}

func (r *KnowledgeSourceRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+knowledgeSourceColumns+` FROM knowledge_sources WHERE id = $1`, id)
	ks, err := scanKnowledgeSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeSourceNotFound
		}
		return nil, err
	}
	return ks, nil
}

func (r *KnowledgeSourceRepository) ListBySkill(ctx context.Context, skillID string) ([]*domain.KnowledgeSource, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeSourceColumns+` FROM knowledge_sources
		 WHERE skill_id = $1 ORDER BY created_at ASC`, skillID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.KnowledgeSource
	for rows.Next() {
		ks, err := scanKnowledgeSource(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, ks)
	}
	return results, rows.Err()
}

// ListBySkillAndStatus returns the skill's sources in the given status,
// oldest first.
func (r *KnowledgeSourceRepository) ListBySkillAndStatus(ctx context.Context, skillID string, status domain.ProcessingStatus) ([]*domain.KnowledgeSource, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeSourceColumns+` FROM knowledge_sources
		 WHERE skill_id = $1 AND processing_status = $2 ORDER BY created_at ASC`,
		skillID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.KnowledgeSource
	for rows.Next() {
		ks, err := scanKnowledgeSource(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, ks)
	}
	return results, rows.Err()
}

// CountBySkillAndStatus returns per-status counts for a skill's sources.
func (r *KnowledgeSourceRepository) CountBySkillAndStatus(ctx context.Context, skillID string) (map[domain.ProcessingStatus]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT processing_status, COUNT(*) FROM knowledge_sources
		 WHERE skill_id = $1 GROUP BY processing_status`, skillID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ProcessingStatus]int)
	for rows.Next() {
		var status domain.ProcessingStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *KnowledgeSourceRepository) Update(ctx context.Context, ks *domain.KnowledgeSource) error {
	ks.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources SET name = $1, content = $2,
			storage_bucket = $3, storage_key = $4, storage_region = $5, storage_url = $6,
			file_name = $7, file_size = $8, file_mime_type = $9, file_hash = $10, file_extension = $11,
			processing_status = $12, processing_error = $13, processed_at = $14,
			total_chunks = $15, total_tokens = $16, updated_at = $17
		 WHERE id = $18`,
		ks.Name, nullableString(ks.Content),
		nullableString(ks.StorageRef.Bucket), nullableString(ks.StorageRef.Key),
		nullableString(ks.StorageRef.Region), nullableString(ks.StorageRef.URL),
		nullableString(ks.File.Name), ks.File.Size, nullableString(ks.File.MimeType),
		nullableString(ks.File.SHA256), nullableString(ks.File.Extension),
		ks.Status, nullableString(ks.ProcessingError), ks.ProcessedAt,
		ks.TotalChunks, ks.TotalTokens, ks.UpdatedAt, ks.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeSourceNotFound
	}
	return nil
}

func (r *KnowledgeSourceRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM knowledge_sources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeSourceNotFound
	}
	return nil
}

// TransitionStatus moves a source from one processing status to another with
// a compare-and-set, so concurrent workers never double-claim. A zero-row
// update means either the source is gone or someone else changed the status
// first; the follow-up read tells the two apart.
func (r *KnowledgeSourceRepository) TransitionStatus(ctx context.Context, id string, from, to domain.ProcessingStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources SET processing_status = $1, updated_at = $2
		 WHERE id = $3 AND processing_status = $4`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidStatusTransition
	}
	return nil
}

// MarkCompleted finishes processing: clears the failure message, stamps
// processed_at and records the chunk totals. Only a processing source can
// complete.
func (r *KnowledgeSourceRepository) MarkCompleted(ctx context.Context, id string, totalChunks, totalTokens int, processedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources
		 SET processing_status = $1, processing_error = NULL, processed_at = $2,
		     total_chunks = $3, total_tokens = $4, updated_at = $5
		 WHERE id = $6 AND processing_status = $7`,
		domain.ProcessingStatusCompleted, processedAt, totalChunks, totalTokens,
		time.Now().UTC(), id, domain.ProcessingStatusProcessing,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidStatusTransition
	}
	return nil
}

// MarkFailed records the failure message. Only a processing source can fail.
func (r *KnowledgeSourceRepository) MarkFailed(ctx context.Context, id string, processingError string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources
		 SET processing_status = $1, processing_error = $2, updated_at = $3
		 WHERE id = $4 AND processing_status = $5`,
		domain.ProcessingStatusFailed, nullableString(processingError),
		time.Now().UTC(), id, domain.ProcessingStatusProcessing,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidStatusTransition
	}
	return nil
}

// Retry resets a failed source back to pending and clears the previous
// failure and chunk totals so the processor starts clean.
func (r *KnowledgeSourceRepository) Retry(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_sources
		 SET processing_status = $1, processing_error = NULL, processed_at = NULL,
		     total_chunks = 0, total_tokens = 0, updated_at = $2
		 WHERE id = $3 AND processing_status = $4`,
		domain.ProcessingStatusPending, time.Now().UTC(), id, domain.ProcessingStatusFailed,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrRetryRequiresFailedSource
	}
	return nil
}

// ClaimPending atomically claims up to limit pending sources for processing,
// oldest first. FOR UPDATE SKIP LOCKED lets multiple workers poll the same
// table without stepping on each other.
func (r *KnowledgeSourceRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error) {
	rows, err := r.db.Query(ctx,
		`WITH claimed AS (
			SELECT id FROM knowledge_sources
			WHERE processing_status = $1
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		 )
		 UPDATE knowledge_sources ks
		 SET processing_status = $3, updated_at = $4
		 FROM claimed
		 WHERE ks.id = claimed.id
		 RETURNING `+prefixColumns("ks", knowledgeSourceColumns),
		domain.ProcessingStatusPending, limit, domain.ProcessingStatusProcessing, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.KnowledgeSource
	for rows.Next() {
		ks, err := scanKnowledgeSource(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, ks)
	}
	return results, rows.Err()
}

func scanKnowledgeSource(row pgx.Row) (*domain.KnowledgeSource, error) {
	var ks domain.KnowledgeSource
	var content, bucket, key, region, url *string
	var fileName, mimeType, fileHash, extension, processingError *string
	if err := row.Scan(&ks.ID, &ks.SkillID, &ks.SourceType, &ks.Name, &content,
		&bucket, &key, &region, &url,
		&fileName, &ks.File.Size, &mimeType, &fileHash, &extension,
		&ks.Status, &processingError, &ks.ProcessedAt, &ks.TotalChunks, &ks.TotalTokens,
		&ks.CreatedAt, &ks.UpdatedAt); err != nil {
		return nil, err
	}
	ks.Content = derefString(content)
	ks.StorageRef = domain.StorageObjectRef{
		Bucket: derefString(bucket),
		Key:    derefString(key),
		Region: derefString(region),
		URL:    derefString(url),
	}
	ks.File.Name = derefString(fileName)
	ks.File.MimeType = derefString(mimeType)
	ks.File.SHA256 = derefString(fileHash)
	ks.File.Extension = derefString(extension)
	ks.ProcessingError = derefString(processingError)
	return &ks, nil
}
