package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenai/skillforge/internal/domain"
)

const materialColumns = `id, skill_id, material_type, name, description, usage_context,
	storage_bucket, storage_key, storage_region, storage_url,
	file_name, file_size, file_mime_type, file_hash, file_extension,
	duration, width, height, page_count, thumbnail_key,
	presigned_url, presigned_url_expires_at,
	usage_count, last_used_at, created_at, updated_at`

type MaterialRepository struct {
	db dbtx
}

func NewMaterialRepository(pool *pgxpool.Pool) *MaterialRepository {
	return &MaterialRepository{db: pool}
}

func NewMaterialRepositoryWithTx(tx pgx.Tx) *MaterialRepository {
	return &MaterialRepository{db: tx}
}

func (r *MaterialRepository) Create(ctx context.Context, m *domain.Material) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO materials (id, skill_id, material_type, name, description, usage_context,
			storage_bucket, storage_key, storage_region, storage_url,
			file_name, file_size, file_mime_type, file_hash, file_extension,
			duration, width, height, page_count, thumbnail_key,
			presigned_url, presigned_url_expires_at,
			usage_count, last_used_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		m.ID, m.SkillID, m.Type, m.Name, nullableString(m.Description), nullableString(m.UsageContext),
		m.StorageRef.Bucket, m.StorageRef.Key, nullableString(m.StorageRef.Region), nullableString(m.StorageRef.URL),
		m.File.Name, m.File.Size, m.File.MimeType, m.File.SHA256, nullableString(m.File.Extension),
		nullableInt(m.Duration), nullableInt(m.Width), nullableInt(m.Height), nullableInt(m.PageCount),
		nullableString(m.ThumbnailKey),
		nullableString(m.PresignedURL), m.PresignedURLExpiresAt,
		m.UsageCount, m.LastUsedAt, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (r *MaterialRepository) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE id = $1`, id)
	m, err := scanMaterial(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMaterialNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *MaterialRepository) ListBySkill(ctx context.Context, skillID string) ([]*domain.Material, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+materialColumns+` FROM materials
		 WHERE skill_id = $1 ORDER BY created_at ASC`, skillID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

func (r *MaterialRepository) Update(ctx context.Context, m *domain.Material) error {
	m.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE materials SET name = $1, description = $2, usage_context = $3,
			duration = $4, width = $5, height = $6, page_count = $7, thumbnail_key = $8,
			updated_at = $9
		 WHERE id = $10`,
		m.Name, nullableString(m.Description), nullableString(m.UsageContext),
		nullableInt(m.Duration), nullableInt(m.Width), nullableInt(m.Height),
		nullableInt(m.PageCount), nullableString(m.ThumbnailKey),
		m.UpdatedAt, m.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMaterialNotFound
	}
	return nil
}

// UpdatePresignedURL persists a freshly generated presigned URL and its
// expiry so later reads within the TTL skip regeneration.
func (r *MaterialRepository) UpdatePresignedURL(ctx context.Context, id, url string, expiresAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE materials SET presigned_url = $1, presigned_url_expires_at = $2, updated_at = $3
		 WHERE id = $4`,
		url, expiresAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMaterialNotFound
	}
	return nil
}

// IncrementUsage bumps the usage counter and stamps last_used_at.
func (r *MaterialRepository) IncrementUsage(ctx context.Context, id string, usedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE materials SET usage_count = usage_count + 1, last_used_at = $1, updated_at = $2
		 WHERE id = $3`,
		usedAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMaterialNotFound
	}
	return nil
}

func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMaterialNotFound
	}
	return nil
}

func scanMaterial(row pgx.Row) (*domain.Material, error) {
	var m domain.Material
	var description, usageContext, region, url, extension, thumbnailKey, presignedURL *string
	var duration, width, height, pageCount *int
	if err := row.Scan(&m.ID, &m.SkillID, &m.Type, &m.Name, &description, &usageContext,
		&m.StorageRef.Bucket, &m.StorageRef.Key, &region, &url,
		&m.File.Name, &m.File.Size, &m.File.MimeType, &m.File.SHA256, &extension,
		&duration, &width, &height, &pageCount, &thumbnailKey,
		&presignedURL, &m.PresignedURLExpiresAt,
		&m.UsageCount, &m.LastUsedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Description = derefString(description)
	m.UsageContext = derefString(usageContext)
	m.StorageRef.Region = derefString(region)
	m.StorageRef.URL = derefString(url)
	m.File.Extension = derefString(extension)
	m.Duration = derefInt(duration)
	m.Width = derefInt(width)
	m.Height = derefInt(height)
	m.PageCount = derefInt(pageCount)
	m.ThumbnailKey = derefString(thumbnailKey)
	m.PresignedURL = derefString(presignedURL)
	return &m, nil
}
