package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenai/skillforge/internal/domain"
)

type SkillRepository struct {
	db dbtx
}

func NewSkillRepository(pool *pgxpool.Pool) *SkillRepository {
	return &SkillRepository{db: pool}
}

func NewSkillRepositoryWithTx(tx pgx.Tx) *SkillRepository {
	return &SkillRepository{db: tx}
}

func (r *SkillRepository) Create(ctx context.Context, s *domain.Skill) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO skills (id, workspace_id, name, slug, description, status, usage_status, created_by, updated_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.WorkspaceID, s.Name, s.Slug, nullableString(s.Description), s.Status, s.Usage,
		nullableString(s.CreatedBy), nullableString(s.UpdatedBy), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSkillSlugTaken
		}
		return err
	}
	return nil
}

func (r *SkillRepository) GetByID(ctx context.Context, id string) (*domain.Skill, error) {
	return r.scanOne(ctx,
		`SELECT id, workspace_id, name, slug, description, status, usage_status, created_by, updated_by, created_at, updated_at
		 FROM skills WHERE id = $1`,
		id,
	)
}

func (r *SkillRepository) GetBySlug(ctx context.Context, slug string) (*domain.Skill, error) {
	return r.scanOne(ctx,
		`SELECT id, workspace_id, name, slug, description, status, usage_status, created_by, updated_by, created_at, updated_at
		 FROM skills WHERE slug = $1`,
		slug,
	)
}

func (r *SkillRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Skill, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, workspace_id, name, slug, description, status, usage_status, created_by, updated_by, created_at, updated_at
		 FROM skills WHERE workspace_id = $1 ORDER BY updated_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

func (r *SkillRepository) Update(ctx context.Context, s *domain.Skill) error {
	s.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE skills SET name = $1, slug = $2, description = $3, status = $4, usage_status = $5, updated_by = $6, updated_at = $7
		 WHERE id = $8`,
		s.Name, s.Slug, nullableString(s.Description), s.Status, s.Usage, nullableString(s.UpdatedBy), s.UpdatedAt, s.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSkillSlugTaken
		}
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSkillNotFound
	}
	return nil
}

// Delete removes the skill; knowledge sources, materials, chunks and the
// retrieval config go with it via ON DELETE CASCADE.
func (r *SkillRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSkillNotFound
	}
	return nil
}

func (r *SkillRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.Skill, error) {
	row := r.db.QueryRow(ctx, query, args...)
	s, err := scanSkill(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSkillNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanSkill(row pgx.Row) (*domain.Skill, error) {
	var s domain.Skill
	var description, createdBy, updatedBy *string
	if err := row.Scan(&s.ID, &s.WorkspaceID, &s.Name, &s.Slug, &description, &s.Status, &s.Usage,
		&createdBy, &updatedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Description = derefString(description)
	s.CreatedBy = derefString(createdBy)
	s.UpdatedBy = derefString(updatedBy)
	return &s, nil
}
