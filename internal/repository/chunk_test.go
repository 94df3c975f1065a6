//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/testutil"
)

func seedSource(ctx context.Context, t *testing.T, pool *pgxpool.Pool, skillID string) *domain.KnowledgeSource {
	t.Helper()
	src := newTestSource(skillID, "seed source")
	require.NoError(t, NewKnowledgeSourceRepository(pool).Create(ctx, src))
	return src
}

func newTestChunk(skillID, sourceID string, chunkType domain.ChunkType, index int) *domain.Chunk {
	now := time.Now().UTC().Truncate(time.Microsecond)
	content := "chunk content " + uuid.NewString()
	return &domain.Chunk{
		ID:            uuid.NewString(),
		SkillID:       skillID,
		SourceID:      sourceID,
		Type:          chunkType,
		Content:       content,
		ContentHash:   domain.HashContent(content),
		TokenCount:    3,
		ChunkIndex:    index,
		VectorPointID: uuid.NewString(),
		Collection:    "skill_chunks",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestChunkRepository_CreateBatchAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	skill := seedSkill(ctx, t, pool)
	src := seedSource(ctx, t, pool, skill.ID)
	repo := NewChunkRepository(pool)

	parent := newTestChunk(skill.ID, src.ID, domain.ChunkTypeParent, 0)
	parent.Metadata = map[string]any{"source_name": src.Name, "source_type": "text"}
	child0 := newTestChunk(skill.ID, src.ID, domain.ChunkTypeChild, 1)
	child0.ParentChunkID = parent.ID
	child1 := newTestChunk(skill.ID, src.ID, domain.ChunkTypeChild, 2)
	child1.ParentChunkID = parent.ID

	require.NoError(t, repo.CreateBatch(ctx, []*domain.Chunk{parent, child0, child1}))

	chunks, err := repo.ListBySource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// parents come first, children follow in index order
	assert.Equal(t, domain.ChunkTypeParent, chunks[0].Type)
	assert.Equal(t, child0.ID, chunks[1].ID)
	assert.Equal(t, child1.ID, chunks[2].ID)
	assert.Equal(t, src.Name, chunks[0].Metadata["source_name"])

	children, err := repo.ListChildren(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, child0.ID, children[0].ID)

	parents, childCount, totalTokens, err := repo.CountBySource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, parents)
	assert.Equal(t, 2, childCount)
	assert.Equal(t, 9, totalTokens)
}

func TestChunkRepository_SyncLifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	skill := seedSkill(ctx, t, pool)
	src := seedSource(ctx, t, pool, skill.ID)
	repo := NewChunkRepository(pool)

	chunk := newTestChunk(skill.ID, src.ID, domain.ChunkTypeParent, 0)
	require.NoError(t, repo.Create(ctx, chunk))

	pending, err := repo.ListPendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, chunk.ID, pending[0].ID)

	syncedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.MarkSynced(ctx, chunk.ID, syncedAt))

	pending, err = repo.ListPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	synced, err := repo.GetByID(ctx, chunk.ID)
	require.NoError(t, err)
	assert.True(t, synced.Synced)
	require.NotNil(t, synced.SyncedAt)
	assert.Equal(t, syncedAt, *synced.SyncedAt)

	require.NoError(t, repo.MarkUnsynced(ctx, chunk.ID))
	pending, err = repo.ListPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestChunkRepository_ListPendingSyncBySource(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	skill := seedSkill(ctx, t, pool)
	src := seedSource(ctx, t, pool, skill.ID)
	other := seedSource(ctx, t, pool, skill.ID)
	repo := NewChunkRepository(pool)

	// inserted out of index order on purpose
	second := newTestChunk(skill.ID, src.ID, domain.ChunkTypeChild, 2)
	first := newTestChunk(skill.ID, src.ID, domain.ChunkTypeParent, 0)
	middle := newTestChunk(skill.ID, src.ID, domain.ChunkTypeChild, 1)
	second.ParentChunkID = first.ID
	middle.ParentChunkID = first.ID
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, middle))
	require.NoError(t, repo.Create(ctx, newTestChunk(skill.ID, other.ID, domain.ChunkTypeParent, 0)))

	require.NoError(t, repo.MarkSynced(ctx, middle.ID, time.Now().UTC().Truncate(time.Microsecond)))

	pending, err := repo.ListPendingSyncBySource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
	assert.Less(t, pending[0].ChunkIndex, pending[1].ChunkIndex)
}

func TestChunkRepository_DeleteParentCascadesChildren(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	skill := seedSkill(ctx, t, pool)
	src := seedSource(ctx, t, pool, skill.ID)
	repo := NewChunkRepository(pool)

	parent := newTestChunk(skill.ID, src.ID, domain.ChunkTypeParent, 0)
	child := newTestChunk(skill.ID, src.ID, domain.ChunkTypeChild, 1)
	child.ParentChunkID = parent.ID
	require.NoError(t, repo.CreateBatch(ctx, []*domain.Chunk{parent, child}))

	require.NoError(t, repo.DeleteParent(ctx, parent.ID))

	remaining, err := repo.ListBySource(ctx, src.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// a child id is not deletable through DeleteParent
	other := newTestChunk(skill.ID, src.ID, domain.ChunkTypeParent, 0)
	orphan := newTestChunk(skill.ID, src.ID, domain.ChunkTypeChild, 1)
	orphan.ParentChunkID = other.ID
	require.NoError(t, repo.CreateBatch(ctx, []*domain.Chunk{other, orphan}))
	assert.ErrorIs(t, repo.DeleteParent(ctx, orphan.ID), domain.ErrChunkNotFound)
}

func TestChunkRepository_DeleteBySource(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	skill := seedSkill(ctx, t, pool)
	src := seedSource(ctx, t, pool, skill.ID)
	other := seedSource(ctx, t, pool, skill.ID)
	repo := NewChunkRepository(pool)

	require.NoError(t, repo.Create(ctx, newTestChunk(skill.ID, src.ID, domain.ChunkTypeParent, 0)))
	require.NoError(t, repo.Create(ctx, newTestChunk(skill.ID, src.ID, domain.ChunkTypeParent, 1)))
	require.NoError(t, repo.Create(ctx, newTestChunk(skill.ID, other.ID, domain.ChunkTypeParent, 0)))

	deleted, err := repo.DeleteBySource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.ListBySource(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
