package service

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/storage"
)

func testNow() time.Time {
	return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
}

// MockUUIDGenerator returns a fixed sequence of IDs
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

// MockSkillRepository is a mock implementation of SkillRepositoryInterface
type MockSkillRepository struct {
	mock.Mock
}

func (m *MockSkillRepository) Create(ctx context.Context, s *domain.Skill) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSkillRepository) GetByID(ctx context.Context, id string) (*domain.Skill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Skill), args.Error(1)
}

func (m *MockSkillRepository) GetBySlug(ctx context.Context, slug string) (*domain.Skill, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Skill), args.Error(1)
}

func (m *MockSkillRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Skill, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Skill), args.Error(1)
}

func (m *MockSkillRepository) Update(ctx context.Context, s *domain.Skill) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSkillRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockKnowledgeSourceRepository is a mock implementation of
// KnowledgeSourceRepositoryInterface
type MockKnowledgeSourceRepository struct {
	mock.Mock
}

func (m *MockKnowledgeSourceRepository) Create(ctx context.Context, ks *domain.KnowledgeSource) error {
	args := m.Called(ctx, ks)
	return args.Error(0)
}

func (m *MockKnowledgeSourceRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeSource), args.Error(1)
}

func (m *MockKnowledgeSourceRepository) ListBySkill(ctx context.Context, skillID string) ([]*domain.KnowledgeSource, error) {
	args := m.Called(ctx, skillID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeSource), args.Error(1)
}

func (m *MockKnowledgeSourceRepository) ListBySkillAndStatus(ctx context.Context, skillID string, status domain.ProcessingStatus) ([]*domain.KnowledgeSource, error) {
	args := m.Called(ctx, skillID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeSource), args.Error(1)
}

func (m *MockKnowledgeSourceRepository) CountBySkillAndStatus(ctx context.Context, skillID string) (map[domain.ProcessingStatus]int, error) {
	args := m.Called(ctx, skillID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.ProcessingStatus]int), args.Error(1)
}

func (m *MockKnowledgeSourceRepository) Update(ctx context.Context, ks *domain.KnowledgeSource) error {
	args := m.Called(ctx, ks)
	return args.Error(0)
}

func (m *MockKnowledgeSourceRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockKnowledgeSourceRepository) TransitionStatus(ctx context.Context, id string, from, to domain.ProcessingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockKnowledgeSourceRepository) MarkCompleted(ctx context.Context, id string, totalChunks, totalTokens int, processedAt time.Time) error {
	args := m.Called(ctx, id, totalChunks, totalTokens, processedAt)
	return args.Error(0)
}

func (m *MockKnowledgeSourceRepository) MarkFailed(ctx context.Context, id string, processingError string) error {
	args := m.Called(ctx, id, processingError)
	return args.Error(0)
}

func (m *MockKnowledgeSourceRepository) Retry(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockKnowledgeSourceRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeSource), args.Error(1)
}

// MockChunkRepository is a mock implementation of ChunkRepositoryInterface
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) Create(ctx context.Context, c *domain.Chunk) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChunkRepository) CreateBatch(ctx context.Context, chunks []*domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) ListBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) ListChildren(ctx context.Context, parentChunkID string) ([]*domain.Chunk, error) {
	args := m.Called(ctx, parentChunkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) ListPendingSync(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) ListPendingSyncBySource(ctx context.Context, sourceID string) ([]*domain.Chunk, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) ListPendingSyncBySkill(ctx context.Context, skillID string, limit int) ([]*domain.Chunk, error) {
	args := m.Called(ctx, skillID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) MarkSynced(ctx context.Context, id string, syncedAt time.Time) error {
	args := m.Called(ctx, id, syncedAt)
	return args.Error(0)
}

func (m *MockChunkRepository) MarkUnsynced(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChunkRepository) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	args := m.Called(ctx, sourceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChunkRepository) DeleteParent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChunkRepository) CountBySource(ctx context.Context, sourceID string) (int, int, int, error) {
	args := m.Called(ctx, sourceID)
	return args.Int(0), args.Int(1), args.Int(2), args.Error(3)
}

// MockRetrievalConfigRepository is a mock implementation of
// RetrievalConfigRepositoryInterface
type MockRetrievalConfigRepository struct {
	mock.Mock
}

func (m *MockRetrievalConfigRepository) Create(ctx context.Context, cfg *domain.RetrievalConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockRetrievalConfigRepository) GetBySkill(ctx context.Context, skillID string) (*domain.RetrievalConfig, error) {
	args := m.Called(ctx, skillID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetrievalConfig), args.Error(1)
}

func (m *MockRetrievalConfigRepository) ExistsForSkill(ctx context.Context, skillID string) (bool, error) {
	args := m.Called(ctx, skillID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRetrievalConfigRepository) Update(ctx context.Context, cfg *domain.RetrievalConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

// MockMaterialRepository is a mock implementation of MaterialRepositoryInterface
type MockMaterialRepository struct {
	mock.Mock
}

func (m *MockMaterialRepository) Create(ctx context.Context, mat *domain.Material) error {
	args := m.Called(ctx, mat)
	return args.Error(0)
}

func (m *MockMaterialRepository) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Material), args.Error(1)
}

func (m *MockMaterialRepository) ListBySkill(ctx context.Context, skillID string) ([]*domain.Material, error) {
	args := m.Called(ctx, skillID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Material), args.Error(1)
}

func (m *MockMaterialRepository) Update(ctx context.Context, mat *domain.Material) error {
	args := m.Called(ctx, mat)
	return args.Error(0)
}

func (m *MockMaterialRepository) UpdatePresignedURL(ctx context.Context, id, url string, expiresAt time.Time) error {
	args := m.Called(ctx, id, url, expiresAt)
	return args.Error(0)
}

func (m *MockMaterialRepository) IncrementUsage(ctx context.Context, id string, usedAt time.Time) error {
	args := m.Called(ctx, id, usedAt)
	return args.Error(0)
}

func (m *MockMaterialRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStorageGateway is a mock implementation of StorageGatewayInterface
type MockStorageGateway struct {
	mock.Mock
}

func (m *MockStorageGateway) Provider() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStorageGateway) Upload(ctx context.Context, r io.Reader, key string, contentType string) (*storage.UploadResult, error) {
	args := m.Called(ctx, r, key, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *MockStorageGateway) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageGateway) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorageGateway) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockStorageGateway) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockVectorIndexClient is a mock implementation of VectorIndexClientInterface
type MockVectorIndexClient struct {
	mock.Mock
}

func (m *MockVectorIndexClient) Upsert(ctx context.Context, collection, pointID string, vector []float32, payload map[string]any) error {
	args := m.Called(ctx, collection, pointID, vector, payload)
	return args.Error(0)
}

func (m *MockVectorIndexClient) Delete(ctx context.Context, collection, pointID string) error {
	args := m.Called(ctx, collection, pointID)
	return args.Error(0)
}

// fakeTxRunner executes the transaction function directly against the
// provided repositories; good enough for unit tests.
type fakeTxRunner struct {
	repos fakeTxRepos
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(&r.repos)
}

type fakeTxRepos struct {
	skills    SkillRepositoryInterface
	sources   KnowledgeSourceRepositoryInterface
	chunks    ChunkRepositoryInterface
	configs   RetrievalConfigRepositoryInterface
	materials MaterialRepositoryInterface
}

func (r *fakeTxRepos) Skills() SkillRepositoryInterface                     { return r.skills }
func (r *fakeTxRepos) Sources() KnowledgeSourceRepositoryInterface          { return r.sources }
func (r *fakeTxRepos) Chunks() ChunkRepositoryInterface                     { return r.chunks }
func (r *fakeTxRepos) RetrievalConfigs() RetrievalConfigRepositoryInterface { return r.configs }
func (r *fakeTxRepos) Materials() MaterialRepositoryInterface               { return r.materials }
