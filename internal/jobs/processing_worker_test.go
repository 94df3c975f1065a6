package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/service"
)

type MockSourceClaimer struct {
	mock.Mock
}

func (m *MockSourceClaimer) ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeSource, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeSource), args.Error(1)
}

func (m *MockSourceClaimer) MarkCompleted(ctx context.Context, id string, totalChunks, totalTokens int) error {
	args := m.Called(ctx, id, totalChunks, totalTokens)
	return args.Error(0)
}

func (m *MockSourceClaimer) MarkFailed(ctx context.Context, id string, processingError string) error {
	args := m.Called(ctx, id, processingError)
	return args.Error(0)
}

type MockHierarchyBuilder struct {
	mock.Mock
}

func (m *MockHierarchyBuilder) BuildHierarchy(ctx context.Context, sourceID string) (*service.BuildHierarchyResult, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BuildHierarchyResult), args.Error(1)
}

func claimedSource(id string) *domain.KnowledgeSource {
	ks := domain.NewKnowledgeSource(id, "skill-1", domain.SourceTypeText, "notes-"+id, time.Now().UTC())
	ks.Status = domain.ProcessingStatusProcessing
	return ks
}

func TestProcessingWorker_ProcessJobs(t *testing.T) {
	ctx := context.Background()

	t.Run("no pending sources is a no-op", func(t *testing.T) {
		claimer := new(MockSourceClaimer)
		builder := new(MockHierarchyBuilder)
		worker := NewProcessingWorker(claimer, builder)

		claimer.On("ClaimPending", ctx, ClaimBatchSize).Return([]*domain.KnowledgeSource{}, nil)

		require.NoError(t, worker.ProcessJobs(ctx))
		builder.AssertNotCalled(t, "BuildHierarchy", mock.Anything, mock.Anything)
	})

	t.Run("claimed source is chunked and completed", func(t *testing.T) {
		claimer := new(MockSourceClaimer)
		builder := new(MockHierarchyBuilder)
		worker := NewProcessingWorker(claimer, builder)

		claimer.On("ClaimPending", mock.Anything, ClaimBatchSize).
			Return([]*domain.KnowledgeSource{claimedSource("src-1")}, nil)
		builder.On("BuildHierarchy", mock.Anything, "src-1").
			Return(&service.BuildHierarchyResult{ParentCount: 2, ChildCount: 7, TotalTokens: 3000}, nil)
		claimer.On("MarkCompleted", mock.Anything, "src-1", 9, 3000).Return(nil)

		require.NoError(t, worker.ProcessJobs(ctx))
		claimer.AssertExpectations(t)
		builder.AssertExpectations(t)
	})

	t.Run("chunking failure marks the source failed", func(t *testing.T) {
		claimer := new(MockSourceClaimer)
		builder := new(MockHierarchyBuilder)
		worker := NewProcessingWorker(claimer, builder)

		claimer.On("ClaimPending", mock.Anything, ClaimBatchSize).
			Return([]*domain.KnowledgeSource{claimedSource("src-1")}, nil)
		builder.On("BuildHierarchy", mock.Anything, "src-1").
			Return(nil, errors.New("blob unreadable"))
		claimer.On("MarkFailed", mock.Anything, "src-1", "blob unreadable").Return(nil)

		require.NoError(t, worker.ProcessJobs(ctx))
		claimer.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("one bad source does not block the rest of the batch", func(t *testing.T) {
		claimer := new(MockSourceClaimer)
		builder := new(MockHierarchyBuilder)
		worker := NewProcessingWorker(claimer, builder)

		claimer.On("ClaimPending", mock.Anything, ClaimBatchSize).
			Return([]*domain.KnowledgeSource{claimedSource("src-1"), claimedSource("src-2")}, nil)
		builder.On("BuildHierarchy", mock.Anything, "src-1").
			Return(nil, errors.New("boom"))
		claimer.On("MarkFailed", mock.Anything, "src-1", "boom").Return(nil)
		builder.On("BuildHierarchy", mock.Anything, "src-2").
			Return(&service.BuildHierarchyResult{ParentCount: 1, ChildCount: 3, TotalTokens: 500}, nil)
		claimer.On("MarkCompleted", mock.Anything, "src-2", 4, 500).Return(nil)

		require.NoError(t, worker.ProcessJobs(ctx))
		claimer.AssertExpectations(t)
	})

	t.Run("claim failure propagates", func(t *testing.T) {
		claimer := new(MockSourceClaimer)
		worker := NewProcessingWorker(claimer, new(MockHierarchyBuilder))

		claimer.On("ClaimPending", ctx, ClaimBatchSize).Return(nil, errors.New("db down"))

		assert.Error(t, worker.ProcessJobs(ctx))
	})
}
