package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenai/skillforge/internal/domain"
)

func testMaterial(now time.Time) *domain.Material {
	return &domain.Material{
		ID:         "mat-1",
		SkillID:    "skill-1",
		Type:       domain.MaterialTypePDF,
		Name:       "handbook.pdf",
		StorageRef: domain.StorageObjectRef{Bucket: "b", Key: "workspaces/ws/skills/s/materials/mat-1/handbook.pdf"},
		File: domain.FileMetadata{
			Name:     "handbook.pdf",
			Size:     2048,
			MimeType: "application/pdf",
			SHA256:   "abc123",
		},
		PageCount: 12,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMaterialService_Attach(t *testing.T) {
	ctx := context.Background()

	t.Run("records an uploaded file", func(t *testing.T) {
		materialRepo := new(MockMaterialRepository)
		svc := NewMaterialServiceWithUUIDGen(materialRepo, new(MockStorageGateway), NewMockUUIDGenerator("mat-1"))

		materialRepo.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Material) bool {
			return m.ID == "mat-1" && m.Type == domain.MaterialTypePDF
		})).Return(nil)

		m, err := svc.Attach(ctx, AttachMaterialInput{
			SkillID:    "skill-1",
			Type:       domain.MaterialTypePDF,
			Name:       "handbook.pdf",
			StorageRef: domain.StorageObjectRef{Bucket: "b", Key: "workspaces/ws/skills/s/materials/mat-1/handbook.pdf"},
			File:       domain.FileMetadata{Name: "handbook.pdf", Size: 2048, MimeType: "application/pdf", SHA256: "abc123"},
			PageCount:  12,
		})

		require.NoError(t, err)
		assert.Equal(t, 12, m.PageCount)
		materialRepo.AssertExpectations(t)
	})

	t.Run("missing file metadata is rejected", func(t *testing.T) {
		materialRepo := new(MockMaterialRepository)
		svc := NewMaterialServiceWithUUIDGen(materialRepo, new(MockStorageGateway), NewMockUUIDGenerator("mat-1"))

		_, err := svc.Attach(ctx, AttachMaterialInput{
			SkillID:    "skill-1",
			Type:       domain.MaterialTypePDF,
			Name:       "handbook.pdf",
			StorageRef: domain.StorageObjectRef{Bucket: "b", Key: "k"},
		})

		require.Error(t, err)
		materialRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestMaterialService_AccessURL(t *testing.T) {
	ctx := context.Background()
	base := testNow()

	t.Run("valid cached url is served without presigning", func(t *testing.T) {
		materialRepo := new(MockMaterialRepository)
		gateway := new(MockStorageGateway)
		svc := NewMaterialService(materialRepo, gateway)
		svc.now = func() time.Time { return base }

		m := testMaterial(base)
		m.PresignedURL = "https://cached.example/url"
		expires := base.Add(30 * time.Minute)
		m.PresignedURLExpiresAt = &expires

		materialRepo.On("GetByID", mock.Anything, "mat-1").Return(m, nil)

		url, err := svc.AccessURL(ctx, "mat-1")
		require.NoError(t, err)
		assert.Equal(t, "https://cached.example/url", url)
		gateway.AssertNotCalled(t, "PresignedURL", mock.Anything, mock.Anything, mock.Anything)
		materialRepo.AssertNotCalled(t, "UpdatePresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired url is regenerated and persisted", func(t *testing.T) {
		materialRepo := new(MockMaterialRepository)
		gateway := new(MockStorageGateway)
		svc := NewMaterialService(materialRepo, gateway)
		svc.now = func() time.Time { return base }

		m := testMaterial(base)
		m.PresignedURL = "https://stale.example/url"
		expires := base.Add(-time.Minute)
		m.PresignedURLExpiresAt = &expires

		materialRepo.On("GetByID", mock.Anything, "mat-1").Return(m, nil)
		gateway.On("PresignedURL", mock.Anything, m.StorageRef.Key, PresignedURLTTL).
			Return("https://fresh.example/url", nil)
		materialRepo.On("UpdatePresignedURL", mock.Anything, "mat-1", "https://fresh.example/url", base.Add(PresignedURLTTL)).
			Return(nil)

		url, err := svc.AccessURL(ctx, "mat-1")
		require.NoError(t, err)
		assert.Equal(t, "https://fresh.example/url", url)
		materialRepo.AssertExpectations(t)
	})

	t.Run("persist failure still returns the fresh url", func(t *testing.T) {
		materialRepo := new(MockMaterialRepository)
		gateway := new(MockStorageGateway)
		svc := NewMaterialService(materialRepo, gateway)
		svc.now = func() time.Time { return base }

		m := testMaterial(base)
		materialRepo.On("GetByID", mock.Anything, "mat-1").Return(m, nil)
		gateway.On("PresignedURL", mock.Anything, m.StorageRef.Key, PresignedURLTTL).
			Return("https://fresh.example/url", nil)
		materialRepo.On("UpdatePresignedURL", mock.Anything, "mat-1", mock.Anything, mock.Anything).
			Return(errors.New("db unavailable"))

		url, err := svc.AccessURL(ctx, "mat-1")
		require.NoError(t, err)
		assert.Equal(t, "https://fresh.example/url", url)
	})

	t.Run("presign failure propagates", func(t *testing.T) {
		materialRepo := new(MockMaterialRepository)
		gateway := new(MockStorageGateway)
		svc := NewMaterialService(materialRepo, gateway)
		svc.now = func() time.Time { return base }

		materialRepo.On("GetByID", mock.Anything, "mat-1").Return(testMaterial(base), nil)
		gateway.On("PresignedURL", mock.Anything, mock.Anything, PresignedURLTTL).
			Return("", errors.New("storage unavailable"))

		_, err := svc.AccessURL(ctx, "mat-1")
		require.Error(t, err)
	})
}

func TestMaterialService_RecordUsage(t *testing.T) {
	ctx := context.Background()

	materialRepo := new(MockMaterialRepository)
	svc := NewMaterialService(materialRepo, new(MockStorageGateway))
	base := testNow()
	svc.now = func() time.Time { return base }

	materialRepo.On("IncrementUsage", mock.Anything, "mat-1", base).Return(nil)

	require.NoError(t, svc.RecordUsage(ctx, "mat-1"))
	materialRepo.AssertExpectations(t)
}

func TestMaterialService_Delete(t *testing.T) {
	ctx := context.Background()
	base := testNow()

	t.Run("deletes record then blob and thumbnail", func(t *testing.T) {
		materialRepo := new(MockMaterialRepository)
		gateway := new(MockStorageGateway)
		svc := NewMaterialService(materialRepo, gateway)

		m := testMaterial(base)
		m.ThumbnailKey = "workspaces/ws/skills/s/materials/mat-1/thumb.png"

		materialRepo.On("GetByID", mock.Anything, "mat-1").Return(m, nil)
		materialRepo.On("Delete", mock.Anything, "mat-1").Return(nil)
		gateway.On("Delete", mock.Anything, m.StorageRef.Key).Return(nil)
		gateway.On("Delete", mock.Anything, m.ThumbnailKey).Return(nil)

		require.NoError(t, svc.Delete(ctx, "mat-1"))
		gateway.AssertNumberOfCalls(t, "Delete", 2)
	})

	t.Run("blob cleanup failure does not block deletion", func(t *testing.T) {
		materialRepo := new(MockMaterialRepository)
		gateway := new(MockStorageGateway)
		svc := NewMaterialService(materialRepo, gateway)

		materialRepo.On("GetByID", mock.Anything, "mat-1").Return(testMaterial(base), nil)
		materialRepo.On("Delete", mock.Anything, "mat-1").Return(nil)
		gateway.On("Delete", mock.Anything, mock.Anything).Return(errors.New("bucket unavailable"))

		assert.NoError(t, svc.Delete(ctx, "mat-1"))
	})
}
