package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/telemetry"
)

// MaterialRepositoryInterface defines the repository interface for material
// persistence
type MaterialRepositoryInterface interface {
	Create(ctx context.Context, m *domain.Material) error
	GetByID(ctx context.Context, id string) (*domain.Material, error)
	ListBySkill(ctx context.Context, skillID string) ([]*domain.Material, error)
	Update(ctx context.Context, m *domain.Material) error
	UpdatePresignedURL(ctx context.Context, id, url string, expiresAt time.Time) error
	IncrementUsage(ctx context.Context, id string, usedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// PresignedURLTTL is how long a cached material URL stays valid.
const PresignedURLTTL = time.Hour

// MaterialService manages supporting assets and their presigned URL cache.
type MaterialService struct {
	materialRepo MaterialRepositoryInterface
	gateway      StorageGatewayInterface
	uuidGen      UUIDGenerator
	now          func() time.Time

	// per-material locks so concurrent reads of the same expired URL
	// trigger exactly one regeneration
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMaterialService creates a new MaterialService instance
func NewMaterialService(materialRepo MaterialRepositoryInterface, gateway StorageGatewayInterface) *MaterialService {
	return &MaterialService{
		materialRepo: materialRepo,
		gateway:      gateway,
		uuidGen:      &DefaultUUIDGenerator{},
		now:          func() time.Time { return time.Now().UTC() },
		locks:        make(map[string]*sync.Mutex),
	}
}

// NewMaterialServiceWithUUIDGen creates a new MaterialService with custom
// UUID generator (for testing)
func NewMaterialServiceWithUUIDGen(materialRepo MaterialRepositoryInterface, gateway StorageGatewayInterface, uuidGen UUIDGenerator) *MaterialService {
	s := NewMaterialService(materialRepo, gateway)
	s.uuidGen = uuidGen
	return s
}

// AttachMaterialInput represents the input for attaching a material to a
// skill. The file is already uploaded; this records it.
type AttachMaterialInput struct {
	SkillID      string
	Type         domain.MaterialType
	Name         string
	Description  string
	UsageContext string
	StorageRef   domain.StorageObjectRef
	File         domain.FileMetadata

	Duration     int
	Width        int
	Height       int
	PageCount    int
	ThumbnailKey string
}

// Attach records an uploaded file as a skill material
func (s *MaterialService) Attach(ctx context.Context, input AttachMaterialInput) (*domain.Material, error) {
	ctx, span := telemetry.StartSpan(ctx, "MaterialService.Attach", telemetry.SpanAttributes{
		SkillID:   input.SkillID,
		Operation: "create",
	})
	defer span.End()

	now := s.now()
	material := &domain.Material{
		ID:           s.uuidGen.NewString(),
		SkillID:      input.SkillID,
		Type:         input.Type,
		Name:         input.Name,
		Description:  input.Description,
		UsageContext: input.UsageContext,
		StorageRef:   input.StorageRef,
		File:         input.File,
		Duration:     input.Duration,
		Width:        input.Width,
		Height:       input.Height,
		PageCount:    input.PageCount,
		ThumbnailKey: input.ThumbnailKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := domain.ValidateMaterial(material); err != nil {
		return nil, err
	}

	if err := s.materialRepo.Create(ctx, material); err != nil {
		return nil, err
	}
	return material, nil
}

// GetByID retrieves a material by ID
func (s *MaterialService) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	return s.materialRepo.GetByID(ctx, id)
}

// ListBySkill retrieves all materials of a skill
func (s *MaterialService) ListBySkill(ctx context.Context, skillID string) ([]*domain.Material, error) {
	return s.materialRepo.ListBySkill(ctx, skillID)
}

// AccessURL returns a presigned URL for the material's file. A still-valid
// cached URL is served as-is; an expired one is regenerated and the new URL
// persisted so later reads within the TTL hit the cache again.
func (s *MaterialService) AccessURL(ctx context.Context, id string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "MaterialService.AccessURL", telemetry.SpanAttributes{
		Operation: "presign",
	})
	defer span.End()

	material, err := s.materialRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	now := s.now()
	if material.PresignedURLValid(now) {
		return material.PresignedURL, nil
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	// another caller may have refreshed while we waited on the lock
	material, err = s.materialRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	now = s.now()
	if material.PresignedURLValid(now) {
		return material.PresignedURL, nil
	}

	url, err := s.gateway.PresignedURL(ctx, material.StorageRef.Key, PresignedURLTTL)
	if err != nil {
		span.SetError(err)
		return "", err
	}

	expiresAt := now.Add(PresignedURLTTL)
	if err := s.materialRepo.UpdatePresignedURL(ctx, id, url, expiresAt); err != nil {
		// the URL is still usable even if persisting the cache failed
		log.Printf("material: failed to persist presigned url for %s: %v", id, err)
		telemetry.CaptureError(ctx, err)
	}
	return url, nil
}

// RecordUsage bumps the material's usage counter
func (s *MaterialService) RecordUsage(ctx context.Context, id string) error {
	return s.materialRepo.IncrementUsage(ctx, id, s.now())
}

// UpdateMaterialInput represents the input for updating material metadata
type UpdateMaterialInput struct {
	MaterialID   string
	Name         string
	Description  string
	UsageContext string
}

// Update modifies the material's descriptive fields
func (s *MaterialService) Update(ctx context.Context, input UpdateMaterialInput) (*domain.Material, error) {
	material, err := s.materialRepo.GetByID(ctx, input.MaterialID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		material.Name = input.Name
	}
	if input.Description != "" {
		material.Description = input.Description
	}
	if input.UsageContext != "" {
		material.UsageContext = input.UsageContext
	}

	if err := domain.ValidateMaterial(material); err != nil {
		return nil, err
	}

	if err := s.materialRepo.Update(ctx, material); err != nil {
		return nil, err
	}
	return material, nil
}

// Delete removes the material record, then deletes the stored file and
// thumbnail best-effort.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "MaterialService.Delete", telemetry.SpanAttributes{
		Operation: "delete",
	})
	defer span.End()

	material, err := s.materialRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.materialRepo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.gateway.Delete(ctx, material.StorageRef.Key); err != nil {
		log.Printf("material: failed to delete stored object %s: %v", material.StorageRef.Key, err)
		telemetry.CaptureError(ctx, err)
	}
	if material.ThumbnailKey != "" {
		if err := s.gateway.Delete(ctx, material.ThumbnailKey); err != nil {
			log.Printf("material: failed to delete thumbnail %s: %v", material.ThumbnailKey, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()

	return nil
}

func (s *MaterialService) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[id] = l
	return l
}
