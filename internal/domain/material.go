package domain

import (
	"fmt"
	"time"
)

// MaterialType represents the kind of supporting asset
type MaterialType string

const (
	MaterialTypePDF   MaterialType = "pdf"
	MaterialTypeVideo MaterialType = "video"
	MaterialTypeAudio MaterialType = "audio"
	MaterialTypeImage MaterialType = "image"
)

// Material is a supporting asset (pdf/video/audio/image) attached to a
// skill. The presigned URL is a cache: it is served only while unexpired and
// regenerated (and persisted) once stale.
type Material struct {
	ID           string
	SkillID      string
	Type         MaterialType
	Name         string
	Description  string
	UsageContext string
	StorageRef   StorageObjectRef
	File         FileMetadata

	// type-specific metadata
	Duration     int
	Width        int
	Height       int
	PageCount    int
	ThumbnailKey string

	PresignedURL          string
	PresignedURLExpiresAt *time.Time

	UsageCount int
	LastUsedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PresignedURLValid reports whether the cached presigned URL can still be
// served at the given instant.
func (m *Material) PresignedURLValid(now time.Time) bool {
	return m.PresignedURL != "" &&
		m.PresignedURLExpiresAt != nil &&
		now.Before(*m.PresignedURLExpiresAt)
}

// ValidateMaterial validates a Material instance
func ValidateMaterial(m *Material) error {
	if m == nil {
		return fmt.Errorf("material cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("material ID is required")
	}

	if m.SkillID == "" {
		return fmt.Errorf("material SkillID is required")
	}

	if m.Name == "" {
		return fmt.Errorf("material Name is required")
	}

	if !isValidMaterialType(m.Type) {
		return fmt.Errorf("material Type is invalid: %s", m.Type)
	}

	if m.StorageRef.IsZero() {
		return fmt.Errorf("material StorageRef is required")
	}

	if m.File.Name == "" || m.File.MimeType == "" || m.File.SHA256 == "" {
		return fmt.Errorf("material file metadata is required")
	}

	if m.File.Size <= 0 {
		return fmt.Errorf("material file size must be positive")
	}

	return nil
}

// isValidMaterialType checks if a MaterialType is valid
func isValidMaterialType(t MaterialType) bool {
	switch t {
	case MaterialTypePDF, MaterialTypeVideo, MaterialTypeAudio, MaterialTypeImage:
		return true
	}
	return false
}
