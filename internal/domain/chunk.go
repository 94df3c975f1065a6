package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ChunkType distinguishes coarse parent segments from fine child segments
type ChunkType string

const (
	ChunkTypeParent ChunkType = "parent"
	ChunkTypeChild  ChunkType = "child"
)

// Chunk is a segment of a knowledge source's content. Embeddings live in the
// external vector index; only metadata and (optionally) the text live here.
// A child chunk's parent must belong to the same knowledge source.
type Chunk struct {
	ID            string
	SkillID       string
	SourceID      string
	Type          ChunkType
	ParentChunkID string
	Content       string
	ContentHash   string
	TokenCount    int
	ChunkIndex    int
	VectorPointID string
	Collection    string
	Synced        bool
	SyncedAt      *time.Time
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HashContent returns the hex-encoded SHA-256 of chunk content
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.SkillID == "" {
		return fmt.Errorf("chunk SkillID is required")
	}

	if c.SourceID == "" {
		return fmt.Errorf("chunk SourceID is required")
	}

	if !isValidChunkType(c.Type) {
		return fmt.Errorf("chunk Type is invalid: %s", c.Type)
	}

	if c.Type == ChunkTypeChild && c.ParentChunkID == "" {
		return fmt.Errorf("child chunk requires a ParentChunkID")
	}

	if c.Type == ChunkTypeParent && c.ParentChunkID != "" {
		return fmt.Errorf("parent chunk must not reference a parent")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex must not be negative")
	}

	if c.VectorPointID == "" {
		return fmt.Errorf("chunk VectorPointID is required")
	}

	if c.Content != "" && c.ContentHash != HashContent(c.Content) {
		return ErrChunkContentHashMismatch
	}

	return nil
}

// isValidChunkType checks if a ChunkType is valid
func isValidChunkType(t ChunkType) bool {
	switch t {
	case ChunkTypeParent, ChunkTypeChild:
		return true
	}
	return false
}
