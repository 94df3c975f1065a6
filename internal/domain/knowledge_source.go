package domain

import (
	"fmt"
	"time"
)

// SourceType represents the kind of input feeding a skill
type SourceType string

const (
	SourceTypeFile    SourceType = "file"
	SourceTypeWebsite SourceType = "website"
	SourceTypeText    SourceType = "text"
	SourceTypeYouTube SourceType = "youtube"
)

// ProcessingStatus represents the ingestion state of a knowledge source
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// StorageObjectRef points at a blob in the object store. Blobs never live in
// relational rows; only this reference does.
type StorageObjectRef struct {
	Bucket string
	Key    string
	Region string
	URL    string
}

// IsZero reports whether the reference points at nothing
func (r StorageObjectRef) IsZero() bool {
	return r.Key == ""
}

// FileMetadata describes the uploaded file backing a source or material
type FileMetadata struct {
	Name      string
	Size      int64
	MimeType  string
	SHA256    string
	Extension string
}

// KnowledgeSource is one ingested input (file, website, raw text, or video
// transcript) feeding a skill. Status transitions are
// pending -> processing -> {completed, failed}; failed may be reset to
// pending for retry.
type KnowledgeSource struct {
	ID              string
	SkillID         string
	SourceType      SourceType
	Name            string
	Content         string
	StorageRef      StorageObjectRef
	File            FileMetadata
	Status          ProcessingStatus
	ProcessingError string
	ProcessedAt     *time.Time
	TotalChunks     int
	TotalTokens     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewKnowledgeSource creates a new KnowledgeSource in pending state
func NewKnowledgeSource(id, skillID string, sourceType SourceType, name string, createdAt time.Time) *KnowledgeSource {
	return &KnowledgeSource{
		ID:         id,
		SkillID:    skillID,
		SourceType: sourceType,
		Name:       name,
		Status:     ProcessingStatusPending,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// ValidateKnowledgeSource validates a KnowledgeSource instance
func ValidateKnowledgeSource(ks *KnowledgeSource) error {
	if ks == nil {
		return fmt.Errorf("knowledge source cannot be nil")
	}

	if ks.ID == "" {
		return fmt.Errorf("knowledge source ID is required")
	}

	if ks.SkillID == "" {
		return fmt.Errorf("knowledge source SkillID is required")
	}

	if ks.Name == "" {
		return fmt.Errorf("knowledge source Name is required")
	}

	if !isValidSourceType(ks.SourceType) {
		return fmt.Errorf("knowledge source SourceType is invalid: %s", ks.SourceType)
	}

	if !isValidProcessingStatus(ks.Status) {
		return fmt.Errorf("knowledge source Status is invalid: %s", ks.Status)
	}

	if ks.SourceType == SourceTypeFile && ks.StorageRef.IsZero() {
		return ErrMissingStorageRef
	}

	return nil
}

// CanTransitionTo reports whether the processing status machine permits a
// transition from the current status to next. Retrying from failed back to
// pending is the only backward edge.
func (ks *KnowledgeSource) CanTransitionTo(next ProcessingStatus) bool {
	switch ks.Status {
	case ProcessingStatusPending:
		return next == ProcessingStatusProcessing
	case ProcessingStatusProcessing:
		return next == ProcessingStatusCompleted || next == ProcessingStatusFailed
	case ProcessingStatusFailed:
		return next == ProcessingStatusPending
	case ProcessingStatusCompleted:
		// terminal unless explicitly reprocessed
		return next == ProcessingStatusProcessing
	}
	return false
}

// isValidSourceType checks if a SourceType is valid
func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeFile, SourceTypeWebsite, SourceTypeText, SourceTypeYouTube:
		return true
	}
	return false
}

// isValidProcessingStatus checks if a ProcessingStatus is valid
func isValidProcessingStatus(s ProcessingStatus) bool {
	switch s {
	case ProcessingStatusPending, ProcessingStatusProcessing, ProcessingStatusCompleted, ProcessingStatusFailed:
		return true
	}
	return false
}
