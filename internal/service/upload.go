package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumenai/skillforge/internal/domain"
	"github.com/lumenai/skillforge/internal/storage"
	"github.com/lumenai/skillforge/internal/telemetry"
)

// StorageGatewayInterface is the slice of the object store the services
// need. Both the S3 and the filesystem gateway satisfy it.
type StorageGatewayInterface interface {
	Provider() string
	Upload(ctx context.Context, r io.Reader, key string, contentType string) (*storage.UploadResult, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// UploadService stores raw files under deterministic keys and returns the
// normalized upload descriptor.
type UploadService struct {
	gateway StorageGatewayInterface
}

// NewUploadService creates a new UploadService instance
func NewUploadService(gateway StorageGatewayInterface) *UploadService {
	return &UploadService{gateway: gateway}
}

// Storage folders used for upload keys.
const (
	FolderKnowledge = "knowledge"
	FolderMaterials = "materials"
)

// UploadFileInput represents the input for uploading a file
type UploadFileInput struct {
	WorkspaceID string
	SkillID     string
	Folder      string
	EntityID    string
	FileName    string
	ContentType string
	Body        io.Reader
}

// UploadFileResult is the stable upload contract: callers get everything
// needed to populate a storage reference and file metadata.
type UploadFileResult struct {
	Key          string
	URL          string
	Bucket       string
	Region       string
	Provider     string
	FileSize     int64
	FileHash     string
	FileName     string
	FileMimeType string
}

// UploadFile validates the input, builds the object key and stores the
// bytes. The same logical file always lands on the same key, so re-uploads
// overwrite rather than accumulate.
func (s *UploadService) UploadFile(ctx context.Context, input UploadFileInput) (*UploadFileResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "UploadService.UploadFile", telemetry.SpanAttributes{
		WorkspaceID: input.WorkspaceID,
		SkillID:     input.SkillID,
		Operation:   "upload",
	})
	defer span.End()

	if input.WorkspaceID == "" {
		return nil, domain.NewValidationError("workspace_id", "is required")
	}
	if input.SkillID == "" {
		return nil, domain.NewValidationError("skill_id", "is required")
	}
	if input.Folder == "" {
		return nil, domain.NewValidationError("folder", "is required")
	}
	if input.FileName == "" {
		return nil, domain.NewValidationError("file_name", "is required")
	}

	key := storage.GenerateKey(input.WorkspaceID, input.SkillID, input.Folder, input.FileName, input.EntityID)

	result, err := s.gateway.Upload(ctx, input.Body, key, input.ContentType)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &UploadFileResult{
		Key:          result.Key,
		URL:          result.URL,
		Bucket:       result.Bucket,
		Region:       result.Region,
		Provider:     result.Provider,
		FileSize:     result.Size,
		FileHash:     result.SHA256,
		FileName:     input.FileName,
		FileMimeType: input.ContentType,
	}, nil
}

// UploadKnowledgeFile stores a knowledge source file under the skill's
// knowledge folder.
func (s *UploadService) UploadKnowledgeFile(ctx context.Context, workspaceID, skillID, fileName, contentType string, body io.Reader) (*UploadFileResult, error) {
	return s.UploadFile(ctx, UploadFileInput{
		WorkspaceID: workspaceID,
		SkillID:     skillID,
		Folder:      FolderKnowledge,
		FileName:    fileName,
		ContentType: contentType,
		Body:        body,
	})
}

// UploadMaterialFile stores a material file under the skill's materials
// folder, segmented by material id.
func (s *UploadService) UploadMaterialFile(ctx context.Context, workspaceID, skillID, materialID, fileName, contentType string, body io.Reader) (*UploadFileResult, error) {
	return s.UploadFile(ctx, UploadFileInput{
		WorkspaceID: workspaceID,
		SkillID:     skillID,
		Folder:      FolderMaterials,
		EntityID:    materialID,
		FileName:    fileName,
		ContentType: contentType,
		Body:        body,
	})
}

// FileExtension returns the lowercase extension without the dot
func FileExtension(fileName string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
}
