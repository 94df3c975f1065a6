// Package storage provides provider-agnostic access to the object store
// holding knowledge files and materials.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Provider names accepted by the composition root.
const (
	ProviderS3         = "s3"
	ProviderFilesystem = "fs"
)

// UploadResult is the normalized descriptor returned by Upload
type UploadResult struct {
	Key      string
	URL      string
	Bucket   string
	Region   string
	Provider string
	Size     int64
	SHA256   string
}

// ObjectInfo contains metadata about a stored object
type ObjectInfo struct {
	Key         string
	Size        int64
	UpdatedAt   time.Time
	ContentType string
}

// Gateway abstracts the object store. Implementations must report missing
// keys as a permanent domain.StorageError and transport failures as
// transient ones, and must treat Delete of an absent key as success.
type Gateway interface {
	// Provider returns the provider name ("s3" or "fs")
	Provider() string

	// Upload reads the full stream, computes its SHA-256, stores the bytes
	// under key and returns a normalized descriptor. Re-uploading the same
	// key is last-write-wins; the hash is recomputed every time.
	Upload(ctx context.Context, r io.Reader, key string, contentType string) (*UploadResult, error)

	// Download returns the object bytes
	Download(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// PresignedURL returns a time-limited read URL. No state is persisted;
	// callers own caching and expiry bookkeeping.
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Exists reports whether the object is present
	Exists(ctx context.Context, key string) (bool, error)

	// Metadata returns size, modification time and content type
	Metadata(ctx context.Context, key string) (*ObjectInfo, error)

	// List returns descriptors for every object under prefix
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Copy duplicates an object within the store
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// GenerateKey builds a deterministic, human-navigable object key:
// workspaces/{workspace}/skills/{skill}/{folder}/{fileName}, with an
// optional entity segment before the file name. Unrelated entities never
// collide because every segment is an owned identifier.
func GenerateKey(workspaceID, skillID, folder, fileName, entityID string) string {
	if entityID != "" {
		return fmt.Sprintf("workspaces/%s/skills/%s/%s/%s/%s", workspaceID, skillID, folder, entityID, fileName)
	}
	return fmt.Sprintf("workspaces/%s/skills/%s/%s/%s", workspaceID, skillID, folder, fileName)
}
