package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lumenai/skillforge/internal/domain"
)

// FSGateway implements Gateway on the local filesystem. It is the fallback
// provider when no S3 credentials are configured and the backing store for
// tests that need real bytes without a container.
type FSGateway struct {
	root    string
	baseURL string
	secret  []byte
}

// NewFSGateway creates a filesystem gateway rooted at dir. baseURL is used
// to build object and presigned URLs (e.g. "http://localhost:8080/blobs").
func NewFSGateway(dir, baseURL string) (*FSGateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FSGateway{
		root:    dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  []byte("skillforge-fs-presign"),
	}, nil
}

// Provider returns the provider name
func (g *FSGateway) Provider() string {
	return ProviderFilesystem
}

// Upload reads the full stream, hashes it and writes it under key
func (g *FSGateway) Upload(ctx context.Context, r io.Reader, key string, contentType string) (*UploadResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.NewStorageError("upload", key, true, err)
	}

	path := g.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, domain.NewStorageError("upload", key, false, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, domain.NewStorageError("upload", key, false, err)
	}

	sum := sha256.Sum256(content)
	return &UploadResult{
		Key:      key,
		URL:      g.objectURL(key),
		Bucket:   g.root,
		Provider: ProviderFilesystem,
		Size:     int64(len(content)),
		SHA256:   hex.EncodeToString(sum[:]),
	}, nil
}

// Download returns the object bytes
func (g *FSGateway) Download(ctx context.Context, key string) ([]byte, error) {
	content, err := os.ReadFile(g.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, domain.NewStorageError("download", key, false, err)
	}
	return content, nil
}

// Delete removes the object; a missing key is not an error
func (g *FSGateway) Delete(ctx context.Context, key string) error {
	err := os.Remove(g.path(key))
	if err != nil && !os.IsNotExist(err) {
		return domain.NewStorageError("delete", key, false, err)
	}
	return nil
}

// PresignedURL returns a URL carrying an expiry timestamp and an HMAC over
// key+expiry, mirroring the shape of a real presigned URL.
func (g *FSGateway) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := os.Stat(g.path(key)); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return "", domain.NewStorageError("presign", key, false, err)
	}

	expires := time.Now().UTC().Add(ttl).Unix()
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%s:%d", key, expires)
	sig := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("%s/%s?expires=%s&signature=%s",
		g.baseURL, key, strconv.FormatInt(expires, 10), sig), nil
}

// Exists reports whether the object is present
func (g *FSGateway) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(g.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, domain.NewStorageError("head", key, false, err)
	}
	return true, nil
}

// Metadata returns size, modification time and a content type guessed from
// the file extension
func (g *FSGateway) Metadata(ctx context.Context, key string) (*ObjectInfo, error) {
	fi, err := os.Stat(g.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, domain.NewStorageError("head", key, false, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &ObjectInfo{
		Key:         key,
		Size:        fi.Size(),
		UpdatedAt:   fi.ModTime().UTC(),
		ContentType: contentType,
	}, nil
}

// List returns descriptors for every object under prefix, key-ordered
func (g *FSGateway) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo

	err := filepath.WalkDir(g.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(g.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, ObjectInfo{
			Key:       key,
			Size:      fi.Size(),
			UpdatedAt: fi.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("list", prefix, false, err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Copy duplicates an object within the store
func (g *FSGateway) Copy(ctx context.Context, srcKey, dstKey string) error {
	content, err := os.ReadFile(g.path(srcKey))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, srcKey)
		}
		return domain.NewStorageError("copy", srcKey, false, err)
	}

	dst := g.path(dstKey)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return domain.NewStorageError("copy", dstKey, false, err)
	}
	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return domain.NewStorageError("copy", dstKey, false, err)
	}
	return nil
}

func (g *FSGateway) path(key string) string {
	return filepath.Join(g.root, filepath.FromSlash(key))
}

func (g *FSGateway) objectURL(key string) string {
	return g.baseURL + "/" + key
}
