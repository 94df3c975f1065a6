package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) *FSGateway {
	t.Helper()
	g, err := NewFSGateway(t.TempDir(), "http://localhost:8080/blobs")
	require.NoError(t, err)
	return g
}

func TestFSGateway_Upload(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	content := "hello skillforge"
	result, err := g.Upload(ctx, strings.NewReader(content), "workspaces/ws/skills/s/knowledge/notes.txt", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "workspaces/ws/skills/s/knowledge/notes.txt", result.Key)
	assert.Equal(t, ProviderFilesystem, result.Provider)
	assert.Equal(t, int64(len(content)), result.Size)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), result.SHA256)
	assert.Equal(t, "http://localhost:8080/blobs/workspaces/ws/skills/s/knowledge/notes.txt", result.URL)
}

func TestFSGateway_UploadOverwrites(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	_, err := g.Upload(ctx, strings.NewReader("first"), "k/file.txt", "text/plain")
	require.NoError(t, err)
	_, err = g.Upload(ctx, strings.NewReader("second version"), "k/file.txt", "text/plain")
	require.NoError(t, err)

	content, err := g.Download(ctx, "k/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "second version", string(content))
}

func TestFSGateway_DownloadMissing(t *testing.T) {
	g := newTestGateway(t)

	_, err := g.Download(context.Background(), "no/such/key.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFSGateway_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	_, err := g.Upload(ctx, strings.NewReader("bytes"), "k/file.txt", "text/plain")
	require.NoError(t, err)

	require.NoError(t, g.Delete(ctx, "k/file.txt"))
	// deleting again must not fail
	require.NoError(t, g.Delete(ctx, "k/file.txt"))

	exists, err := g.Exists(ctx, "k/file.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFSGateway_PresignedURL(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	_, err := g.Upload(ctx, strings.NewReader("bytes"), "k/file.txt", "text/plain")
	require.NoError(t, err)

	url, err := g.PresignedURL(ctx, "k/file.txt", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "k/file.txt?")
	assert.Contains(t, url, "expires=")
	assert.Contains(t, url, "signature=")

	// two calls produce independently signed URLs
	url2, err := g.PresignedURL(ctx, "k/file.txt", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url2, "signature=")
}

func TestFSGateway_PresignedURLMissing(t *testing.T) {
	g := newTestGateway(t)

	_, err := g.PresignedURL(context.Background(), "no/such/key.txt", time.Hour)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFSGateway_Metadata(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	_, err := g.Upload(ctx, strings.NewReader("pdf bytes"), "k/handbook.pdf", "application/pdf")
	require.NoError(t, err)

	info, err := g.Metadata(ctx, "k/handbook.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)
}

func TestFSGateway_List(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	for _, key := range []string{"a/2.txt", "a/1.txt", "b/3.txt"} {
		_, err := g.Upload(ctx, strings.NewReader("x"), key, "text/plain")
		require.NoError(t, err)
	}

	infos, err := g.List(ctx, "a/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a/1.txt", infos[0].Key)
	assert.Equal(t, "a/2.txt", infos[1].Key)
}

func TestFSGateway_Copy(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	_, err := g.Upload(ctx, strings.NewReader("original"), "src/file.txt", "text/plain")
	require.NoError(t, err)

	require.NoError(t, g.Copy(ctx, "src/file.txt", "dst/file.txt"))

	content, err := g.Download(ctx, "dst/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))

	assert.ErrorIs(t, g.Copy(ctx, "missing.txt", "anywhere.txt"), ErrObjectNotFound)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t,
		"workspaces/ws-1/skills/skill-1/knowledge/notes.txt",
		GenerateKey("ws-1", "skill-1", "knowledge", "notes.txt", ""))

	assert.Equal(t,
		"workspaces/ws-1/skills/skill-1/materials/mat-1/demo.mp4",
		GenerateKey("ws-1", "skill-1", "materials", "demo.mp4", "mat-1"))
}
