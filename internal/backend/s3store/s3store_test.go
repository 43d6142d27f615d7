package s3store

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/savesync/savesync/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ backend.Backend = (*Backend)(nil)

// memoryBucket is an in-memory stand-in for a single S3 bucket.
type memoryBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}}
}

func (m *memoryBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *memoryBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (m *memoryBucket) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, src, _ := strings.Cut(aws.ToString(in.CopySource), "/")
	data, ok := m.objects[src]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	m.objects[aws.ToString(in.Key)] = bytes.Clone(data)
	return &s3.CopyObjectOutput{}, nil
}

func (m *memoryBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memoryBucket) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

func TestDocument(t *testing.T) {
	ctx := context.Background()
	bucket := newMemoryBucket()
	b := newWithClient(bucket, "saves", "/games/")

	_, err := b.LoadDocument(ctx, "registry.json")
	assert.ErrorIs(t, err, backend.ErrNotFound)

	require.NoError(t, b.StoreDocument(ctx, "registry.json", []byte(`{"version":1}`)))
	assert.Equal(t, []string{"games/registry.json"}, bucket.keys())

	data, err := b.LoadDocument(ctx, "registry.json")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))
}

func TestArtifactLifecycle(t *testing.T) {
	ctx := context.Background()
	bucket := newMemoryBucket()
	b := newWithClient(bucket, "saves", "")
	dir := t.TempDir()

	src := filepath.Join(dir, "up.zip")
	require.NoError(t, os.WriteFile(src, []byte("archive"), 0o644))
	require.NoError(t, b.StoreArtifact(ctx, "old.zip", src))

	require.NoError(t, b.RenameArtifact(ctx, "old.zip", "new.zip"))
	assert.Equal(t, []string{"new.zip"}, bucket.keys())

	dst := filepath.Join(dir, "down", "new.zip")
	require.NoError(t, b.LoadArtifact(ctx, "new.zip", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))

	require.NoError(t, b.DeleteArtifact(ctx, "new.zip"))
	assert.Empty(t, bucket.keys())

	assert.ErrorIs(t, b.DeleteArtifact(ctx, "new.zip"), backend.ErrNotFound)
	assert.ErrorIs(t, b.LoadArtifact(ctx, "new.zip", dst), backend.ErrNotFound)
	assert.ErrorIs(t, b.RenameArtifact(ctx, "new.zip", "x.zip"), backend.ErrNotFound)
}

func TestString(t *testing.T) {
	assert.Equal(t, "s3://saves", newWithClient(newMemoryBucket(), "saves", "").String())
	assert.Equal(t, "s3://saves/games", newWithClient(newMemoryBucket(), "saves", "games/").String())
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), &Config{})
	assert.Error(t, err)
}
