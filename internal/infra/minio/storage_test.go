package minio

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

func TestStorageFetchAndExport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := NewStorage(StorageConfig{
		Endpoint:     endpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		VideoBucket:  "videos",
		ResultBucket: "chronophotos",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))
	require.NoError(t, storage.EnsureBuckets(ctx), "second call must be a no-op")

	payload := []byte("fake mp4 payload")
	_, err = storage.client.PutObject(ctx, "videos", "user/clip.mp4", bytes.NewReader(payload), int64(len(payload)),
		miniogo.PutObjectOptions{ContentType: "video/mp4"})
	require.NoError(t, err)

	file, err := storage.FetchVideo(ctx, "user/clip.mp4", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", file.Name)
	assert.Equal(t, "video/mp4", file.Type)
	assert.Equal(t, int64(len(payload)), file.Size)
	assert.True(t, file.IsVideo())

	got, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	location, err := storage.Export(ctx, "chronophoto-1700000000000.jpg", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	assert.Equal(t, "chronophotos/chronophoto-1700000000000.jpg", location)

	obj, err := storage.client.GetObject(ctx, "chronophotos", "chronophoto-1700000000000.jpg", miniogo.GetObjectOptions{})
	require.NoError(t, err)
	stat, err := obj.Stat()
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", stat.ContentType)
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
}

func TestFetchMissingVideo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcminio.Run(ctx, "minio/minio:latest")
	require.NoError(t, err)
	defer container.Terminate(ctx)

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := NewStorage(StorageConfig{
		Endpoint:     endpoint,
		AccessKey:    container.Username,
		SecretKey:    container.Password,
		VideoBucket:  "videos",
		ResultBucket: "chronophotos",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	_, err = storage.FetchVideo(ctx, "absent.mp4", t.TempDir())
	assert.Error(t, err)
}
