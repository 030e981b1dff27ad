package minio

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

// Storage fetches uploaded videos from one bucket and stores exported
// chronophotos in another.
type Storage struct {
	client       *miniogo.Client
	videoBucket  string
	resultBucket string
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	VideoBucket  string
	ResultBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:       client,
		videoBucket:  cfg.VideoBucket,
		resultBucket: cfg.ResultBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.videoBucket, s.resultBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// FetchVideo downloads objectKey into destDir. The stored Content-Type is
// reported as the declared MIME type of the file.
func (s *Storage) FetchVideo(ctx context.Context, objectKey string, destDir string) (entity.VideoFile, error) {
	info, err := s.client.StatObject(ctx, s.videoBucket, objectKey, miniogo.StatObjectOptions{})
	if err != nil {
		return entity.VideoFile{}, fmt.Errorf("stat video: %w", err)
	}

	name := path.Base(objectKey)
	destPath := filepath.Join(destDir, name)
	if err := s.client.FGetObject(ctx, s.videoBucket, objectKey, destPath, miniogo.GetObjectOptions{}); err != nil {
		return entity.VideoFile{}, fmt.Errorf("download video: %w", err)
	}

	return entity.VideoFile{
		Name: name,
		Type: info.ContentType,
		Path: destPath,
		Size: info.Size,
	}, nil
}

// Export uploads a finished chronophoto and returns its bucket/key location.
func (s *Storage) Export(ctx context.Context, name string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.resultBucket, name, bytes.NewReader(data), int64(len(data)), miniogo.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("upload result: %w", err)
	}
	return s.resultBucket + "/" + name, nil
}
