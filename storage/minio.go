package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"JamLoop/config"
	"JamLoop/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and ensures the bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("Created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO client initialized", logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient returns the MinIO client instance.
func GetMinioClient() *minio.Client {
	return minioClient
}

// BlobStore stores and retrieves loop recordings and rendered mixdowns.
type BlobStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewBlobStore creates a blob store over the initialized MinIO client.
func NewBlobStore(cfg *config.Config) *BlobStore {
	return &BlobStore{
		client:  minioClient,
		bucket:  cfg.MinioBucket,
		baseURL: strings.TrimRight(cfg.BlobBaseURL, "/"),
	}
}

// PutLoop uploads a recorded loop blob and returns its object key and public URL.
// The extension follows the uploaded file's; browser recorders produce .webm.
func (s *BlobStore) PutLoop(ctx context.Context, data []byte, ext, contentType string) (key, url string, err error) {
	if s.client == nil {
		return "", "", fmt.Errorf("MinIO client not initialized")
	}
	key = fmt.Sprintf("loops/%s%s", uuid.NewString(), ext)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload loop: %w", err)
	}
	return key, s.URLFor(key), nil
}

// PutMixdown uploads a rendered mixdown WAV and returns its object key and public URL.
func (s *BlobStore) PutMixdown(ctx context.Context, data []byte) (key, url string, err error) {
	if s.client == nil {
		return "", "", fmt.Errorf("MinIO client not initialized")
	}
	key = fmt.Sprintf("mixdowns/%s.wav", uuid.NewString())
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "audio/wav"})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload mixdown: %w", err)
	}
	return key, s.URLFor(key), nil
}

// Fetch reads an object's full contents.
func (s *BlobStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if s.client == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Remove deletes an object.
func (s *BlobStore) Remove(ctx context.Context, key string) error {
	if s.client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// URLFor returns the public URL for an object key.
func (s *BlobStore) URLFor(key string) string {
	return s.baseURL + "/" + key
}
