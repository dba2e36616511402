package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"insureportal-backend/shared/config"
	applog "insureportal-backend/shared/logger"
)

// MinIOService stores uploads as objects in a single bucket
type MinIOService struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

func NewMinIOService(cfg *config.Config) (*MinIOService, error) {
	// Parse endpoint URL to get host
	parsedURL, err := url.Parse(cfg.MinIOServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MinIO endpoint: %v", err)
	}

	endpoint := parsedURL.Host
	if endpoint == "" {
		endpoint = cfg.MinIOServerURL
	}
	useSSL := cfg.MinIOUseSSL || parsedURL.Scheme == "https"

	applog.Info().Str("endpoint", endpoint).Bool("ssl", useSSL).Msg("🔗 Connecting to MinIO")

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	service := &MinIOService{
		client:     minioClient,
		bucketName: cfg.MinIOBucketName,
		prefix:     "uploads/",
	}

	// Test connection and create bucket if needed
	if err := service.initializeBucket(context.Background()); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *MinIOService) initializeBucket(ctx context.Context) error {
	applog.Info().Str("bucket", s.bucketName).Msg("🪣 Checking bucket")

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %v", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %v", err)
		}
		applog.Info().Str("bucket", s.bucketName).Msg("✅ MinIO bucket created")
	} else {
		applog.Info().Str("bucket", s.bucketName).Msg("✅ MinIO bucket already exists")
	}

	return nil
}

func (s *MinIOService) objectKey(name string) string {
	return s.prefix + strings.TrimPrefix(name, "/")
}

// Save uploads the file as an object
func (s *MinIOService) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	applog.Debug().Str("bucket", s.bucketName).Str("object", name).Int64("size", size).Msg("⬆️ Uploading object")

	_, err := s.client.PutObject(ctx, s.bucketName, s.objectKey(name), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %v", err)
	}
	return nil
}

// Open stats and opens the object. The returned object supports seeking.
func (s *MinIOService) Open(ctx context.Context, name string) (io.ReadSeekCloser, *ObjectInfo, error) {
	key := s.objectKey(name)

	stat, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to stat file: %v", err)
	}

	object, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download file: %v", err)
	}

	return object, &ObjectInfo{
		Name:        name,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ModTime:     stat.LastModified,
	}, nil
}
