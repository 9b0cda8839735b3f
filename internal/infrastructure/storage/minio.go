package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tubechat/tubechat/pkg/config"
)

// maxTranscriptBytes caps a single transcript object at 10 MiB
const maxTranscriptBytes = 10 << 20

// TranscriptStore holds immutable transcript blobs in a private bucket.
// Objects live at `<video_id>/transcript.txt` and are plain UTF-8 text.
type TranscriptStore struct {
	client *minio.Client
	bucket string
}

// NewTranscriptStore creates a transcript blob store backed by MinIO
func NewTranscriptStore(cfg *config.StorageConfig) (*TranscriptStore, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &TranscriptStore{
		client: minioClient,
		bucket: cfg.BucketName,
	}, nil
}

// BlobPath returns the canonical object name for a video's transcript
func BlobPath(videoID string) string {
	return videoID + "/transcript.txt"
}

// ensureBucket creates the private bucket when it does not exist yet.
// No public policy is attached: transcripts are only read by this service.
func (s *TranscriptStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// WriteTranscript overwrites the transcript blob for a video. If the bucket
// is missing it is created and the upload retried once.
func (s *TranscriptStore) WriteTranscript(ctx context.Context, videoID, content string) (string, error) {
	if len(content) > maxTranscriptBytes {
		return "", fmt.Errorf("transcript exceeds %d byte cap", maxTranscriptBytes)
	}

	objectName := BlobPath(videoID)
	put := func() error {
		reader := bytes.NewReader([]byte(content))
		_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, int64(len(content)), minio.PutObjectOptions{
			ContentType: "text/plain",
		})
		return err
	}

	if err := put(); err != nil {
		if !isNoSuchBucket(err) {
			return "", fmt.Errorf("failed to upload transcript: %w", err)
		}
		if err := s.ensureBucket(ctx); err != nil {
			return "", err
		}
		if err := put(); err != nil {
			return "", fmt.Errorf("failed to upload transcript after bucket create: %w", err)
		}
	}

	return objectName, nil
}

// ReadTranscript fetches the full transcript blob for a video
func (s *TranscriptStore) ReadTranscript(ctx context.Context, videoID string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, BlobPath(videoID), minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to open transcript object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxTranscriptBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read transcript object: %w", err)
	}
	return string(data), nil
}

func isNoSuchBucket(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchBucket" {
		return true
	}
	return strings.Contains(err.Error(), "bucket does not exist")
}
