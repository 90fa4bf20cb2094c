package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lightgrid/lightgrid-services-uploads/logging"
)

// S3ObjectStorage stages chunks under staging/{uploadId}/chunk_{index}
// and persists finalized files under their storage keys in the same
// bucket.
type S3ObjectStorage struct {
	client     *s3.Client
	bucketName string

	logger logging.Logger
}

func NewS3ObjectStorage(client *s3.Client, bucketName string, l logging.Logger) *S3ObjectStorage {
	return &S3ObjectStorage{
		client:     client,
		bucketName: bucketName,
		logger:     l,
	}
}

func stagingPrefix(uploadID string) string {
	return fmt.Sprintf("staging/%s/", uploadID)
}

func chunkKey(uploadID string, index int) string {
	return fmt.Sprintf("staging/%s/chunk_%06d", uploadID, index)
}

func (s *S3ObjectStorage) StageChunk(ctx context.Context, uploadID string, index int, data []byte) error {
	key := chunkKey(uploadID, index)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		s.logger.Error("failed to stage chunk", "upload_id", uploadID, "chunk_index", index, "error", err)
		return fmt.Errorf("stage chunk %d: %w", index, err)
	}

	s.logger.Debug("staged chunk", "upload_id", uploadID, "chunk_index", index, "size", len(data))
	return nil
}

// AssembleStaged streams chunks in strict index order into w. Missing
// chunks surface as errors rather than silent gaps.
func (s *S3ObjectStorage) AssembleStaged(ctx context.Context, uploadID string, totalChunks int, w io.Writer) error {
	for i := 0; i < totalChunks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		key := chunkKey(uploadID, i)

		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			s.logger.Error("failed to read staged chunk", "upload_id", uploadID, "chunk_index", i, "error", err)
			return fmt.Errorf("read staged chunk %d: %w", i, err)
		}

		_, err = io.Copy(w, out.Body)
		out.Body.Close()
		if err != nil {
			s.logger.Error("failed to stream staged chunk", "upload_id", uploadID, "chunk_index", i, "error", err)
			return fmt.Errorf("stream staged chunk %d: %w", i, err)
		}
	}

	return nil
}

func (s *S3ObjectStorage) DeleteStaged(ctx context.Context, uploadID string) error {
	return s.deletePrefix(ctx, stagingPrefix(uploadID))
}

func (s *S3ObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("failed to put object", "key", key, "error", err)
		return fmt.Errorf("put object %s: %w", key, err)
	}

	s.logger.Info("stored object", "key", key, "size", size)
	return nil
}

func (s *S3ObjectStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3ObjectStorage) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.client)

	presigned, err := presigner.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(ttl),
	)
	if err != nil {
		return "", err
	}

	return presigned.URL, nil
}

func (s *S3ObjectStorage) deletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})

	totalDeleted := 0
	for paginator.HasMorePages() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("failed to list objects for deletion", "prefix", prefix, "error", err)
			return fmt.Errorf("list objects for deletion: %w", err)
		}

		if len(page.Contents) == 0 {
			continue
		}

		var objects []types.ObjectIdentifier
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucketName),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			s.logger.Error("failed to delete objects", "prefix", prefix, "batch_size", len(objects), "error", err)
			return fmt.Errorf("delete objects under %s: %w", prefix, err)
		}

		totalDeleted += len(objects)
	}

	s.logger.Debug("deleted staging prefix", "prefix", prefix, "total_deleted", totalDeleted)
	return nil
}
