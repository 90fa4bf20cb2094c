package store

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/spf13/afero"

	"github.com/lightgrid/lightgrid-services-uploads/logging"
)

// LocalObjectStorage keeps staged chunks and durable objects on an afero
// filesystem. It serves single-node/dev deployments and tests (backed by
// afero.NewMemMapFs); the S3 store is the production equivalent.
type LocalObjectStorage struct {
	fs       afero.Fs
	basePath string

	logger logging.Logger
}

func NewLocalObjectStorage(fs afero.Fs, basePath string, l logging.Logger) *LocalObjectStorage {
	return &LocalObjectStorage{
		fs:       fs,
		basePath: basePath,
		logger:   l,
	}
}

func (s *LocalObjectStorage) stagingDir(uploadID string) string {
	return path.Join(s.basePath, "staging", uploadID)
}

func (s *LocalObjectStorage) chunkPath(uploadID string, index int) string {
	return path.Join(s.stagingDir(uploadID), fmt.Sprintf("chunk_%06d", index))
}

func (s *LocalObjectStorage) objectPath(key string) string {
	return path.Join(s.basePath, key)
}

func (s *LocalObjectStorage) StageChunk(ctx context.Context, uploadID string, index int, data []byte) error {
	dir := s.stagingDir(uploadID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	if err := afero.WriteFile(s.fs, s.chunkPath(uploadID, index), data, 0o644); err != nil {
		return fmt.Errorf("stage chunk %d: %w", index, err)
	}

	s.logger.Debug("staged chunk", "upload_id", uploadID, "chunk_index", index, "size", len(data))
	return nil
}

func (s *LocalObjectStorage) AssembleStaged(ctx context.Context, uploadID string, totalChunks int, w io.Writer) error {
	for i := 0; i < totalChunks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f, err := s.fs.Open(s.chunkPath(uploadID, i))
		if err != nil {
			return fmt.Errorf("read staged chunk %d: %w", i, err)
		}

		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("stream staged chunk %d: %w", i, err)
		}
	}

	return nil
}

func (s *LocalObjectStorage) DeleteStaged(ctx context.Context, uploadID string) error {
	return s.fs.RemoveAll(s.stagingDir(uploadID))
}

func (s *LocalObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p := s.objectPath(key)
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	f, err := s.fs.Create(p)
	if err != nil {
		return fmt.Errorf("create object %s: %w", key, err)
	}

	written, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.fs.Remove(p)
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if size >= 0 && written != size {
		s.fs.Remove(p)
		return fmt.Errorf("object %s: wrote %d bytes, expected %d", key, written, size)
	}

	s.logger.Info("stored object", "key", key, "size", written)
	return nil
}

func (s *LocalObjectStorage) Delete(ctx context.Context, key string) error {
	return s.fs.Remove(s.objectPath(key))
}

// PresignDownload has no cryptographic signing locally; it returns a
// direct path the dev file server exposes.
func (s *LocalObjectStorage) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "/local/" + key, nil
}

// ReadObject is a test/dev helper to fetch a stored object back.
func (s *LocalObjectStorage) ReadObject(key string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.objectPath(key))
}
