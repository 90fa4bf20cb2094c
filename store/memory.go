package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
	"github.com/lightgrid/lightgrid-services-uploads/models"
)

// MemorySessionStore is a mutex-guarded in-process SessionStore. It backs
// single-node deployments and tests; the redis store is the distributed
// equivalent with identical semantics.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.UploadSession
	chunks   map[string]map[int]struct{}
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]models.UploadSession),
		chunks:   make(map[string]map[int]struct{}),
	}
}

func (s *MemorySessionStore) IsReady(ctx context.Context) error { return nil }
func (s *MemorySessionStore) Name() string                      { return "SessionStore[memory]" }

func (s *MemorySessionStore) Create(ctx context.Context, session models.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.UploadID]; exists {
		return fmt.Errorf("upload session %s already exists", session.UploadID)
	}
	s.sessions[session.UploadID] = session
	s.chunks[session.UploadID] = make(map[int]struct{})
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[uploadID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	copied := session
	return &copied, nil
}

func (s *MemorySessionStore) ReceivedChunks(ctx context.Context, uploadID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.chunks[uploadID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	indices := make([]int, 0, len(set))
	for i := range set {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}

func (s *MemorySessionStore) AddChunk(ctx context.Context, uploadID string, index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.chunks[uploadID]
	if !ok {
		return 0, apperrors.ErrSessionNotFound
	}
	if _, dup := set[index]; dup {
		return 0, &ChunkConflictError{UploadID: uploadID, Index: index}
	}
	set[index] = struct{}{}
	return len(set), nil
}

func (s *MemorySessionStore) RemoveChunk(ctx context.Context, uploadID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.chunks[uploadID]; ok {
		delete(set, index)
	}
	return nil
}

func (s *MemorySessionStore) TransitionStatus(ctx context.Context, uploadID string, from, to models.UploadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[uploadID]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	if session.Status != from {
		return &StatusConflictError{UploadID: uploadID, Expected: from, Actual: session.Status}
	}
	session.Status = to
	s.sessions[uploadID] = session
	return nil
}

func (s *MemorySessionStore) SetStatus(ctx context.Context, uploadID string, status models.UploadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[uploadID]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	session.Status = status
	s.sessions[uploadID] = session
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, uploadID)
	delete(s.chunks, uploadID)
	return nil
}

func (s *MemorySessionStore) ExpiredSessions(ctx context.Context, now time.Time, limit int) ([]models.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []models.UploadSession
	for _, session := range s.sessions {
		if session.ExpiredAt(now) {
			expired = append(expired, session)
			if len(expired) == limit {
				break
			}
		}
	}
	return expired, nil
}

// MemoryFileStore is an in-process FileStore for single-node deployments
// and tests.
type MemoryFileStore struct {
	mu     sync.Mutex
	byID   map[string]models.StoredFile
	byHash map[string]string // content hash -> file id
}

func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{
		byID:   make(map[string]models.StoredFile),
		byHash: make(map[string]string),
	}
}

func (s *MemoryFileStore) IsReady(ctx context.Context) error { return nil }
func (s *MemoryFileStore) Name() string                      { return "FileStore[memory]" }

func (s *MemoryFileStore) Create(ctx context.Context, file models.StoredFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[file.ContentHash]; exists {
		return &ContentHashConflictError{ContentHash: file.ContentHash}
	}

	s.byID[file.FileID] = file
	s.byHash[file.ContentHash] = file.FileID
	return nil
}

func (s *MemoryFileStore) GetByID(ctx context.Context, fileID string) (*models.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.byID[fileID]
	if !ok {
		return nil, apperrors.ErrFileNotFound
	}
	copied := file
	return &copied, nil
}

func (s *MemoryFileStore) GetByHash(ctx context.Context, contentHash string) (*models.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[contentHash]
	if !ok {
		return nil, apperrors.ErrFileNotFound
	}
	file := s.byID[id]
	return &file, nil
}

func (s *MemoryFileStore) ListByOwner(ctx context.Context, ownerID string) ([]models.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files []models.StoredFile
	for _, f := range s.byID {
		if f.OwnerID == ownerID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.Before(files[j].CreatedAt) })
	return files, nil
}
