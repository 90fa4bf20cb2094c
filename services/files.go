package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
	"github.com/lightgrid/lightgrid-services-uploads/caching"
	"github.com/lightgrid/lightgrid-services-uploads/logging"
	"github.com/lightgrid/lightgrid-services-uploads/models"
	"github.com/lightgrid/lightgrid-services-uploads/store"
)

type FileService interface {
	GetFiles(ctx context.Context, ownerID string) (*models.FilesResponse, error)
	DownloadURL(ctx context.Context, ownerID, fileID string) (*models.DownloadURLResponse, error)
}

const (
	filesCacheTTL  = 5 * time.Minute
	downloadURLTTL = 15 * time.Minute
)

func userFilesCacheKey(ownerID string) string {
	return "user:files:" + ownerID
}

type FileServiceImpl struct {
	fileStore store.FileStore
	objects   store.ObjectStorage
	caching   caching.CachingService

	logger logging.Logger
}

func NewFileServiceImpl(fileStore store.FileStore, objects store.ObjectStorage, cachingSvc caching.CachingService, l logging.Logger) *FileServiceImpl {
	return &FileServiceImpl{
		fileStore: fileStore,
		objects:   objects,
		caching:   cachingSvc,
		logger:    l,
	}
}

func (svc *FileServiceImpl) GetFiles(ctx context.Context, ownerID string) (*models.FilesResponse, error) {
	key := userFilesCacheKey(ownerID)

	if cached, err := svc.caching.Get(ctx, key); err == nil {
		var files []models.StoredFile
		if err := json.Unmarshal(cached, &files); err == nil {
			return &models.FilesResponse{Files: files}, nil
		}
		// corrupt cache entry, fall through to the store
		svc.caching.Delete(ctx, key)
	}

	files, err := svc.fileStore.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(files); err == nil {
		if err := svc.caching.Set(ctx, key, payload, filesCacheTTL); err != nil {
			svc.logger.Warn("failed to cache file listing", "owner_id", ownerID, "error", err)
		}
	}

	return &models.FilesResponse{Files: files}, nil
}

func (svc *FileServiceImpl) DownloadURL(ctx context.Context, ownerID, fileID string) (*models.DownloadURLResponse, error) {
	file, err := svc.fileStore.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, apperrors.ErrFileNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "could not load file record", err)
	}

	if file.OwnerID != ownerID {
		return nil, apperrors.ErrForbidden
	}

	url, err := svc.objects.PresignDownload(ctx, file.StorageKey, downloadURLTTL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, "could not presign download", err)
	}

	return &models.DownloadURLResponse{
		FileID:      fileID,
		DownloadURL: url,
		ExpiresAt:   time.Now().UTC().Add(downloadURLTTL),
	}, nil
}
