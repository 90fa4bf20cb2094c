package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
	"github.com/lightgrid/lightgrid-services-uploads/audit"
	"github.com/lightgrid/lightgrid-services-uploads/caching"
	"github.com/lightgrid/lightgrid-services-uploads/fseq"
	"github.com/lightgrid/lightgrid-services-uploads/hashing"
	"github.com/lightgrid/lightgrid-services-uploads/logging"
	"github.com/lightgrid/lightgrid-services-uploads/models"
	"github.com/lightgrid/lightgrid-services-uploads/store"
	"github.com/lightgrid/lightgrid-services-uploads/validation"
)

// ProductOwnershipChecker answers whether a user owns a catalog product.
// The catalog service is an external collaborator; deployments without it
// plug in AllowAllProducts.
type ProductOwnershipChecker interface {
	OwnsProduct(ctx context.Context, ownerID, productID string) (bool, error)
}

type AllowAllProducts struct{}

func (AllowAllProducts) OwnsProduct(ctx context.Context, ownerID, productID string) (bool, error) {
	return true, nil
}

type UploadService interface {
	Initiate(ctx context.Context, ownerID string, req models.InitiateUploadRequest) (*models.InitiateUploadResponse, error)
	SubmitChunk(ctx context.Context, ownerID, uploadID string, index int, declaredHash string, data []byte) (*models.SubmitChunkResponse, error)
	Complete(ctx context.Context, ownerID, uploadID string) (*models.CompleteUploadResponse, error)
	Abort(ctx context.Context, ownerID, uploadID string) (*models.AbortUploadResponse, error)
	Status(ctx context.Context, ownerID, uploadID string) (*models.UploadStatusResponse, error)
}

type UploadServiceImpl struct {
	sessions store.SessionStore
	files    store.FileStore
	objects  store.ObjectStorage
	products ProductOwnershipChecker
	auditor  audit.Sink
	caching  caching.CachingService

	chunkSize  int64
	sessionTTL time.Duration

	logger logging.Logger
	now    func() time.Time
}

func NewUploadServiceImpl(
	sessions store.SessionStore,
	files store.FileStore,
	objects store.ObjectStorage,
	products ProductOwnershipChecker,
	auditor audit.Sink,
	cachingSvc caching.CachingService,
	chunkSize int64,
	sessionTTL time.Duration,
	l logging.Logger,
) *UploadServiceImpl {
	return &UploadServiceImpl{
		sessions:   sessions,
		files:      files,
		objects:    objects,
		products:   products,
		auditor:    auditor,
		caching:    cachingSvc,
		chunkSize:  chunkSize,
		sessionTTL: sessionTTL,
		logger:     l,
		now:        time.Now,
	}
}

func (svc *UploadServiceImpl) Initiate(ctx context.Context, ownerID string, req models.InitiateUploadRequest) (*models.InitiateUploadResponse, error) {
	category, err := validation.ParseCategory(req.Category)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidationFailed, "upload request rejected").
			WithDetails(err.Error())
	}

	res := validation.ValidateFile(req.FileName, req.FileSize, req.MimeType, category)
	if !res.Valid {
		return nil, apperrors.New(res.Kind, "upload request rejected").
			WithDetails(res.Errors...)
	}

	if req.ProductID != "" {
		owns, err := svc.products.OwnsProduct(ctx, ownerID, req.ProductID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "product ownership check failed", err)
		}
		if !owns {
			return nil, apperrors.Newf(apperrors.KindForbidden, "product %s is not owned by the caller", req.ProductID)
		}
	}

	now := svc.now().UTC()
	session := models.UploadSession{
		UploadID:    hashing.NewUploadID(),
		OwnerID:     ownerID,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		MimeType:    req.MimeType,
		Category:    category,
		ChunkSize:   svc.chunkSize,
		TotalChunks: models.TotalChunksFor(req.FileSize, svc.chunkSize),
		Status:      models.StatusInitiated,
		ProductID:   req.ProductID,
		VersionID:   req.VersionID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(svc.sessionTTL),
	}

	if err := svc.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "could not create upload session", err)
	}

	svc.auditor.Record(audit.Event{
		Type:     audit.EventSessionInitiated,
		Severity: audit.SeverityInfo,
		UploadID: session.UploadID,
		OwnerID:  ownerID,
		Details: map[string]string{
			"file_name":    session.FileName,
			"category":     string(session.Category),
			"file_size":    strconv.FormatInt(session.FileSize, 10),
			"total_chunks": strconv.Itoa(session.TotalChunks),
		},
		At: now,
	})

	svc.logger.Info("upload session initiated",
		"upload_id", session.UploadID, "owner_id", ownerID,
		"file_name", session.FileName, "total_chunks", session.TotalChunks)

	return &models.InitiateUploadResponse{
		UploadID:    session.UploadID,
		ChunkSize:   session.ChunkSize,
		TotalChunks: session.TotalChunks,
		ExpiresAt:   session.ExpiresAt,
		Warnings:    res.Warnings,
	}, nil
}

func (svc *UploadServiceImpl) SubmitChunk(ctx context.Context, ownerID, uploadID string, index int, declaredHash string, data []byte) (*models.SubmitChunkResponse, error) {
	session, err := svc.loadOwnedSession(ctx, ownerID, uploadID)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		return nil, apperrors.Newf(apperrors.KindInvalidState, "upload session is %s and no longer accepts chunks", session.Status)
	}
	if err := svc.failIfExpired(ctx, session); err != nil {
		return nil, err
	}

	if index < 0 || index >= session.TotalChunks {
		return nil, apperrors.Newf(apperrors.KindInvalidChunkIndex, "chunk index %d out of range [0, %d)", index, session.TotalChunks)
	}

	if expected := svc.expectedChunkLen(session, index); int64(len(data)) != expected {
		return nil, apperrors.Newf(apperrors.KindValidationFailed, "chunk %d has %d bytes, expected %d", index, len(data), expected)
	}

	// Verify integrity before any state changes: corrupt bytes must never
	// be staged or recorded.
	if actual := hashing.HashBuffer(data); !strings.EqualFold(actual, declaredHash) {
		svc.auditor.Record(audit.Event{
			Type:     audit.EventChunkHashMismatch,
			Severity: audit.SeveritySecurity,
			UploadID: uploadID,
			OwnerID:  ownerID,
			Details: map[string]string{
				"chunk_index":   strconv.Itoa(index),
				"declared_hash": declaredHash,
				"actual_hash":   actual,
			},
			At: svc.now().UTC(),
		})
		svc.logger.Error("chunk hash mismatch",
			"upload_id", uploadID, "chunk_index", index, "declared_hash", declaredHash, "actual_hash", actual)
		return nil, apperrors.Newf(apperrors.KindChunkHashMismatch, "chunk %d content does not match its declared hash", index)
	}

	received, err := svc.sessions.AddChunk(ctx, uploadID, index)
	if err != nil {
		var conflict *store.ChunkConflictError
		if errors.As(err, &conflict) {
			return nil, apperrors.Newf(apperrors.KindChunkAlreadyUploaded, "chunk %d was already uploaded", index)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "could not record chunk", err)
	}

	if err := svc.objects.StageChunk(ctx, uploadID, index, data); err != nil {
		// undo the accept so the client can retry this index
		if remErr := svc.sessions.RemoveChunk(ctx, uploadID, index); remErr != nil {
			svc.logger.Error("failed to roll back chunk accept", "upload_id", uploadID, "chunk_index", index, "error", remErr)
		}
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, "could not stage chunk", err)
	}

	svc.advanceAfterChunk(ctx, session, received)

	return &models.SubmitChunkResponse{
		UploadID:       uploadID,
		ChunkIndex:     index,
		ChunksReceived: received,
		TotalChunks:    session.TotalChunks,
		Progress:       float64(received) / float64(session.TotalChunks),
	}, nil
}

// advanceAfterChunk moves INITIATED to UPLOADING on the first accepted
// chunk and UPLOADING to ALL_CHUNKS_UPLOADED once the set is full.
// Lost CAS races mean another submitter already advanced the status, so
// conflicts are ignored.
func (svc *UploadServiceImpl) advanceAfterChunk(ctx context.Context, session *models.UploadSession, received int) {
	if session.Status == models.StatusInitiated {
		svc.transitionIgnoringConflict(ctx, session.UploadID, models.StatusInitiated, models.StatusUploading)
	}
	if received == session.TotalChunks {
		svc.transitionIgnoringConflict(ctx, session.UploadID, models.StatusUploading, models.StatusAllChunksUploaded)
	}
}

func (svc *UploadServiceImpl) transitionIgnoringConflict(ctx context.Context, uploadID string, from, to models.UploadStatus) {
	err := svc.sessions.TransitionStatus(ctx, uploadID, from, to)
	if err == nil {
		return
	}
	var conflict *store.StatusConflictError
	if errors.As(err, &conflict) || errors.Is(err, apperrors.ErrSessionNotFound) {
		// another caller advanced or discarded the session; moot
		return
	}
	svc.logger.Error("status transition failed", "upload_id", uploadID, "from", from, "to", to, "error", err)
}

func (svc *UploadServiceImpl) Complete(ctx context.Context, ownerID, uploadID string) (*models.CompleteUploadResponse, error) {
	session, err := svc.loadOwnedSession(ctx, ownerID, uploadID)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		return nil, apperrors.Newf(apperrors.KindInvalidState, "upload session is %s and cannot be completed", session.Status)
	}
	if err := svc.failIfExpired(ctx, session); err != nil {
		return nil, err
	}

	received, err := svc.sessions.ReceivedChunks(ctx, uploadID)
	if err != nil {
		// a concurrent finalize or abort may have discarded the session
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "could not read received chunks", err)
	}
	if len(received) < session.TotalChunks {
		return nil, apperrors.Newf(apperrors.KindIncompleteUpload, "received %d of %d chunks", len(received), session.TotalChunks)
	}

	if err := svc.claimFinalize(ctx, session); err != nil {
		return nil, err
	}

	return svc.finalize(ctx, session)
}

// claimFinalize moves the session into PROCESSING, guaranteeing at most
// one finalize in flight. The status may still read UPLOADING when the
// last chunk's submitter lost its advance race, so both sources are
// legal.
func (svc *UploadServiceImpl) claimFinalize(ctx context.Context, session *models.UploadSession) error {
	var conflict *store.StatusConflictError

	for _, from := range []models.UploadStatus{models.StatusAllChunksUploaded, models.StatusUploading} {
		err := svc.sessions.TransitionStatus(ctx, session.UploadID, from, models.StatusProcessing)
		if err == nil {
			session.Status = models.StatusProcessing
			return nil
		}
		if !errors.As(err, &conflict) {
			if errors.Is(err, apperrors.ErrSessionNotFound) {
				return err
			}
			return apperrors.Wrap(apperrors.KindInternal, "could not claim finalize", err)
		}
	}

	return apperrors.Newf(apperrors.KindInvalidState, "upload session is %s; finalize not possible", conflict.Actual)
}

// finalize runs the completion pipeline: assemble-and-hash, integrity
// check, dedup lookup, metadata extraction, durable write, record
// creation, cleanup.
func (svc *UploadServiceImpl) finalize(ctx context.Context, session *models.UploadSession) (*models.CompleteUploadResponse, error) {
	uploadID := session.UploadID

	// First pass over the staged chunks: stream everything through the
	// digest while capturing the header bytes the integrity check needs.
	digest := hashing.New()
	header := newHeaderCapture(validation.HeaderProbeSize)

	if err := svc.objects.AssembleStaged(ctx, uploadID, session.TotalChunks, io.MultiWriter(digest, header)); err != nil {
		svc.releaseFinalize(ctx, uploadID)
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, "could not assemble staged chunks", err)
	}

	if res := validation.ValidateFileIntegrity(header.Bytes(), session.FileName); !res.Valid {
		svc.auditor.Record(audit.Event{
			Type:     audit.EventIntegrityCheckFailed,
			Severity: audit.SeveritySecurity,
			UploadID: uploadID,
			OwnerID:  session.OwnerID,
			Details:  map[string]string{"file_name": session.FileName, "errors": strings.Join(res.Errors, "; ")},
			At:       svc.now().UTC(),
		})
		svc.logger.Error("integrity check failed, discarding upload", "upload_id", uploadID, "errors", res.Errors)
		svc.discardSession(ctx, uploadID)
		return nil, apperrors.New(apperrors.KindIntegrityCheckFailed, "assembled file failed integrity validation").
			WithDetails(res.Errors...)
	}

	contentHash := hashing.Finish(digest)

	// Dedup is keyed on content hash alone, across owners and categories.
	existing, err := svc.files.GetByHash(ctx, contentHash)
	if err == nil {
		svc.logger.Info("deduplicated upload against existing file",
			"upload_id", uploadID, "file_id", existing.FileID, "content_hash", contentHash)
		svc.auditor.Record(audit.Event{
			Type:     audit.EventUploadDeduplicated,
			Severity: audit.SeverityInfo,
			UploadID: uploadID,
			OwnerID:  session.OwnerID,
			FileID:   existing.FileID,
			At:       svc.now().UTC(),
		})
		svc.discardSession(ctx, uploadID)
		return &models.CompleteUploadResponse{
			FileID:       existing.FileID,
			StorageKey:   existing.StorageKey,
			ContentHash:  existing.ContentHash,
			Deduplicated: true,
			Metadata:     existing.Metadata,
		}, nil
	}
	if !errors.Is(err, apperrors.ErrFileNotFound) {
		svc.releaseFinalize(ctx, uploadID)
		return nil, apperrors.Wrap(apperrors.KindInternal, "dedup lookup failed", err)
	}

	metadata := svc.extractMetadata(session, header.Bytes())

	storageKey := hashing.StorageKey(session.FileName, string(session.Category))

	// Second pass: stream the same assembly into durable storage.
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(svc.objects.AssembleStaged(ctx, uploadID, session.TotalChunks, pw))
	}()

	if err := svc.objects.Put(ctx, storageKey, pr, session.FileSize, session.MimeType); err != nil {
		pr.CloseWithError(err)
		// chunks remain staged; the client may retry completion
		svc.releaseFinalize(ctx, uploadID)
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, "could not persist assembled file", err)
	}

	file := models.StoredFile{
		FileID:      hashing.NewFileID(),
		OwnerID:     session.OwnerID,
		Name:        session.FileName,
		Category:    string(session.Category),
		Size:        session.FileSize,
		ContentHash: contentHash,
		StorageKey:  storageKey,
		MimeType:    session.MimeType,
		Metadata:    metadata,
		ProductID:   session.ProductID,
		VersionID:   session.VersionID,
		CreatedAt:   svc.now().UTC(),
	}

	if err := svc.files.Create(ctx, file); err != nil {
		// avoid an orphan object nothing references
		if delErr := svc.objects.Delete(ctx, storageKey); delErr != nil {
			svc.logger.Error("failed to remove orphaned object", "key", storageKey, "error", delErr)
		}

		// A concurrent upload of identical bytes may have created the
		// record between the dedup lookup and this write; resolve to
		// the winner's record instead of failing.
		var hashConflict *store.ContentHashConflictError
		if errors.As(err, &hashConflict) {
			existing, lookupErr := svc.files.GetByHash(ctx, contentHash)
			if lookupErr == nil {
				svc.logger.Info("deduplicated upload against concurrently created file",
					"upload_id", uploadID, "file_id", existing.FileID, "content_hash", contentHash)
				svc.auditor.Record(audit.Event{
					Type:     audit.EventUploadDeduplicated,
					Severity: audit.SeverityInfo,
					UploadID: uploadID,
					OwnerID:  session.OwnerID,
					FileID:   existing.FileID,
					At:       svc.now().UTC(),
				})
				svc.discardSession(ctx, uploadID)
				return &models.CompleteUploadResponse{
					FileID:       existing.FileID,
					StorageKey:   existing.StorageKey,
					ContentHash:  existing.ContentHash,
					Deduplicated: true,
					Metadata:     existing.Metadata,
				}, nil
			}
			svc.logger.Error("dedup recovery lookup failed", "upload_id", uploadID, "error", lookupErr)
		}

		svc.releaseFinalize(ctx, uploadID)
		return nil, apperrors.Wrap(apperrors.KindInternal, "could not create file record", err)
	}

	svc.auditor.Record(audit.Event{
		Type:     audit.EventUploadCompleted,
		Severity: audit.SeverityInfo,
		UploadID: uploadID,
		OwnerID:  session.OwnerID,
		FileID:   file.FileID,
		Details:  map[string]string{"storage_key": storageKey, "content_hash": contentHash},
		At:       svc.now().UTC(),
	})

	if err := svc.caching.Delete(ctx, userFilesCacheKey(session.OwnerID)); err != nil {
		svc.logger.Warn("cached file listing invalidation failed", "owner_id", session.OwnerID, "error", err)
	}

	svc.transitionIgnoringConflict(ctx, uploadID, models.StatusProcessing, models.StatusCompleted)
	svc.discardSession(ctx, uploadID)

	svc.logger.Info("upload completed",
		"upload_id", uploadID, "file_id", file.FileID, "storage_key", storageKey)

	return &models.CompleteUploadResponse{
		FileID:       file.FileID,
		StorageKey:   storageKey,
		ContentHash:  contentHash,
		Deduplicated: false,
		Metadata:     metadata,
	}, nil
}

// extractMetadata is best-effort enrichment; a parse failure is logged
// and the file is stored without metadata.
func (svc *UploadServiceImpl) extractMetadata(session *models.UploadSession, header []byte) *models.FileMetadata {
	if strings.ToLower(filepath.Ext(session.FileName)) != ".fseq" {
		return nil
	}

	seqMeta, err := fseq.ParseHeader(header)
	if err != nil {
		svc.logger.Warn("sequence metadata extraction failed",
			"upload_id", session.UploadID, "file_name", session.FileName, "error", err)
		return nil
	}

	return &models.FileMetadata{
		Kind:     models.MetadataKindSequence,
		Sequence: seqMeta,
	}
}

func (svc *UploadServiceImpl) Abort(ctx context.Context, ownerID, uploadID string) (*models.AbortUploadResponse, error) {
	session, err := svc.loadOwnedSession(ctx, ownerID, uploadID)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		return nil, apperrors.Newf(apperrors.KindInvalidState, "upload session is %s and cannot be aborted", session.Status)
	}
	if session.ExpiredAt(svc.now()) {
		svc.markExpired(ctx, session)
		return nil, apperrors.New(apperrors.KindSessionExpired, "upload session has expired")
	}

	received, err := svc.sessions.ReceivedChunks(ctx, uploadID)
	if err != nil {
		svc.logger.Error("could not read received chunks during abort", "upload_id", uploadID, "error", err)
	}

	svc.transitionIgnoringConflict(ctx, uploadID, session.Status, models.StatusAborted)
	svc.discardSession(ctx, uploadID)

	svc.auditor.Record(audit.Event{
		Type:     audit.EventUploadAborted,
		Severity: audit.SeverityInfo,
		UploadID: uploadID,
		OwnerID:  ownerID,
		Details: map[string]string{
			"chunks_received": strconv.Itoa(len(received)),
			"total_chunks":    strconv.Itoa(session.TotalChunks),
		},
		At: svc.now().UTC(),
	})

	svc.logger.Info("upload aborted",
		"upload_id", uploadID, "chunks_received", len(received), "total_chunks", session.TotalChunks)

	return &models.AbortUploadResponse{
		UploadID:       uploadID,
		ChunksReceived: len(received),
		TotalChunks:    session.TotalChunks,
	}, nil
}

func (svc *UploadServiceImpl) Status(ctx context.Context, ownerID, uploadID string) (*models.UploadStatusResponse, error) {
	session, err := svc.loadOwnedSession(ctx, ownerID, uploadID)
	if err != nil {
		return nil, err
	}

	if !session.Status.Terminal() && session.ExpiredAt(svc.now()) {
		svc.markExpired(ctx, session)
		session.Status = models.StatusExpired
	}

	received, err := svc.sessions.ReceivedChunks(ctx, uploadID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "could not read received chunks", err)
	}

	return &models.UploadStatusResponse{
		UploadID:       uploadID,
		Status:         session.Status,
		ChunksReceived: len(received),
		TotalChunks:    session.TotalChunks,
		MissingChunks:  missingChunks(received, session.TotalChunks),
		ExpiresAt:      session.ExpiresAt,
	}, nil
}

func (svc *UploadServiceImpl) loadOwnedSession(ctx context.Context, ownerID, uploadID string) (*models.UploadSession, error) {
	session, err := svc.sessions.Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "could not load upload session", err)
	}

	if session.OwnerID != ownerID {
		return nil, apperrors.ErrForbidden
	}

	return session, nil
}

func (svc *UploadServiceImpl) failIfExpired(ctx context.Context, session *models.UploadSession) error {
	if !session.ExpiredAt(svc.now()) {
		return nil
	}
	svc.markExpired(ctx, session)
	return apperrors.New(apperrors.KindSessionExpired, "upload session has expired")
}

// markExpired performs the lazy expiry transition. Staged data is left
// for the background sweeper to reclaim.
func (svc *UploadServiceImpl) markExpired(ctx context.Context, session *models.UploadSession) {
	if err := svc.sessions.SetStatus(ctx, session.UploadID, models.StatusExpired); err != nil {
		svc.logger.Error("failed to mark session expired", "upload_id", session.UploadID, "error", err)
		return
	}
	svc.auditor.Record(audit.Event{
		Type:     audit.EventSessionExpired,
		Severity: audit.SeverityInfo,
		UploadID: session.UploadID,
		OwnerID:  session.OwnerID,
		At:       svc.now().UTC(),
	})
}

// discardSession reclaims staged chunks and removes the session record.
// Failures are logged; the sweeper retries whatever survives.
func (svc *UploadServiceImpl) discardSession(ctx context.Context, uploadID string) {
	if err := svc.objects.DeleteStaged(ctx, uploadID); err != nil {
		svc.logger.Error("failed to delete staged chunks", "upload_id", uploadID, "error", err)
	}
	if err := svc.sessions.Delete(ctx, uploadID); err != nil {
		svc.logger.Error("failed to delete upload session", "upload_id", uploadID, "error", err)
	}
}

// releaseFinalize rolls PROCESSING back so a later Complete call can
// retry; staged chunks are intentionally kept.
func (svc *UploadServiceImpl) releaseFinalize(ctx context.Context, uploadID string) {
	svc.transitionIgnoringConflict(ctx, uploadID, models.StatusProcessing, models.StatusAllChunksUploaded)
}

func (svc *UploadServiceImpl) expectedChunkLen(session *models.UploadSession, index int) int64 {
	if index == session.TotalChunks-1 {
		return session.FileSize - int64(session.TotalChunks-1)*session.ChunkSize
	}
	return session.ChunkSize
}

func missingChunks(received []int, total int) []int {
	present := make(map[int]struct{}, len(received))
	for _, i := range received {
		present[i] = struct{}{}
	}

	var missing []int
	for i := 0; i < total; i++ {
		if _, ok := present[i]; !ok {
			missing = append(missing, i)
		}
	}
	sort.Ints(missing)
	return missing
}

// headerCapture retains the first n bytes written through it.
type headerCapture struct {
	buf []byte
	max int
}

func newHeaderCapture(max int) *headerCapture {
	return &headerCapture{max: max}
}

func (h *headerCapture) Write(p []byte) (int, error) {
	if remaining := h.max - len(h.buf); remaining > 0 {
		if len(p) < remaining {
			remaining = len(p)
		}
		h.buf = append(h.buf, p[:remaining]...)
	}
	return len(p), nil
}

func (h *headerCapture) Bytes() []byte { return h.buf }

var _ io.Writer = (*headerCapture)(nil)
