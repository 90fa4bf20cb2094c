package services

import (
	"context"
	"sync"
	"time"

	"github.com/lightgrid/lightgrid-services-uploads/audit"
	"github.com/lightgrid/lightgrid-services-uploads/logging"
	"github.com/lightgrid/lightgrid-services-uploads/models"
	"github.com/lightgrid/lightgrid-services-uploads/store"
)

// ExpirySweeper proactively reclaims staging storage held by expired
// sessions. Lazy expiry on access keeps the state machine correct
// without it; the sweeper just stops abandoned uploads from accumulating
// staged chunks until redis TTLs fire.
type ExpirySweeper struct {
	sessions store.SessionStore
	objects  store.ObjectStorage
	auditor  audit.Sink

	interval time.Duration
	logger   logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

const sweepBatchSize = 100

func NewExpirySweeper(parent context.Context, sessions store.SessionStore, objects store.ObjectStorage, auditor audit.Sink, interval time.Duration, l logging.Logger) *ExpirySweeper {
	ctx, cancel := context.WithCancel(parent)

	return &ExpirySweeper{
		sessions: sessions,
		objects:  objects,
		auditor:  auditor,
		interval: interval,
		logger:   l.With("component", "sweeper"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *ExpirySweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.SweepOnce(s.ctx)
			}
		}
	}()
}

// SweepOnce reclaims one batch of expired sessions and returns how many
// it cleaned up.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) int {
	expired, err := s.sessions.ExpiredSessions(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		s.logger.Error("failed to list expired sessions", "error", err)
		return 0
	}

	cleaned := 0
	for _, session := range expired {
		if session.Status == models.StatusProcessing {
			// finalize may legitimately still be running past expiry
			continue
		}

		if err := s.objects.DeleteStaged(ctx, session.UploadID); err != nil {
			s.logger.Error("failed to reclaim staged chunks", "upload_id", session.UploadID, "error", err)
			continue
		}
		if err := s.sessions.Delete(ctx, session.UploadID); err != nil {
			s.logger.Error("failed to delete expired session", "upload_id", session.UploadID, "error", err)
			continue
		}

		s.auditor.Record(audit.Event{
			Type:     audit.EventSessionExpired,
			Severity: audit.SeverityInfo,
			UploadID: session.UploadID,
			OwnerID:  session.OwnerID,
			At:       time.Now().UTC(),
		})
		cleaned++
	}

	if cleaned > 0 {
		s.logger.Info("reclaimed expired upload sessions", "count", cleaned)
	}
	return cleaned
}

func (s *ExpirySweeper) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
