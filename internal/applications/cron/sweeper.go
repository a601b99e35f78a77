// Package cron runs the nightly blob-orphan sweeper. Deletion of an
// application removes its record transactionally, but blob deletes are
// best-effort; keys that failed are parked in blob_orphans and retried here.
package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aie-platform/innovation-backend/internal/storage"
)

// OrphanRepo is the slice of the applications repository the sweeper uses.
type OrphanRepo interface {
	ListOrphans(ctx context.Context, limit int) ([]string, error)
	ClearOrphan(ctx context.Context, key string) error
}

const sweepBatch = 100

type Sweeper struct {
	repo  OrphanRepo
	blobs storage.BlobStore
	log   *zap.Logger
	c     *cron.Cron
}

func NewSweeper(repo OrphanRepo, blobs storage.BlobStore, log *zap.Logger) *Sweeper {
	return &Sweeper{repo: repo, blobs: blobs, log: log}
}

// Start schedules the sweep nightly at 03:00.
func (s *Sweeper) Start() error {
	s.c = cron.New()
	if _, err := s.c.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return err
	}
	s.c.Start()
	s.log.Info("orphan sweeper scheduled", zap.String("schedule", "0 3 * * *"))
	return nil
}

func (s *Sweeper) Stop() {
	if s.c != nil {
		s.c.Stop()
	}
}

// Sweep retries deletion of parked blob keys, clearing each one that the
// blob store confirms gone.
func (s *Sweeper) Sweep(ctx context.Context) {
	keys, err := s.repo.ListOrphans(ctx, sweepBatch)
	if err != nil {
		s.log.Error("list orphans", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}

	cleared := 0
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn("orphan delete failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if err := s.repo.ClearOrphan(ctx, key); err != nil {
			s.log.Error("clear orphan", zap.String("key", key), zap.Error(err))
			continue
		}
		cleared++
	}

	s.log.Info("orphan sweep finished", zap.Int("found", len(keys)), zap.Int("cleared", cleared))
}
