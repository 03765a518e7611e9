package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/repository"
	"github.com/spec-kit/storefront/internal/storage"
)

const sweepBatch = 100

// BlobSweeper deletes profile images that were uploaded but never attached
// to a profile.
type BlobSweeper struct {
	cron     *cron.Cron
	schedule string
	pending  storage.PendingUploads
	store    storage.BlobStore
	users    repository.UserRepository
	grace    time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewBlobSweeper builds a sweeper. schedule uses the six-field cron format.
func NewBlobSweeper(pending storage.PendingUploads, store storage.BlobStore, users repository.UserRepository, schedule string, grace time.Duration, logger *zap.Logger) *BlobSweeper {
	return &BlobSweeper{
		cron:     cron.New(cron.WithSeconds()),
		schedule: schedule,
		pending:  pending,
		store:    store,
		users:    users,
		grace:    grace,
		logger:   logger.Named("sweeper"),
		now:      time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *BlobSweeper) Start() error {
	if s.pending == nil || s.store == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("blob sweeper scheduled", zap.String("schedule", s.schedule), zap.Duration("grace", s.grace))
	return nil
}

// Stop halts the scheduler; the returned context is done once a running
// sweep has finished.
func (s *BlobSweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *BlobSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("blob sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("orphaned profile images removed", zap.Int("count", removed))
	}
}

// Sweep processes one batch of stale pending uploads and returns how many
// blobs it deleted. Blobs still referenced by a profile are kept.
func (s *BlobSweeper) Sweep(ctx context.Context) (int, error) {
	keys, err := s.pending.Stale(ctx, s.now().Add(-s.grace), sweepBatch)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		inUse, err := s.users.ProfileImageInUse(ctx, s.store.URL(key))
		if err != nil {
			s.logger.Warn("unable to check image reference", zap.String("key", key), zap.Error(err))
			continue
		}
		if !inUse {
			if err := s.store.Remove(ctx, key); err != nil {
				s.logger.Warn("unable to remove orphaned image", zap.String("key", key), zap.Error(err))
				continue
			}
			removed++
		}
		if err := s.pending.Resolve(ctx, key); err != nil {
			s.logger.Warn("unable to resolve pending upload", zap.String("key", key), zap.Error(err))
		}
	}
	return removed, nil
}
