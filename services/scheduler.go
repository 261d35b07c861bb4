package services

import (
	"context"
	"time"

	"rag-chatbot-backend/internal/engine"
	"rag-chatbot-backend/internal/logger"

	"github.com/go-co-op/gocron"
)

// Scheduler runs the periodic maintenance jobs: index snapshots and the
// query log retention sweep.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &Scheduler{scheduler: s}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScheduleSnapshots persists the vector index at the given interval.
func (s *Scheduler) ScheduleSnapshots(index *engine.VectorIndex, path string, interval time.Duration) error {
	_, err := s.scheduler.Every(interval).Tag("index-snapshot").Do(func() {
		if err := index.SaveSnapshot(path); err != nil {
			logger.Error("Scheduled snapshot failed", "path", path, "error", err)
			return
		}
		logger.Debug("Index snapshot written", "path", path, "vectors", index.Size())
	})
	return err
}

// ScheduleLogRetention purges query logs older than retentionDays once a day.
func (s *Scheduler) ScheduleLogRetention(logs *QueryLogService, retentionDays int) error {
	_, err := s.scheduler.Every(24 * time.Hour).Tag("log-retention").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		removed, err := logs.PurgeQueriesBefore(ctx, cutoff)
		if err != nil {
			logger.Error("Query log retention sweep failed", "error", err)
			return
		}
		if removed > 0 {
			logger.Info("Purged expired query logs", "removed", removed, "cutoff", cutoff)
		}
	})
	return err
}
