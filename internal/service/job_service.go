package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"coworkspace/internal/repository"
)

type JobService struct {
	Repo   repository.MeetingPurger
	now    func() time.Time
	logger *slog.Logger
}

func NewJobService(repo repository.MeetingPurger, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{Repo: repo, now: time.Now, logger: logger}
}

// PurgeExpiredMeetings deletes meetings whose retention window has passed.
func (s *JobService) PurgeExpiredMeetings(ctx context.Context) (int64, error) {
	s.logger.DebugContext(ctx, "Cron Job: checking for expired meetings")

	deleted, err := s.Repo.DeleteExpiredMeetings(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to purge expired meetings: %w", err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "Cron Job: purged expired meetings", "count", deleted)
	}
	return deleted, nil
}

// Schedule registers the purge on c using a standard cron spec or a
// descriptor such as "@every 1h".
func (s *JobService) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.PurgeExpiredMeetings(ctx); err != nil {
			s.logger.Error("Cron Job: purge failed", "error", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}
	return id, nil
}
