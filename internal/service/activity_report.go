package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lsst-ts/narrativelog/internal/repository"
)

// ActivityReportService periodically logs aggregate message counts and
// the fault time reported over the lookback window. Operators use the
// log line to sanity-check that the log is being written to.
type ActivityReportService struct {
	Repo     repository.Repository
	Logger   *zap.Logger
	Lookback time.Duration
}

func (s *ActivityReportService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	lookback := s.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	since := time.Now().UTC().Add(-lookback)
	stats, err := s.Repo.MessageStats(ctx, since)
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("activity report",
			zap.Int64("total_messages", stats.TotalMessages),
			zap.Int64("valid_messages", stats.ValidMessages),
			zap.String("time_lost_seconds", stats.TimeLost.String()),
			zap.Duration("lookback", lookback),
		)
	}
	return nil
}
