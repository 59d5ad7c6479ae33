package service

import (
	"context"
	"fmt"
	"time"

	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/models"
	"birdsbuddy/internal/repository"
)

// MaxHistoryHours bounds history queries to one week.
const MaxHistoryHours = 7 * 24

// HistoryService samples reservoir levels and serves hourly averages.
type HistoryService struct {
	session *Session
	repo    repository.TelemetryRepo
	log     *logger.Logger
}

// NewHistoryService returns a service that reports ErrHistoryDisabled when
// repo is nil.
func NewHistoryService(session *Session, repo repository.TelemetryRepo, log *logger.Logger) *HistoryService {
	if log == nil {
		log = logger.Nop()
	}
	return &HistoryService{session: session, repo: repo, log: log}
}

// Enabled reports whether a telemetry store is configured.
func (s *HistoryService) Enabled() bool { return s.repo != nil }

// Run records one sample every interval until ctx is canceled.
func (s *HistoryService) Run(ctx context.Context, every time.Duration) {
	if s.repo == nil || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Sample(ctx); err != nil {
				s.log.Warnw("telemetry_sample_failed", "err", err)
			}
		}
	}
}

// Sample records the current reservoir levels.
func (s *HistoryService) Sample(ctx context.Context) error {
	if s.repo == nil {
		return ErrHistoryDisabled
	}
	snap := s.session.State().Snapshot
	return s.repo.Record(ctx, models.TelemetrySample{
		RecordedAt:        s.session.clock.Now().UTC(),
		FoodReservoirPct:  snap.FoodReservoirPct,
		WaterReservoirPct: snap.WaterReservoirPct,
		FoodWeightGrams:   snap.FoodWeightGrams,
	})
}

// Hourly returns hourly averages over the last hours hours, oldest first.
func (s *HistoryService) Hourly(ctx context.Context, hours int) ([]models.HistoryPoint, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if hours <= 0 || hours > MaxHistoryHours {
		return nil, fmt.Errorf("%w: hours must be in [1,%d], got %d", ErrInvalidFilter, MaxHistoryHours, hours)
	}
	to := s.session.clock.Now().UTC()
	from := to.Add(-time.Duration(hours) * time.Hour)
	points, err := s.repo.Hourly(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("hourly history: %w", err)
	}
	return points, nil
}
