package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"birdsbuddy/internal/models"
	"birdsbuddy/internal/repository"
)

type EventLogService struct {
	session *Session
	archive repository.EventArchive
}

// NewEventLogService serves the session log and, when archive is non-nil,
// the persisted history of every entry.
func NewEventLogService(session *Session, archive repository.EventArchive) *EventLogService {
	return &EventLogService{session: session, archive: archive}
}

var (
	errInvalidTimeRange = fmt.Errorf("%w: invalid time range: From must be <= To", ErrInvalidFilter)
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeSeverity trims spaces and lowercases the severity filter.
func normalizeSeverity(s string) (models.Severity, error) {
	sev := models.Severity(strings.TrimSpace(strings.ToLower(s)))
	if sev != "" && !sev.Valid() {
		return "", fmt.Errorf("%w: unknown severity %q", ErrInvalidFilter, s)
	}
	return sev, nil
}

func normalizeBadge(s string) (models.Badge, error) {
	b := models.Badge(strings.TrimSpace(strings.ToUpper(s)))
	switch b {
	case models.BadgeNone, models.BadgeManual, models.BadgeAuto:
		return b, nil
	}
	return "", fmt.Errorf("%w: unknown badge %q", ErrInvalidFilter, s)
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f ArchiveFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	sev, err := normalizeSeverity(f.Severity)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	return from, to, string(sev), nil
}

// List returns the session log, newest first, narrowed by f.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.EventLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sev, err := normalizeSeverity(f.Severity)
	if err != nil {
		return nil, err
	}
	badge, err := normalizeBadge(f.Badge)
	if err != nil {
		return nil, err
	}
	if f.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0, got %d", ErrInvalidFilter, f.Limit)
	}

	all := s.session.Events()
	out := make([]models.EventLogEntry, 0, len(all))
	for _, e := range all {
		if sev != "" && e.Severity != sev {
			continue
		}
		if badge != models.BadgeNone && e.Badge != badge {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Archive returns persisted entries oldest first.
func (s *EventLogService) Archive(ctx context.Context, f ArchiveFilter) ([]models.EventLogEntry, error) {
	if s.archive == nil {
		return nil, ErrStorageDisabled
	}
	from, to, sev, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.archive.List(ctx, from, to, sev)
}
