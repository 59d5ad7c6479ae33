package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"birdsbuddy/internal/models"
)

// fakeArchive is a minimal stub that satisfies the repository.EventArchive interface.
type fakeArchive struct {
	// captured inputs
	gotFrom     time.Time
	gotTo       time.Time
	gotSeverity string

	// configured outputs
	events []models.EventLogEntry
	err    error

	calls int
}

func (f *fakeArchive) List(ctx context.Context, from, to time.Time, severity string) ([]models.EventLogEntry, error) {
	f.calls++
	f.gotFrom = from
	f.gotTo = to
	f.gotSeverity = severity
	return f.events, f.err
}

func (f *fakeArchive) Append(ctx context.Context, e models.EventLogEntry) error {
	return nil
}

func (f *fakeArchive) AppendCommand(ctx context.Context, c models.CommandRecord) error {
	return nil
}

func fixedZone(name string, offsetSec int) *time.Location {
	return time.FixedZone(name, offsetSec)
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

// normalizeToUTC

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   mustTimeIn(fixedZone("UTC+3", 3*3600), 2025, time.August, 1, 12, 34, 56),
			want: func(out time.Time) bool {
				exp := time.Date(2025, time.August, 1, 9, 34, 56, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeToUTC(tc.in)
			if !tc.want(got) {
				t.Fatalf("unexpected normalizeToUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

// normalizeSeverity

func Test_normalizeSeverity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		exp     models.Severity
		wantErr bool
	}{
		{name: "empty stays empty", in: "", exp: ""},
		{name: "trim and lowercase", in: "  DANGER ", exp: models.SeverityDanger},
		{name: "unknown rejected", in: "fatal", wantErr: true},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizeSeverity(c.in)
			if c.wantErr {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Fatalf("expected ErrInvalidFilter, got %v", err)
				}
				return
			}
			if err != nil || got != c.exp {
				t.Fatalf("normalizeSeverity(%q) = %q, %v; want %q", c.in, got, err, c.exp)
			}
		})
	}
}

// normalizeAndValidateFilter

func Test_normalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	fromLocal := mustTimeIn(fixedZone("UTC+2", 2*3600), 2025, time.September, 10, 10, 0, 0)
	toUTC := time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		in           ArchiveFilter
		wantFrom     time.Time
		wantTo       time.Time
		wantSeverity string
		wantErr      error
	}{
		{
			name: "all zero/empty ok",
			in:   ArchiveFilter{},
		},
		{
			name: "from after to -> error",
			in: ArchiveFilter{
				From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
			},
			wantErr: errInvalidTimeRange,
		},
		{
			name: "normalize tz and severity",
			in: ArchiveFilter{
				From:     fromLocal,
				To:       toUTC,
				Severity: " Warning ",
			},
			wantFrom:     time.Date(2025, time.September, 10, 8, 0, 0, 0, time.UTC),
			wantTo:       toUTC,
			wantSeverity: "warning",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotFrom, gotTo, gotSeverity, err := normalizeAndValidateFilter(tc.in)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v; got %v", tc.wantErr, err)
			}
			if !tc.wantFrom.IsZero() && !gotFrom.Equal(tc.wantFrom) {
				t.Fatalf("from: got %v; want %v", gotFrom, tc.wantFrom)
			}
			if !tc.wantTo.IsZero() && !gotTo.Equal(tc.wantTo) {
				t.Fatalf("to: got %v; want %v", gotTo, tc.wantTo)
			}
			if gotSeverity != tc.wantSeverity {
				t.Fatalf("severity: got %q; want %q", gotSeverity, tc.wantSeverity)
			}
		})
	}
}

// EventLogService.List

func seededSession(t *testing.T) *Session {
	t.Helper()
	s := newTestSession(t, newFakeClock())
	// success, info AUTO, danger, danger
	s.HandleConnectivity(true)
	s.HandleSnapshot(&models.SnapshotPatch{PumpActive: ptr(true)})
	s.HandleSnapshot(&models.SnapshotPatch{GasDetected: ptr(true)})
	s.HandleConnectivity(false)
	return s
}

func TestEventLogService_ListFilters(t *testing.T) {
	t.Parallel()

	svc := NewEventLogService(seededSession(t), nil)
	ctx := context.Background()

	all, err := svc.List(ctx, LogFilter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("List all = %d entries, %v", len(all), err)
	}
	if all[0].Message != msgUplinkLost {
		t.Fatalf("newest first expected, got %q", all[0].Message)
	}

	danger, err := svc.List(ctx, LogFilter{Severity: "danger"})
	if err != nil || len(danger) != 2 {
		t.Fatalf("danger = %d entries, %v", len(danger), err)
	}

	auto, err := svc.List(ctx, LogFilter{Badge: "auto"})
	if err != nil || len(auto) != 1 || auto[0].Message != msgPumpEngaged {
		t.Fatalf("auto = %+v, %v", auto, err)
	}

	limited, err := svc.List(ctx, LogFilter{Limit: 1})
	if err != nil || len(limited) != 1 || limited[0].ID != all[0].ID {
		t.Fatalf("limit = %+v, %v", limited, err)
	}
}

func TestEventLogService_ListRejectsBadFilter(t *testing.T) {
	t.Parallel()

	svc := NewEventLogService(newTestSession(t, newFakeClock()), nil)
	for _, f := range []LogFilter{{Severity: "loud"}, {Badge: "robot"}, {Limit: -1}} {
		if _, err := svc.List(context.Background(), f); !errors.Is(err, ErrInvalidFilter) {
			t.Fatalf("filter %+v: expected ErrInvalidFilter, got %v", f, err)
		}
	}
}

// EventLogService.Archive

func TestEventLogService_Archive_DelegatesNormalizedParams(t *testing.T) {
	t.Parallel()

	farch := &fakeArchive{events: []models.EventLogEntry{{ID: 1}}}
	svc := NewEventLogService(newTestSession(t, newFakeClock()), farch)

	fromLocal := mustTimeIn(fixedZone("UTC+5", 5*3600), 2025, time.October, 1, 10, 0, 0)
	toLocal := mustTimeIn(fixedZone("UTC-2", -2*3600), 2025, time.October, 1, 12, 30, 0)

	out, err := svc.Archive(context.Background(), ArchiveFilter{From: fromLocal, To: toLocal, Severity: " DANGER"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || farch.calls != 1 {
		t.Fatalf("unexpected result %+v, calls=%d", out, farch.calls)
	}
	if want := time.Date(2025, time.October, 1, 5, 0, 0, 0, time.UTC); !farch.gotFrom.Equal(want) {
		t.Fatalf("archive gotFrom=%v; want %v", farch.gotFrom, want)
	}
	if want := time.Date(2025, time.October, 1, 14, 30, 0, 0, time.UTC); !farch.gotTo.Equal(want) {
		t.Fatalf("archive gotTo=%v; want %v", farch.gotTo, want)
	}
	if farch.gotSeverity != "danger" {
		t.Fatalf("archive gotSeverity=%q; want danger", farch.gotSeverity)
	}
}

func TestEventLogService_Archive_ValidationError(t *testing.T) {
	t.Parallel()

	farch := &fakeArchive{}
	svc := NewEventLogService(newTestSession(t, newFakeClock()), farch)

	_, err := svc.Archive(context.Background(), ArchiveFilter{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange; got %v", err)
	}
	if farch.calls != 0 {
		t.Fatalf("archive should not be called on validation error, calls=%d", farch.calls)
	}
}

func TestEventLogService_Archive_RepoErrorPropagation(t *testing.T) {
	t.Parallel()

	farch := &fakeArchive{err: errors.New("db down")}
	svc := NewEventLogService(newTestSession(t, newFakeClock()), farch)

	if _, err := svc.Archive(context.Background(), ArchiveFilter{}); !errors.Is(err, farch.err) {
		t.Fatalf("expected archive error to propagate; got %v", err)
	}
}

func TestEventLogService_Archive_Disabled(t *testing.T) {
	t.Parallel()

	svc := NewEventLogService(newTestSession(t, newFakeClock()), nil)
	if _, err := svc.Archive(context.Background(), ArchiveFilter{}); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("expected ErrStorageDisabled; got %v", err)
	}
}
