package archive

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type fakeArchiveStore struct {
	positions    int64
	fills        int64
	positionsErr error
	fillsErr     error

	positionCutoff time.Time
	fillCutoff     time.Time
}

func (s *fakeArchiveStore) ArchivePositions(ctx context.Context, before time.Time) (int64, error) {
	s.positionCutoff = before
	return s.positions, s.positionsErr
}

func (s *fakeArchiveStore) ArchiveFills(ctx context.Context, before time.Time) (int64, error) {
	s.fillCutoff = before
	return s.fills, s.fillsErr
}

func TestRunArchivesBothKinds(t *testing.T) {
	store := &fakeArchiveStore{positions: 12, fills: 40}
	a := NewArchiver(store, 90, slog.Default())

	start := time.Now().UTC()
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantCutoff := start.Add(-90 * 24 * time.Hour)
	if store.positionCutoff.Before(wantCutoff.Add(-time.Minute)) || store.positionCutoff.After(wantCutoff.Add(time.Minute)) {
		t.Fatalf("position cutoff %v not near %v", store.positionCutoff, wantCutoff)
	}
	if !store.fillCutoff.Equal(store.positionCutoff) {
		t.Fatalf("fills used cutoff %v, positions %v", store.fillCutoff, store.positionCutoff)
	}
}

func TestRunStopsOnPositionError(t *testing.T) {
	store := &fakeArchiveStore{positionsErr: errors.New("bucket unreachable")}
	a := NewArchiver(store, 90, slog.Default())

	if err := a.Run(context.Background()); err == nil {
		t.Fatal("Run succeeded despite position archive failure")
	}
	if !store.fillCutoff.IsZero() {
		t.Fatal("fills archived after position archive failed")
	}
}

func TestRunCronRejectsBadExpression(t *testing.T) {
	a := NewArchiver(&fakeArchiveStore{}, 90, slog.Default())

	if err := a.RunCron(context.Background(), "not a cron"); err == nil {
		t.Fatal("RunCron accepted a malformed expression")
	}
}

func TestRunCronStopsOnCancel(t *testing.T) {
	a := NewArchiver(&fakeArchiveStore{}, 90, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.RunCron(ctx, "0 3 * * 6"); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunCron returned %v, want context.Canceled", err)
	}
}

func TestNextCronTime(t *testing.T) {
	cases := []struct {
		name  string
		expr  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "saturday 3am from midweek",
			expr:  "0 3 * * 6",
			after: time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC), // Wednesday
			want:  time.Date(2026, 1, 10, 3, 0, 0, 0, time.UTC), // Saturday
		},
		{
			name:  "same day when trigger is still ahead",
			expr:  "0 3 * * 6",
			after: time.Date(2026, 1, 10, 1, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 1, 10, 3, 0, 0, 0, time.UTC),
		},
		{
			name:  "rolls to next week after trigger passed",
			expr:  "0 3 * * 6",
			after: time.Date(2026, 1, 10, 3, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 1, 17, 3, 0, 0, 0, time.UTC),
		},
		{
			name:  "every minute advances to the next boundary",
			expr:  "* * * * *",
			after: time.Date(2026, 1, 7, 12, 0, 30, 0, time.UTC),
			want:  time.Date(2026, 1, 7, 12, 1, 0, 0, time.UTC),
		},
		{
			name:  "first of the month",
			expr:  "0 0 1 * *",
			after: time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "value list",
			expr:  "0 9,17 * * *",
			after: time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 1, 7, 17, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := nextCronTime(tc.expr, tc.after)
			if err != nil {
				t.Fatalf("nextCronTime(%q): %v", tc.expr, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("nextCronTime(%q, %v) = %v, want %v", tc.expr, tc.after, got, tc.want)
			}
		})
	}
}

func TestParseCronErrors(t *testing.T) {
	if _, err := parseCron("0 3 * *"); err == nil {
		t.Fatal("accepted a 4-field expression")
	}
	if _, err := parseCron("x 3 * * 6"); err == nil {
		t.Fatal("accepted a non-numeric field")
	}
}
