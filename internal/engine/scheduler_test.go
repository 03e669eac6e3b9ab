package engine

import (
	"log/slog"
	"testing"
	"time"
)

func newUTCScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(nil, SchedulerConfig{OpenTime: "09:30", Timezone: "UTC"}, slog.Default())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func TestNextTrigger(t *testing.T) {
	s := newUTCScheduler(t)

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "weekday before open fires same day",
			now:  time.Date(2026, 1, 7, 8, 0, 0, 0, time.UTC), // Wednesday
			want: time.Date(2026, 1, 7, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "weekday after open fires next day",
			now:  time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, 1, 8, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "exactly at open fires next day",
			now:  time.Date(2026, 1, 7, 9, 30, 0, 0, time.UTC),
			want: time.Date(2026, 1, 8, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "friday after open skips to monday",
			now:  time.Date(2026, 1, 9, 10, 0, 0, 0, time.UTC), // Friday
			want: time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "saturday skips to monday",
			now:  time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "sunday skips to monday",
			now:  time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.NextTrigger(tc.now)
			if !got.Equal(tc.want) {
				t.Fatalf("NextTrigger(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestNewSchedulerRejectsBadConfig(t *testing.T) {
	if _, err := NewScheduler(nil, SchedulerConfig{OpenTime: "25:00", Timezone: "UTC"}, slog.Default()); err == nil {
		t.Fatal("expected error for hour out of range")
	}
	if _, err := NewScheduler(nil, SchedulerConfig{OpenTime: "09:30", Timezone: "Not/AZone"}, slog.Default()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestNewSchedulerDefaults(t *testing.T) {
	s, err := NewScheduler(nil, SchedulerConfig{}, slog.Default())
	if err != nil {
		t.Fatalf("NewScheduler with defaults: %v", err)
	}
	if s.hour != 9 || s.min != 30 {
		t.Fatalf("default open time = %02d:%02d, want 09:30", s.hour, s.min)
	}
}
