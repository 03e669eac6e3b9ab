package alpaca

import (
	"testing"
	"time"
)

func TestNextBackoff(t *testing.T) {
	cases := []struct {
		name        string
		previous    time.Duration
		sessionLife time.Duration
		want        time.Duration
	}{
		{"first failure starts at base", 0, time.Second, reconnectDelay},
		{"rapid failure doubles", reconnectDelay, time.Second, 2 * reconnectDelay},
		{"doubling is capped", maxReconnectDelay, time.Second, maxReconnectDelay},
		{"near-cap clamps to cap", 48 * time.Second, time.Second, maxReconnectDelay},
		{"healthy session resets the ladder", maxReconnectDelay, 2 * time.Hour, reconnectDelay},
		{"session just past the cap resets", 16 * time.Second, maxReconnectDelay + time.Second, reconnectDelay},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextBackoff(tc.previous, tc.sessionLife); got != tc.want {
				t.Fatalf("nextBackoff(%v, %v) = %v, want %v", tc.previous, tc.sessionLife, got, tc.want)
			}
		})
	}
}

func TestBackoffLadder(t *testing.T) {
	// Consecutive rapid failures walk 2s, 4s, ..., 60s and stay there.
	var delay time.Duration
	want := []time.Duration{2, 4, 8, 16, 32, 60, 60}
	for i, w := range want {
		delay = nextBackoff(delay, time.Second)
		if delay != w*time.Second {
			t.Fatalf("step %d: delay = %v, want %v", i, delay, w*time.Second)
		}
	}
}
