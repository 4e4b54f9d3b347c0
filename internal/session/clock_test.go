package session

import (
	"sync"
	"testing"
	"time"
)

func TestRemainingSeconds(t *testing.T) {
	openedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		base    int
		ext     int
		elapsed time.Duration
		want    int64
	}{
		{"full time at open", 30, 0, 0, 1800},
		{"halfway", 30, 0, 15 * time.Minute, 900},
		{"one second left", 30, 0, 30*time.Minute - time.Second, 1},
		{"exact deadline", 30, 0, 30 * time.Minute, 0},
		{"past deadline clamps to zero", 30, 0, time.Hour, 0},
		{"extension adds time", 30, 10, 35 * time.Minute, 300},
		{"extension past base deadline", 30, 5, 32 * time.Minute, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemainingSeconds(openedAt, tt.base, tt.ext, openedAt.Add(tt.elapsed))
			if got != tt.want {
				t.Errorf("RemainingSeconds = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRemainingSecondsNonIncreasing(t *testing.T) {
	openedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	prev := RemainingSeconds(openedAt, 10, 0, openedAt)
	for s := 1; s <= 700; s += 7 {
		now := openedAt.Add(time.Duration(s) * time.Second)
		cur := RemainingSeconds(openedAt, 10, 0, now)
		if cur > prev {
			t.Fatalf("remaining increased from %d to %d at +%ds", prev, cur, s)
		}
		prev = cur
	}
}

func TestClockExpiryFiresOnce(t *testing.T) {
	openedAt := time.Now().Add(-time.Hour)
	clock := NewClock(openedAt, 30, 0, nil)

	var mu sync.Mutex
	fired := 0
	clock.Start(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	defer clock.Stop()

	// The deadline is long past; repeated checks must fire the action once.
	for i := 0; i < 5; i++ {
		if !clock.ExpireIfDue() {
			t.Fatal("ExpireIfDue = false for a past deadline")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Errorf("expiry action fired %d times, want 1", fired)
	}
	if clock.Phase() != ClockExpired {
		t.Errorf("phase = %v, want ClockExpired", clock.Phase())
	}
}

func TestClockNotDueBeforeDeadline(t *testing.T) {
	clock := NewClock(time.Now(), 30, 0, nil)
	clock.Start(func() { t.Error("expiry action fired with time remaining") })
	defer clock.Stop()

	if clock.ExpireIfDue() {
		t.Fatal("ExpireIfDue = true with time remaining")
	}
	if clock.Phase() != ClockRunning {
		t.Errorf("phase = %v, want ClockRunning", clock.Phase())
	}
}

func TestClockExtendDefersExpiry(t *testing.T) {
	// 30 minutes allotted, 31 elapsed: expired without the extension.
	now := time.Now()
	clock := NewClock(now.Add(-31*time.Minute), 30, 0, func() time.Time { return now })

	if got := clock.Remaining(); got != 0 {
		t.Fatalf("Remaining = %d before extension, want 0", got)
	}
	clock.Extend(10)
	if got := clock.Remaining(); got != 9*60 {
		t.Errorf("Remaining = %d after extension, want %d", got, 9*60)
	}
}

func TestClockStartIsOneShot(t *testing.T) {
	clock := NewClock(time.Now(), 30, 0, nil)
	clock.Start(nil)
	defer clock.Stop()
	clock.Start(nil)
	if clock.Phase() != ClockRunning {
		t.Errorf("phase = %v after double Start, want ClockRunning", clock.Phase())
	}
}
