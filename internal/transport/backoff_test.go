package transport

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // capped
		{6, 30 * time.Second},
		{40, 30 * time.Second},
		{100, 30 * time.Second}, // shift overflow territory
	}

	for _, tt := range tests {
		got := backoffDelay(base, max, tt.attempt)
		if got != tt.want {
			t.Errorf("backoffDelay(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelay_MonotonicNonDecreasing(t *testing.T) {
	var prev time.Duration
	for attempt := 0; attempt < 64; attempt++ {
		d := backoffDelay(500*time.Millisecond, 20*time.Second, attempt)
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		if d > 20*time.Second {
			t.Fatalf("delay %v exceeds cap at attempt %d", d, attempt)
		}
		prev = d
	}
}

func TestReconnectionBudget(t *testing.T) {
	b := reconnectionBudget{
		maxRetries: 3,
		baseDelay:  time.Second,
		maxDelay:   time.Minute,
	}

	for i := 0; i < 3; i++ {
		if b.Exhausted() {
			t.Fatalf("Exhausted() = true at attempt %d, want false", b.Attempt())
		}
		b.Next()
	}

	if !b.Exhausted() {
		t.Errorf("Exhausted() = false after %d attempts, want true", b.Attempt())
	}

	b.Reset()
	if b.Attempt() != 0 {
		t.Errorf("Attempt() = %d after Reset, want 0", b.Attempt())
	}
	if b.Exhausted() {
		t.Error("Exhausted() = true after Reset, want false")
	}
}

func TestReconnectionBudget_DelaysGrow(t *testing.T) {
	b := reconnectionBudget{
		maxRetries: 10,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   time.Second,
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}

	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	if b.Attempt() != len(want) {
		t.Errorf("Attempt() = %d, want %d", b.Attempt(), len(want))
	}
}

func TestReconnectionBudget_ZeroRetries(t *testing.T) {
	b := reconnectionBudget{maxRetries: 0, baseDelay: time.Second, maxDelay: time.Second}
	if !b.Exhausted() {
		t.Error("Exhausted() = false with a zero budget, want true")
	}
}

func TestOptionsWithDefaults_MaxRetries(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative selects default", -1, DefaultOptions().MaxRetries},
		{"explicit zero kept", 0, 0},
		{"positive kept", 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{MaxRetries: tt.in}
			if got := opts.withDefaults().MaxRetries; got != tt.want {
				t.Errorf("withDefaults().MaxRetries = %d, want %d", got, tt.want)
			}
		})
	}
}
