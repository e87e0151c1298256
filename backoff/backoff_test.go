package backoff_test

import (
	"testing"
	"time"

	"github.com/bgribble/flopsy/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for attempt := 1; attempt <= 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Second)
		}
	}
}

func TestLinear_GrowsAndCaps(t *testing.T) {
	l := backoff.NewLinear(time.Second, 5*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{3, 3 * time.Second},
		{5, 5 * time.Second},
		{10, 5 * time.Second}, // capped at Max
	}
	for _, tt := range tests {
		if got := l.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_DoublesAndCaps(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second}, // 1 * 2^0
		{2, 2 * time.Second}, // 1 * 2^1
		{3, 4 * time.Second}, // 1 * 2^2
		{5, 10 * time.Second}, // capped at Max
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialWithJitter_StaysInRange(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, time.Minute)

	for attempt := 1; attempt <= 8; attempt++ {
		got := e.Delay(attempt)
		if got < 0 || got > time.Minute {
			t.Errorf("Delay(%d) = %v, out of [0, 1m]", attempt, got)
		}
	}
}
