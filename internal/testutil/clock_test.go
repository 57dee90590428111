package testutil

import (
	"testing"
	"time"
)

func TestFixedClock_Advances(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start, time.Second)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("first Now() = %v, want %v", got, start)
	}
	if got := c.Now(); !got.Equal(start.Add(time.Second)) {
		t.Errorf("second Now() = %v, want %v", got, start.Add(time.Second))
	}
}

func TestFixedClock_Reset(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start, time.Minute)
	c.Now()
	c.Now()
	c.Reset(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() after Reset = %v, want %v", got, start)
	}
}

func TestFixedClock_Concurrent(t *testing.T) {
	c := NewFixedClock(time.Unix(0, 0), time.Nanosecond)
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.Now()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	want := time.Unix(0, 0).Add(400 * time.Nanosecond)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() after 400 concurrent calls = %v, want %v", got, want)
	}
}
