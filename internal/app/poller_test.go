package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/kadai/internal/logging"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 5 * time.Minute

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 5 * time.Minute},
		{"negative failures", -1, 5 * time.Minute},
		{"one failure", 1, 10 * time.Minute},
		{"two failures", 2, 20 * time.Minute},
		{"three failures capped", 3, 30 * time.Minute}, // Would be 40m, capped to 30m
		{"many failures capped", 10, 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	for _, base := range []time.Duration{2 * time.Second, time.Minute, time.Hour} {
		for failures := 0; failures <= 40; failures++ {
			got := calculateBackoff(failures, base)
			if got > maxBackoff {
				t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, base, got, maxBackoff)
			}
		}
	}
}

func TestNextDelay(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		interval time.Duration
		want     time.Duration
		ok       bool
	}{
		{"startup only, healthy", 0, 0, 0, false},
		{"startup only, first failure", 1, 0, time.Minute, true},
		{"startup only, second failure", 2, 0, 2 * time.Minute, true},
		{"periodic, healthy", 0, 10 * time.Minute, 10 * time.Minute, true},
		{"periodic, failing", 1, 10 * time.Minute, 20 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nextDelay(tt.failures, tt.interval)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("nextDelay(%d, %v) = %v, %v; want %v, %v", tt.failures, tt.interval, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestStartSourceRefresh_RunsOnStartupAndOnTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 8)
	trigger := StartSourceRefresh(ctx, func(context.Context) error {
		calls <- struct{}{}
		return nil
	}, 0, logging.Discard())

	waitCall(t, calls)
	trigger()
	waitCall(t, calls)

	select {
	case <-calls:
		t.Fatal("unexpected refresh without a trigger")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartSourceRefresh_TriggerDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	var count atomic.Int32
	trigger := StartSourceRefresh(ctx, func(context.Context) error {
		count.Add(1)
		<-release
		return errors.New("offline")
	}, 0, logging.Discard())

	done := make(chan struct{})
	go func() {
		for range 10 {
			trigger()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("trigger blocked while a refresh was running")
	}
	close(release)
}

func TestStartSourceRefresh_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(chan struct{}, 8)
	trigger := StartSourceRefresh(ctx, func(context.Context) error {
		calls <- struct{}{}
		return nil
	}, 0, logging.Discard())
	waitCall(t, calls)

	cancel()
	time.Sleep(20 * time.Millisecond)
	trigger()
	select {
	case <-calls:
		t.Fatal("refresh ran after cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}

func waitCall(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh was not called")
	}
}
