// ABOUTME: Tests for bounded scatter-gather: ordering, partial failure, concurrency bound, and cancellation.
// ABOUTME: A cancelled context must resolve every sub-step, never hang the gather.
package loom

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScatterReturnsResultsInTaskOrder(t *testing.T) {
	tasks := make([]SubTask[string], 5)
	for i := range tasks {
		key := fmt.Sprintf("arc-%d", i)
		tasks[i] = SubTask[string]{
			Key: key,
			Run: func(ctx context.Context) (string, error) {
				return "themes for " + key, nil
			},
		}
	}

	results := Scatter(context.Background(), tasks, 2)

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		want := fmt.Sprintf("arc-%d", i)
		if r.Key != want {
			t.Errorf("result %d: key %q, want %q", i, r.Key, want)
		}
		if r.Err != nil {
			t.Errorf("result %d: unexpected error %v", i, r.Err)
		}
	}
}

func TestScatterPartialFailure(t *testing.T) {
	boom := errors.New("analysis failed")
	tasks := []SubTask[int]{
		{Key: "ok-1", Run: func(ctx context.Context) (int, error) { return 1, nil }},
		{Key: "bad", Run: func(ctx context.Context) (int, error) { return 0, boom }},
		{Key: "ok-2", Run: func(ctx context.Context) (int, error) { return 2, nil }},
	}

	results := Scatter(context.Background(), tasks, 4)

	if results[0].Err != nil || results[2].Err != nil {
		t.Error("expected healthy sub-steps unaffected by a sibling failure")
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("expected failing sub-step to carry its error, got %v", results[1].Err)
	}
}

func TestScatterRespectsConcurrencyBound(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex

	tasks := make([]SubTask[struct{}], 8)
	for i := range tasks {
		tasks[i] = SubTask[struct{}]{
			Key: fmt.Sprintf("t%d", i),
			Run: func(ctx context.Context) (struct{}, error) {
				n := atomic.AddInt32(&inFlight, 1)
				mu.Lock()
				if n > peak {
					peak = n
				}
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return struct{}{}, nil
			},
		}
	}

	Scatter(context.Background(), tasks, 3)

	if peak > 3 {
		t.Errorf("expected at most 3 in flight, saw %d", peak)
	}
}

func TestScatterCancelledContextResolvesAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []SubTask[int]{
		{Key: "a", Run: func(ctx context.Context) (int, error) { return 1, nil }},
		{Key: "b", Run: func(ctx context.Context) (int, error) { return 2, nil }},
	}

	done := make(chan []SubResult[int], 1)
	go func() { done <- Scatter(ctx, tasks, 1) }()

	select {
	case results := <-done:
		if len(results) != 2 {
			t.Fatalf("expected 2 resolved results, got %d", len(results))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gather hung on a cancelled context")
	}
}
