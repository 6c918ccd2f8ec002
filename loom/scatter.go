// ABOUTME: Bounded scatter-gather for independent sub-steps of a single node.
// ABOUTME: Sub-steps read a shared immutable snapshot; failures resolve to typed results, never a hung gather.
package loom

import (
	"context"
	"sync"
)

// SubTask is one independent sub-step of a scatter-gather node. Run reads
// only the immutable snapshot captured in its closure and writes no shared
// state; its result is merged with the others at a single point after all
// sub-steps resolve.
type SubTask[R any] struct {
	Key string
	Run func(ctx context.Context) (R, error)
}

// SubResult is the resolution of one sub-step. A non-nil Err marks an
// individual failure; it does not block the remaining sub-steps.
type SubResult[R any] struct {
	Key   string
	Value R
	Err   error
}

// Scatter runs the sub-tasks concurrently with at most maxParallel in
// flight and returns one result per task, in task order. A cancelled
// context resolves unstarted and in-flight sub-steps to their context
// error rather than hanging the gather.
func Scatter[R any](ctx context.Context, tasks []SubTask[R], maxParallel int) []SubResult[R] {
	if maxParallel <= 0 {
		maxParallel = 4
	}

	semaphore := make(chan struct{}, maxParallel)
	results := make([]SubResult[R], len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t SubTask[R]) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				results[idx] = SubResult[R]{Key: t.Key, Err: ctx.Err()}
				return
			}

			value, err := t.Run(ctx)
			results[idx] = SubResult[R]{Key: t.Key, Value: value, Err: err}
		}(i, task)
	}

	wg.Wait()
	return results
}
