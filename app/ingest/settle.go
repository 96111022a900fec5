package ingest

import (
	"context"
	"fmt"
	"sync"
)

type Outcome[T any] struct {
	Value T
	Err   error
}

// Settle runs fn for every input concurrently and waits for all of them.
// Outcomes are in input order; a panic in fn becomes that input's error.
func Settle[I, T any](ctx context.Context, inputs []I, fn func(context.Context, I) (T, error)) []Outcome[T] {
	outcomes := make([]Outcome[T], len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = Outcome[T]{Err: fmt.Errorf("panic: %v", r)}
				}
			}()

			value, err := fn(ctx, input)
			outcomes[i] = Outcome[T]{Value: value, Err: err}
		}()
	}
	wg.Wait()

	return outcomes
}
