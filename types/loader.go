package types

import (
	"context"
	"time"
)

// Loader is the contract between the cache and whatever produces values on a miss.
type Loader[V any] interface {

	/*
		Load is called by GetOrLoad when the composite key is not cached.
		1. Cache checks memory → key not found
		2. Cache calls Load(key) (once, even if many goroutines missed together)
		3. Loader fetches from DB/API
		4. Cache stores the result with the returned TTL (<= 0 means no expiry)
		5. Cache returns the value

		Returning an error stores nothing.
	*/
	Load(ctx context.Context, key CompositeKey) (V, time.Duration, error)
}

// LoaderFunc adapts a plain function to Loader.
type LoaderFunc[V any] func(ctx context.Context, key CompositeKey) (V, time.Duration, error)

func (f LoaderFunc[V]) Load(ctx context.Context, key CompositeKey) (V, time.Duration, error) {
	return f(ctx, key)
}
