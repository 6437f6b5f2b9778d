package types

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the cache lifecycle. The cache will call these methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when a lookup finds a live value.
	Hit()

	// Miss is called when a lookup finds nothing (or only an entry past its deadline).
	Miss()

	// Set is called for every successful AddOrUpdate.
	Set()

	// Remove is called once per entry removed explicitly or by a clear.
	Remove()

	// Expire is called when an entry is removed because it has passed its TTL.
	Expire()
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Callers that do not care about metrics still get a working cache without
nil checks on every hot path.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()    {}
func (NoopMetrics) Miss()   {}
func (NoopMetrics) Set()    {}
func (NoopMetrics) Remove() {}
func (NoopMetrics) Expire() {}
