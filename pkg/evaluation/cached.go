package evaluation

import (
	"context"
	"sync"

	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/errors"
	"github.com/evoforge/evoforge/pkg/logging"
)

// CachedEvaluator deduplicates evaluation work by content fingerprint within
// a run. The inner evaluator runs at most once per unique fingerprint, no
// matter how many lineages converge on the same content or how concurrently
// they arrive: later callers for an in-flight fingerprint wait for the first
// call's result instead of issuing their own.
type CachedEvaluator struct {
	inner Evaluator

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	done  chan struct{}
	score Score
	err   error
}

// NewCachedEvaluator wraps inner with a per-run fingerprint cache.
func NewCachedEvaluator(inner Evaluator) *CachedEvaluator {
	return &CachedEvaluator{
		inner:   inner,
		entries: make(map[string]*cacheEntry),
	}
}

// Evaluate implements the Evaluator interface.
func (e *CachedEvaluator) Evaluate(ctx context.Context, c *core.Candidate) (Score, error) {
	fingerprint := c.Fingerprint()

	e.mu.Lock()
	if entry, ok := e.entries[fingerprint]; ok {
		e.mu.Unlock()
		select {
		case <-entry.done:
			return entry.score, entry.err
		case <-ctx.Done():
			return Score{}, errors.Wrap(ctx.Err(), errors.Canceled, "evaluation canceled")
		}
	}

	entry := &cacheEntry{done: make(chan struct{})}
	e.entries[fingerprint] = entry
	e.mu.Unlock()

	entry.score, entry.err = e.inner.Evaluate(ctx, c)
	close(entry.done)

	if entry.err == nil {
		logging.GetLogger().Debug(ctx, "Cached score %.3f for fingerprint %s", entry.score.Value, fingerprint[:12])
	}
	return entry.score, entry.err
}

// Len reports how many unique fingerprints have been evaluated so far.
func (e *CachedEvaluator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}
