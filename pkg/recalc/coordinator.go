package recalc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

// Result is the outcome of one submitted request.
type Result struct {
	Dataset    *roster.Dataset
	Err        error
	Generation uint64
}

// Coordinator runs at most one recalculation that matters at a time. Each
// Submit supersedes the previous request: the old one is cancelled and, if
// it still completes, its result is discarded. Only the newest request's
// result reaches the callback.
type Coordinator struct {
	recalc  Recalculator
	deliver func(Result)
	logger  *slog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	gen     uint64
	// mu also covers delivery, so a newer Submit cannot start while an
	// older result is being handed out.
	mu sync.Mutex
}

// NewCoordinator returns a Coordinator reporting results to deliver. The
// callback runs with the Coordinator locked and must not call back into it.
func NewCoordinator(r Recalculator, deliver func(Result), logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{recalc: r, deliver: deliver, logger: logger}
}

// Submit starts req, cancelling whatever was outstanding, and returns its generation.
func (c *Coordinator) Submit(ctx context.Context, req Request) uint64 {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Debug("recalculation submitted", "generation", gen, "month", req.Month, "edits", len(req.Edits))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		ds, err := c.recalc.Recalculate(runCtx, req)

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			c.logger.Debug("discarding superseded recalculation", "generation", gen, "error", err)
			return
		}
		c.cancel = nil
		if err != nil {
			c.logger.Warn("recalculation failed", "generation", gen, "error", err)
		}
		c.deliver(Result{Generation: gen, Dataset: ds, Err: err})
	}()
	return gen
}

// Cancel aborts the outstanding request; its result will not be delivered.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

// Pending reports whether a request is outstanding.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Wait blocks until every started request has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
