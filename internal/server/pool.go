package server

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/metaforge-dev/metaforge/internal/router"
	"github.com/metaforge-dev/metaforge/pkg/protocol"
)

// task is one parsed request bound to its transport's reply path. The
// reply func must be safe to call after the connection is gone.
type task struct {
	ctx   context.Context
	req   *protocol.Request
	reply func(*protocol.Response)
}

// Pool runs dispatch work on a fixed set of workers so slow catalog or
// storage calls never stall connection accept or read loops.
type Pool struct {
	router  *router.Router
	tasks   chan task
	workers int
	wg      sync.WaitGroup
	logger  *zap.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// PoolStats is a point-in-time snapshot of pool activity.
type PoolStats struct {
	Workers   int   `json:"workers"`
	Pending   int   `json:"pending"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// NewPool creates a pool of the given size. depth bounds the pending
// request buffer; a full buffer blocks the submitting reader, which is
// the per-connection backpressure.
func NewPool(r *router.Router, workers, depth int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		router:  r,
		tasks:   make(chan task, depth),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.logger.Info("starting dispatch pool", zap.Int("workers", p.workers))
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

// Submit queues one task. Blocks when the buffer is full. Must not be
// called after Stop; the server guarantees that by closing every reader
// before stopping the pool.
func (p *Pool) Submit(t task) {
	p.tasks <- t
}

// Stop drains queued tasks and waits for the workers to finish.
func (p *Pool) Stop() {
	close(p.tasks)
	p.wg.Wait()
	p.logger.Info("dispatch pool stopped",
		zap.Int64("processed", p.processed.Load()),
		zap.Int64("failed", p.failed.Load()))
}

// Stats returns a snapshot of pool activity.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:   p.workers,
		Pending:   len(p.tasks),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for t := range p.tasks {
		resp := p.router.Dispatch(t.ctx, t.req)
		p.processed.Add(1)
		if !resp.Success {
			p.failed.Add(1)
		}
		t.reply(resp)
	}
}
