// SPDX-License-Identifier: Unlicense OR MIT

package phase

import (
	"context"
	"fmt"
	"sync"

	gcp "github.com/jolestar/go-commons-pool/v2"
)

// WorkspacePool manages the per-worker FFT workspace lifecycle: one
// workspace per worker ID, constructed on the first task from that
// worker that needs FFT and returned to the pool only by Close (not
// when the worker goroutine exits). Construction and
// teardown are delegated to an object pool (bounded at the worker
// count), while each worker ID is pinned to the same borrowed
// workspace for its whole lifetime rather than round-robin checkout,
// since the workspace is not safe to share between concurrently
// running workers.
type WorkspacePool struct {
	objPool *gcp.ObjectPool

	mu        sync.Mutex
	perWorker map[int]*Workspace
}

// NewWorkspacePool creates a pool of N x N workspaces, capped at
// maxWorkers outstanding.
func NewWorkspacePool(ctx context.Context, n, maxWorkers int) *WorkspacePool {
	factory := gcp.NewPooledObjectFactorySimple(
		func(ctx context.Context) (interface{}, error) {
			return NewWorkspace(n)
		},
	)
	cfg := gcp.NewDefaultPoolConfig()
	cfg.MaxTotal = maxWorkers
	cfg.MaxIdle = maxWorkers
	return &WorkspacePool{
		objPool:   gcp.NewObjectPool(ctx, factory, cfg),
		perWorker: make(map[int]*Workspace),
	}
}

// Get returns the workspace owned by workerID, creating it via the
// underlying pool on first use. Resource exhaustion degrades silently
// one layer up: callers that fail to Get simply treat the region as
// valid=false.
func (p *WorkspacePool) Get(ctx context.Context, workerID int) (*Workspace, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ws, ok := p.perWorker[workerID]; ok {
		return ws, nil
	}
	obj, err := p.objPool.BorrowObject(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase: borrow workspace for worker %d: %w", workerID, err)
	}
	ws, ok := obj.(*Workspace)
	if !ok {
		return nil, fmt.Errorf("phase: pool returned unexpected type %T", obj)
	}
	p.perWorker[workerID] = ws
	return ws, nil
}

// Close returns every outstanding workspace and releases the pool.
// Idempotent is not required by spec (teardown happens once, at
// process shutdown), but calling it twice is harmless since the
// second call simply finds no outstanding workspaces.
func (p *WorkspacePool) Close(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ws := range p.perWorker {
		_ = p.objPool.ReturnObject(ctx, ws)
		delete(p.perWorker, id)
	}
	p.objPool.Close(ctx)
}
