package services

import (
	"context"
	"sync"

	"github.com/diewo77/go-quotes/internal/persistence"
)

// Workspaces opens one Workspace per slot on first use and keeps it for
// the life of the process.
type Workspaces struct {
	mu    sync.Mutex
	store persistence.Store
	opts  Options
	open  map[string]*Workspace
}

func NewWorkspaces(store persistence.Store, opts Options) *Workspaces {
	return &Workspaces{store: store, opts: opts.withDefaults(), open: map[string]*Workspace{}}
}

// Get returns the workspace for slot, loading it if needed.
func (ws *Workspaces) Get(ctx context.Context, slot string) (*Workspace, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if w, ok := ws.open[slot]; ok {
		return w, nil
	}
	w, err := OpenWorkspace(ctx, slot, ws.store.Gateway(slot), ws.opts)
	if err != nil {
		return nil, err
	}
	ws.open[slot] = w
	return w, nil
}

// Forget drops the cached workspace so the next Get reloads from storage.
func (ws *Workspaces) Forget(slot string) {
	ws.mu.Lock()
	delete(ws.open, slot)
	ws.mu.Unlock()
}
