package persistence

import (
	"context"
	"sync"

	"github.com/diewo77/go-quotes/internal/models"
)

// Memory keeps serialized documents in process memory.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{slots: map[string][]byte{}}
}

func (m *Memory) Gateway(slot string) Gateway {
	return &memoryGateway{store: m, slot: slot}
}

// Raw returns the serialized document for slot, or nil.
func (m *Memory) Raw(slot string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.slots[slot]...)
}

type memoryGateway struct {
	store *Memory
	slot  string
}

func (g *memoryGateway) Load(ctx context.Context) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.store.mu.RLock()
	b, ok := g.store.slots[g.slot]
	g.store.mu.RUnlock()
	if !ok {
		return models.NewDocument(), nil
	}
	return decode(b)
}

func (g *memoryGateway) Save(ctx context.Context, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := encode(doc)
	if err != nil {
		return err
	}
	g.store.mu.Lock()
	g.store.slots[g.slot] = b
	g.store.mu.Unlock()
	return nil
}
