// Package persistence loads and saves whole Documents. A save always
// replaces the stored document in full.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diewo77/go-quotes/internal/models"
)

// Gateway is bound to a single storage slot.
type Gateway interface {
	// Load returns the stored document, or models.NewDocument() when the
	// slot is empty.
	Load(ctx context.Context) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
}

// Store hands out gateways per slot (one slot per user).
type Store interface {
	Gateway(slot string) Gateway
}

func encode(doc *models.Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*models.Document, error) {
	doc := &models.Document{}
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.EnsureSlices()
	return doc, nil
}
