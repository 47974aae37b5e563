package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-quotes/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL stores each slot's document as one JSON row in quote_documents.
// It works with any GORM dialect that supports ON CONFLICT upserts
// (SQLite, PostgreSQL).
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQL { return &SQL{db: db} }

func (s *SQL) Gateway(slot string) Gateway {
	return &sqlGateway{db: s.db, slot: slot}
}

// Slots lists every slot that has a stored document.
func (s *SQL) Slots(ctx context.Context) ([]string, error) {
	var slots []string
	if err := s.db.WithContext(ctx).Model(&models.DocumentRecord{}).Order("slot").Pluck("slot", &slots).Error; err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

type sqlGateway struct {
	db   *gorm.DB
	slot string
}

func (g *sqlGateway) Load(ctx context.Context) (*models.Document, error) {
	var rec models.DocumentRecord
	err := g.db.WithContext(ctx).Where("slot = ?", g.slot).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", g.slot, err)
	}
	return decode(rec.Payload)
}

// Save replaces the slot's row with a single upsert statement.
func (g *sqlGateway) Save(ctx context.Context, doc *models.Document) error {
	b, err := encode(doc)
	if err != nil {
		return err
	}
	rec := models.DocumentRecord{Slot: g.slot, Payload: datatypes.JSON(b), UpdatedAt: time.Now()}
	err = g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save document %q: %w", g.slot, err)
	}
	return nil
}
