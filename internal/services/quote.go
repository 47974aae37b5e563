package services

import (
	"math"
	"strings"
	"time"

	"github.com/diewo77/go-quotes/internal/ids"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/numbering"
	"github.com/diewo77/go-quotes/internal/repository"
)

// SaveResult describes what Engine.SaveQuote did.
type SaveResult struct {
	Quote     models.Quote
	Created   bool
	Generated bool // number came from the counter
}

// Engine validates quote input and applies it to a Document. It does not
// persist anything.
type Engine struct {
	ids ids.Allocator
	now func() time.Time
}

func NewEngine(alloc ids.Allocator, now func() time.Time) *Engine {
	if alloc == nil {
		alloc = ids.UUID{}
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{ids: alloc, now: now}
}

// ComputeTotals returns subtotal and total for the given items.
// No tax or discount applies, so total equals subtotal.
func (e *Engine) ComputeTotals(items []models.LineItem) (subtotal, total float64) {
	for _, it := range items {
		subtotal += it.Total()
	}
	return subtotal, subtotal
}

// ValidItems drops items whose description is blank.
func ValidItems(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, 0, len(items))
	for _, it := range items {
		if !it.Blank() {
			out = append(out, it)
		}
	}
	return out
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SaveQuote creates a quote (editingID empty) or overwrites the quote
// identified by editingID. All checks run before doc is touched; on error
// doc is unchanged.
func (e *Engine) SaveQuote(doc *models.Document, in models.QuoteInput, editingID string) (SaveResult, error) {
	issuerID := strings.TrimSpace(in.IssuerID)
	clientID := strings.TrimSpace(in.ClientID)
	if issuerID == "" || clientID == "" {
		return SaveResult{}, ErrMissingSelection
	}

	items := ValidItems(in.Items)
	if len(items) == 0 {
		return SaveResult{}, ErrNoValidItems
	}
	for _, it := range items {
		if !validAmount(it.Quantity) || !validAmount(it.UnitPrice) {
			return SaveResult{}, ErrInvalidAmount
		}
	}
	subtotal, total := e.ComputeTotals(items)
	if !validAmount(subtotal) || !validAmount(total) {
		return SaveResult{}, ErrInvalidAmount
	}

	now := e.now()
	number := strings.TrimSpace(in.Number)
	generated := false
	counter := 0
	if number == "" {
		number, counter = numbering.Next(doc, now)
		generated = true
	}

	repo := repository.New(doc)
	if repo.NumberTaken(number, issuerID, editingID) {
		return SaveResult{}, ErrDuplicateNumber
	}

	if editingID != "" {
		q, err := repo.UpdateQuote(editingID, func(q *models.Quote) {
			q.IssuerID = issuerID
			q.ClientID = clientID
			q.Number = number
			q.Items = items
			q.Subtotal = subtotal
			q.Total = total
			q.Notes = in.Notes
			q.UpdatedAt = &now
		})
		if err != nil {
			return SaveResult{}, err
		}
		return SaveResult{Quote: q, Generated: generated}, nil
	}

	q := repo.AddQuote(models.Quote{
		ID:        e.ids.NewID(),
		IssuerID:  issuerID,
		ClientID:  clientID,
		Number:    number,
		Items:     items,
		Subtotal:  subtotal,
		Total:     total,
		Notes:     in.Notes,
		CreatedAt: now,
	})
	if generated {
		doc.NextQuoteNumber = counter + 1
	}
	return SaveResult{Quote: q, Created: true, Generated: generated}, nil
}
