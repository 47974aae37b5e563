// Package repository provides in-memory CRUD over the collections of a
// models.Document. Lookups are linear scans by id.
package repository

import (
	"errors"

	"github.com/diewo77/go-quotes/internal/models"
)

var (
	ErrPartyNotFound = errors.New("party_not_found")
	ErrQuoteNotFound = errors.New("quote_not_found")
)

// Repository mutates the Document it wraps in place.
type Repository struct {
	doc *models.Document
}

func New(doc *models.Document) *Repository {
	doc.EnsureSlices()
	return &Repository{doc: doc}
}

// Document returns the wrapped document.
func (r *Repository) Document() *models.Document { return r.doc }

// ---------------------------------------------------------------------------
// Issuers
// ---------------------------------------------------------------------------

func (r *Repository) Issuers() []models.Issuer {
	return append([]models.Issuer{}, r.doc.Issuers...)
}

func (r *Repository) AddIssuer(p models.Issuer) models.Issuer {
	r.doc.Issuers = append(r.doc.Issuers, p)
	return p
}

func (r *Repository) UpdateIssuer(id string, f models.PartyFields) (models.Issuer, error) {
	return updateParty(r.doc.Issuers, id, f)
}

func (r *Repository) RemoveIssuer(id string) error {
	out, err := removeParty(r.doc.Issuers, id)
	if err != nil {
		return err
	}
	r.doc.Issuers = out
	return nil
}

func (r *Repository) FindIssuer(id string) (models.Issuer, bool) {
	return findParty(r.doc.Issuers, id)
}

// ResolveIssuer returns the issuer or an empty placeholder when it no longer exists.
func (r *Repository) ResolveIssuer(id string) models.Issuer {
	p, _ := r.FindIssuer(id)
	return p
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

func (r *Repository) Clients() []models.Client {
	return append([]models.Client{}, r.doc.Clients...)
}

func (r *Repository) AddClient(p models.Client) models.Client {
	r.doc.Clients = append(r.doc.Clients, p)
	return p
}

func (r *Repository) UpdateClient(id string, f models.PartyFields) (models.Client, error) {
	return updateParty(r.doc.Clients, id, f)
}

func (r *Repository) RemoveClient(id string) error {
	out, err := removeParty(r.doc.Clients, id)
	if err != nil {
		return err
	}
	r.doc.Clients = out
	return nil
}

func (r *Repository) FindClient(id string) (models.Client, bool) {
	return findParty(r.doc.Clients, id)
}

// ResolveClient returns the client or an empty placeholder when it no longer exists.
func (r *Repository) ResolveClient(id string) models.Client {
	p, _ := r.FindClient(id)
	return p
}

func findParty(list []models.Party, id string) (models.Party, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return models.Party{}, false
}

func updateParty(list []models.Party, id string, f models.PartyFields) (models.Party, error) {
	for i := range list {
		if list[i].ID == id {
			list[i].Apply(f)
			return list[i], nil
		}
	}
	return models.Party{}, ErrPartyNotFound
}

// removeParty drops the party without touching quotes that reference it.
func removeParty(list []models.Party, id string) ([]models.Party, error) {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i:i], list[i+1:]...), nil
		}
	}
	return list, ErrPartyNotFound
}

// ---------------------------------------------------------------------------
// Quotes
// ---------------------------------------------------------------------------

// Quotes lists quotes most recent first (reverse insertion order).
func (r *Repository) Quotes() []models.Quote {
	n := len(r.doc.Quotes)
	out := make([]models.Quote, n)
	for i, q := range r.doc.Quotes {
		out[n-1-i] = q
	}
	return out
}

func (r *Repository) AddQuote(q models.Quote) models.Quote {
	r.doc.Quotes = append(r.doc.Quotes, q)
	return q
}

// UpdateQuote applies fn to the stored quote in place.
func (r *Repository) UpdateQuote(id string, fn func(*models.Quote)) (models.Quote, error) {
	for i := range r.doc.Quotes {
		if r.doc.Quotes[i].ID == id {
			fn(&r.doc.Quotes[i])
			return r.doc.Quotes[i], nil
		}
	}
	return models.Quote{}, ErrQuoteNotFound
}

func (r *Repository) RemoveQuote(id string) error {
	for i := range r.doc.Quotes {
		if r.doc.Quotes[i].ID == id {
			r.doc.Quotes = append(r.doc.Quotes[:i:i], r.doc.Quotes[i+1:]...)
			return nil
		}
	}
	return ErrQuoteNotFound
}

func (r *Repository) FindQuote(id string) (models.Quote, bool) {
	for _, q := range r.doc.Quotes {
		if q.ID == id {
			return q, true
		}
	}
	return models.Quote{}, false
}

// NumberTaken reports whether another quote of the same issuer already uses
// number. The quote identified by excludeID is ignored.
func (r *Repository) NumberTaken(number, issuerID, excludeID string) bool {
	for _, q := range r.doc.Quotes {
		if q.Number == number && q.IssuerID == issuerID && q.ID != excludeID {
			return true
		}
	}
	return false
}
