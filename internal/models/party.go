package models

import "strings"

// Party is a named counterparty on a quote. Issuers and clients share it.
type Party struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TaxID   string `json:"taxId,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Issuer is the party producing a quote.
type Issuer = Party

// Client is the party receiving a quote.
type Client = Party

// PartyFields holds the editable attributes of a Party.
type PartyFields struct {
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f PartyFields) Trimmed() PartyFields {
	return PartyFields{
		Name:    strings.TrimSpace(f.Name),
		TaxID:   strings.TrimSpace(f.TaxID),
		Address: strings.TrimSpace(f.Address),
		Phone:   strings.TrimSpace(f.Phone),
	}
}

// Apply overwrites the editable attributes, keeping the ID.
func (p *Party) Apply(f PartyFields) {
	p.Name = f.Name
	p.TaxID = f.TaxID
	p.Address = f.Address
	p.Phone = f.Phone
}

// IsPlaceholder reports whether p stands in for a missing party.
func (p Party) IsPlaceholder() bool { return p.ID == "" }
