package models

import (
	"encoding/json"
	"strings"
	"time"
)

// LineItem is one billable row of a quote.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// UnmarshalJSON decodes an item, defaulting Quantity to 1 when the field
// is absent.
func (it *LineItem) UnmarshalJSON(data []byte) error {
	type plain LineItem
	p := plain{Quantity: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*it = LineItem(p)
	return nil
}

// Total returns quantity times unit price.
func (it LineItem) Total() float64 {
	return it.Quantity * it.UnitPrice
}

// Blank reports whether the item has no description and is ignored on save.
func (it LineItem) Blank() bool {
	return strings.TrimSpace(it.Description) == ""
}

// Quote is a priced proposal from an issuer to a client.
// IssuerID and ClientID are weak references: the parties may have been removed.
type Quote struct {
	ID        string     `json:"id"`
	IssuerID  string     `json:"issuerId"`
	ClientID  string     `json:"clientId"`
	Number    string     `json:"number"`
	Items     []LineItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	Total     float64    `json:"total"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// ItemsTotal sums the line totals of the quote items.
func (q *Quote) ItemsTotal() float64 {
	var total float64
	for _, it := range q.Items {
		total += it.Total()
	}
	return total
}

// QuoteInput is what a caller submits when creating or editing a quote.
// An empty Number asks for a generated one.
type QuoteInput struct {
	IssuerID string     `json:"issuerId"`
	ClientID string     `json:"clientId"`
	Number   string     `json:"number"`
	Items    []LineItem `json:"items"`
	Notes    string     `json:"notes"`
}
