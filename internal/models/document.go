package models

import (
	"encoding/json"
	"math"
	"time"

	"gorm.io/datatypes"
)

// Document is the unit of persistence: every record of one user, plus the
// counter used to generate quote numbers.
type Document struct {
	Issuers         []Issuer `json:"issuers"`
	Clients         []Client `json:"clients"`
	Quotes          []Quote  `json:"quotes"`
	NextQuoteNumber int      `json:"nextQuoteNumber"`
}

// UnmarshalJSON decodes a stored document. A counter that is not a positive
// integer decodes as 0 so the load path recomputes it from the quotes.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var aux struct {
		plain
		NextQuoteNumber json.RawMessage `json:"nextQuoteNumber"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = Document(aux.plain)
	d.NextQuoteNumber = counterValue(aux.NextQuoteNumber)
	return nil
}

func counterValue(raw json.RawMessage) int {
	var v float64
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return 0
	}
	if v < 1 || v != math.Trunc(v) || v > 1<<53 {
		return 0
	}
	return int(v)
}

// NewDocument returns the seed used when nothing has been stored yet.
func NewDocument() *Document {
	return &Document{
		Issuers:         []Issuer{},
		Clients:         []Client{},
		Quotes:          []Quote{},
		NextQuoteNumber: 1,
	}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Issuers:         append([]Issuer{}, d.Issuers...),
		Clients:         append([]Client{}, d.Clients...),
		Quotes:          make([]Quote, len(d.Quotes)),
		NextQuoteNumber: d.NextQuoteNumber,
	}
	for i, q := range d.Quotes {
		q.Items = append([]LineItem{}, q.Items...)
		if q.UpdatedAt != nil {
			t := *q.UpdatedAt
			q.UpdatedAt = &t
		}
		out.Quotes[i] = q
	}
	return out
}

// EnsureSlices replaces nil collections with empty ones so the document
// always serializes with arrays.
func (d *Document) EnsureSlices() {
	if d.Issuers == nil {
		d.Issuers = []Issuer{}
	}
	if d.Clients == nil {
		d.Clients = []Client{}
	}
	if d.Quotes == nil {
		d.Quotes = []Quote{}
	}
	for i := range d.Quotes {
		if d.Quotes[i].Items == nil {
			d.Quotes[i].Items = []LineItem{}
		}
	}
}

// DocumentRecord stores one serialized Document per storage slot.
type DocumentRecord struct {
	Slot      string         `gorm:"primaryKey;size:255"`
	Payload   datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name used by migrations.
func (DocumentRecord) TableName() string { return "quote_documents" }
