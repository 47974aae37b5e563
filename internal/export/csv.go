// Package export writes quotes out as CSV, Word-compatible HTML and PDF.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/repository"
)

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{
	"number", "issuer_name", "issuer_tax_id", "client_name", "client_tax_id",
	"created_at", "subtotal", "total", "items_json", "notes",
}

// CSV writes one row per quote in insertion order. Removed parties leave
// their columns empty.
func CSV(w io.Writer, doc *models.Document) error {
	repo := repository.New(doc.Clone())
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, q := range repo.Document().Quotes {
		issuer := repo.ResolveIssuer(q.IssuerID)
		client := repo.ResolveClient(q.ClientID)
		items, err := json.Marshal(q.Items)
		if err != nil {
			return err
		}
		row := []string{
			q.Number,
			issuer.Name,
			issuer.TaxID,
			client.Name,
			client.TaxID,
			q.CreatedAt.UTC().Format(time.RFC3339),
			amount(q.Subtotal),
			amount(q.Total),
			string(items),
			q.Notes,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
