package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/diewo77/go-quotes/view"
)

// DOCContentType is served with Word exports.
const DOCContentType = "application/msword"

// DOC writes the printable quote as an HTML document Word can open.
func DOC(w io.Writer, d view.QuoteDocument) error {
	return view.RenderQuoteDocument(w, d)
}

// Filename returns the download name for a quote export, e.g.
// "orcamento-2025-0001.pdf".
func Filename(d view.QuoteDocument, ext string) string {
	heading := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, d.Heading())
	return fmt.Sprintf("orcamento-%s.%s", heading, ext)
}
