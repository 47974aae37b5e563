// Package view renders HTML pages and printable quote documents from
// embedded templates.
package view

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/i18n"
	"github.com/diewo77/go-quotes/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var tplCache = struct {
	sync.RWMutex
	m map[string]*template.Template
}{m: map[string]*template.Template{}}

// Funcs returns the func map shared by every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"t":      i18n.T,
		"money":  i18n.Money,
		"number": i18n.Number,
		"date":   i18n.Date,
		"mul":    func(a, b float64) float64 { return a * b },
		"year":   func() int { return time.Now().Year() },
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// standalone templates are full documents and skip the layout.
var standalone = map[string]bool{"quote_document.html": true}

func lookup(name string) (*template.Template, error) {
	tplCache.RLock()
	t, ok := tplCache.m[name]
	tplCache.RUnlock()
	if ok {
		return t, nil
	}
	var err error
	if standalone[name] {
		t, err = template.New(name).Funcs(Funcs()).ParseFS(templateFS, "templates/"+name)
	} else {
		t, err = template.New("layout.html").Funcs(Funcs()).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
	}
	if err != nil {
		return nil, err
	}
	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	return t, nil
}

// Render executes the named page inside the layout.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	return RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code, used when a form is
// shown again after a failed submission.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		data["IsLoggedIn"] = auth.IsAuthenticated(r.Context())
	}
	t, err := lookup(name)
	if err != nil {
		return err
	}
	// Buffer so a template error does not leave a half-written page.
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// QuoteDocument is everything printed on a quote. Issuer and Client may
// be empty placeholders when the party was removed.
type QuoteDocument struct {
	Quote  models.Quote
	Issuer models.Issuer
	Client models.Client
}

// Heading returns the quote number, or its id when it has none.
func (d QuoteDocument) Heading() string {
	if d.Quote.Number != "" {
		return d.Quote.Number
	}
	return d.Quote.ID
}

// RenderQuoteDocument writes the printable HTML document for a quote.
func RenderQuoteDocument(w io.Writer, doc QuoteDocument) error {
	t, err := lookup("quote_document.html")
	if err != nil {
		return err
	}
	return t.Execute(w, doc)
}
