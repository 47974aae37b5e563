package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/i18n"
	"github.com/diewo77/go-quotes/internal/export"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/services"
	"github.com/diewo77/go-quotes/validation"
	"github.com/diewo77/go-quotes/view"
)

type QuoteHandler struct {
	ws *services.Workspaces
}

func NewQuoteHandler(ws *services.Workspaces) *QuoteHandler {
	return &QuoteHandler{ws: ws}
}

// List returns the saved quotes, most recent first.
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	if !httpx.WantsJSON(r) {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}
	wsp, err := workspace(h.ws, r)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quoteViewsJSON(wsp.Quotes()))
}

// NextNumber previews the number the next generated quote will get.
func (h *QuoteHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	wsp, err := workspace(h.ws, r)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"number": wsp.NextNumber()})
}

func (h *QuoteHandler) View(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !httpx.WantsJSON(r) {
		http.Redirect(w, r, "/app?edit_quote="+id, http.StatusSeeOther)
		return
	}
	wsp, err := workspace(h.ws, r)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	v, err := wsp.View(id)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quoteViewJSON(v))
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, r.PathValue("id"))
}

func (h *QuoteHandler) save(w http.ResponseWriter, r *http.Request, editingID string) {
	in, err := parseQuoteInput(r)
	if err != nil {
		if httpx.SentJSON(r) || httpx.WantsJSON(r) {
			httpx.JSONErrorMessage(w, http.StatusBadRequest, "invalid_json", i18n.T("invalid_json"), nil)
			return
		}
		http.Error(w, i18n.T("invalid_json"), http.StatusBadRequest)
		return
	}
	wsp, err := workspace(h.ws, r)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}

	q, err := wsp.SaveQuote(r.Context(), in, editingID)
	if err != nil {
		if httpx.SentJSON(r) || httpx.WantsJSON(r) {
			if errors.Is(err, services.ErrInvalidAmount) {
				code := errorCode(err)
				httpx.JSONErrorMessage(w, http.StatusBadRequest, code, i18n.T(code), itemViolations(in.Items))
				return
			}
			writeJSONError(w, r, err)
			return
		}
		renderApp(w, r, wsp, statusFor(err), map[string]any{
			"Form":  formFromInput(editingID, in),
			"Error": i18n.T(errorCode(err)),
		})
		return
	}

	if httpx.SentJSON(r) || httpx.WantsJSON(r) {
		status := http.StatusOK
		if editingID == "" {
			status = http.StatusCreated
		}
		httpx.JSON(w, status, q)
		return
	}
	http.Redirect(w, r, "/app?ok=quote_saved", http.StatusSeeOther)
}

func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	wsp, err := workspace(h.ws, r)
	if err == nil {
		err = wsp.RemoveQuote(r.Context(), r.PathValue("id"))
	}
	if err != nil {
		if httpx.WantsJSON(r) {
			writeJSONError(w, r, err)
			return
		}
		http.Error(w, i18n.T(errorCode(err)), statusFor(err))
		return
	}
	if httpx.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/app?ok=quote_removed", http.StatusSeeOther)
}

// Print serves the printable HTML document.
func (h *QuoteHandler) Print(w http.ResponseWriter, r *http.Request) {
	d, ok := h.document(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := view.RenderQuoteDocument(&buf, d); err != nil {
		writeJSONError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// DOC serves the document as a Word download.
func (h *QuoteHandler) DOC(w http.ResponseWriter, r *http.Request) {
	d, ok := h.document(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.DOC(&buf, d); err != nil {
		writeJSONError(w, r, err)
		return
	}
	attachment(w, export.DOCContentType, export.Filename(d, "doc"))
	buf.WriteTo(w)
}

// PDF serves the document as a PDF download.
func (h *QuoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	d, ok := h.document(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.PDF(&buf, d); err != nil {
		writeJSONError(w, r, err)
		return
	}
	attachment(w, export.PDFContentType, export.Filename(d, "pdf"))
	buf.WriteTo(w)
}

func (h *QuoteHandler) document(w http.ResponseWriter, r *http.Request) (view.QuoteDocument, bool) {
	wsp, err := workspace(h.ws, r)
	if err != nil {
		writeJSONError(w, r, err)
		return view.QuoteDocument{}, false
	}
	v, err := wsp.View(r.PathValue("id"))
	if err != nil {
		if httpx.WantsJSON(r) {
			writeJSONError(w, r, err)
		} else {
			http.Error(w, i18n.T(errorCode(err)), statusFor(err))
		}
		return view.QuoteDocument{}, false
	}
	return view.QuoteDocument{Quote: v.Quote, Issuer: v.Issuer, Client: v.Client}, true
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// itemViolations names the amount fields that failed validation, e.g.
// "items.0.quantity".
func itemViolations(items []models.LineItem) validation.Violations {
	v := make(validation.Violations)
	for i, it := range items {
		if it.Blank() {
			continue
		}
		validation.NonNegativeFloat(fmt.Sprintf("items.%d.quantity", i), it.Quantity, v)
		validation.NonNegativeFloat(fmt.Sprintf("items.%d.unitPrice", i), it.UnitPrice, v)
	}
	return v
}

// parseQuoteInput reads a quote from a JSON body or from the dashboard
// form, where items arrive as parallel description/quantity/unit_price
// fields.
func parseQuoteInput(r *http.Request) (models.QuoteInput, error) {
	var in models.QuoteInput
	if httpx.SentJSON(r) {
		err := json.NewDecoder(r.Body).Decode(&in)
		return in, err
	}
	if err := r.ParseForm(); err != nil {
		return in, err
	}
	in.IssuerID = r.PostForm.Get("issuer_id")
	in.ClientID = r.PostForm.Get("client_id")
	in.Number = r.PostForm.Get("number")
	in.Notes = r.PostForm.Get("notes")

	desc := r.PostForm["description"]
	qty := r.PostForm["quantity"]
	price := r.PostForm["unit_price"]
	for i := range desc {
		in.Items = append(in.Items, models.LineItem{
			Description: desc[i],
			Quantity:    formFloat(qty, i, 1),
			UnitPrice:   formFloat(price, i, 0),
		})
	}
	return in, nil
}

// formFloat parses the i-th value, accepting a decimal comma. Missing or
// empty values take def; unparsable values are NaN so validation rejects
// them.
func formFloat(values []string, i int, def float64) float64 {
	if i >= len(values) {
		return def
	}
	s := strings.TrimSpace(values[i])
	if s == "" {
		return def
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
