package handlers

import (
	"net/http"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/i18n"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/services"
	"github.com/diewo77/go-quotes/view"
)

// minItemRows is how many item rows the quote form always offers.
const minItemRows = 3

// quoteForm is the state of the quote editor on the dashboard.
type quoteForm struct {
	ID       string
	IssuerID string
	ClientID string
	Number   string
	Notes    string
	Items    []models.LineItem
}

func newQuoteForm() quoteForm {
	return quoteForm{}.padded()
}

func formFromInput(editingID string, in models.QuoteInput) quoteForm {
	f := quoteForm{ID: editingID, IssuerID: in.IssuerID, ClientID: in.ClientID, Number: in.Number, Notes: in.Notes}
	f.Items = append(f.Items, in.Items...)
	return f.padded()
}

func formFromQuote(q models.Quote) quoteForm {
	f := quoteForm{ID: q.ID, IssuerID: q.IssuerID, ClientID: q.ClientID, Number: q.Number, Notes: q.Notes}
	f.Items = append(f.Items, q.Items...)
	return f.padded()
}

// padded keeps at least minItemRows rows plus one empty row to add an item.
func (f quoteForm) padded() quoteForm {
	n := len(f.Items) + 1
	if n < minItemRows {
		n = minItemRows
	}
	for len(f.Items) < n {
		f.Items = append(f.Items, models.LineItem{Quantity: 1})
	}
	return f
}

// DashboardHandler serves the landing page and the signed-in workspace.
type DashboardHandler struct {
	ws *services.Workspaces
}

func NewDashboardHandler(ws *services.Workspaces) *DashboardHandler {
	return &DashboardHandler{ws: ws}
}

// Index shows the public landing page, or sends signed-in users to /app.
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	if auth.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}
	view.Render(w, r, "index.html", nil)
}

// App renders the workspace: parties, the quote editor and saved quotes.
// JSON clients get the whole workspace state.
func (h *DashboardHandler) App(w http.ResponseWriter, r *http.Request) {
	wsp, err := workspace(h.ws, r)
	if err != nil {
		if httpx.WantsJSON(r) {
			writeJSONError(w, r, err)
			return
		}
		http.Error(w, i18n.T(errorCode(err)), statusFor(err))
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"issuers":    wsp.Issuers(),
			"clients":    wsp.Clients(),
			"quotes":     quoteViewsJSON(wsp.Quotes()),
			"nextNumber": wsp.NextNumber(),
		})
		return
	}

	q := r.URL.Query()
	data := map[string]any{"Form": newQuoteForm()}
	if id := q.Get("edit_quote"); id != "" {
		if v, err := wsp.View(id); err == nil {
			data["Form"] = formFromQuote(v.Quote)
		} else {
			data["Error"] = i18n.T(errorCode(err))
		}
	}
	if id := q.Get("edit_issuer"); id != "" {
		data["EditIssuer"] = findParty(wsp.Issuers(), id)
	}
	if id := q.Get("edit_client"); id != "" {
		data["EditClient"] = findParty(wsp.Clients(), id)
	}
	if msg := q.Get("ok"); msg != "" {
		data["Flash"] = i18n.T(msg)
	}
	renderApp(w, r, wsp, http.StatusOK, data)
}

// renderApp fills in the workspace lists and renders the dashboard.
func renderApp(w http.ResponseWriter, r *http.Request, wsp *services.Workspace, status int, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Form"]; !ok {
		data["Form"] = newQuoteForm()
	}
	data["Title"] = i18n.T("quotes")
	data["Issuers"] = wsp.Issuers()
	data["Clients"] = wsp.Clients()
	data["Quotes"] = wsp.Quotes()
	data["NextNumber"] = wsp.NextNumber()
	view.RenderStatus(w, r, status, "app.html", data)
}

func findParty(list []models.Party, id string) *models.Party {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

type quoteJSON struct {
	models.Quote
	Issuer models.Issuer `json:"issuer"`
	Client models.Client `json:"client"`
}

func quoteViewJSON(v services.QuoteView) quoteJSON {
	return quoteJSON{Quote: v.Quote, Issuer: v.Issuer, Client: v.Client}
}

func quoteViewsJSON(list []services.QuoteView) []quoteJSON {
	out := make([]quoteJSON, 0, len(list))
	for _, v := range list {
		out = append(out, quoteViewJSON(v))
	}
	return out
}
