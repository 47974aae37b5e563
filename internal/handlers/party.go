package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/i18n"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/services"
	"github.com/diewo77/go-quotes/validation"
)

// partyOps binds a PartyHandler to either the issuer or the client list.
type partyOps struct {
	list   func(*services.Workspace) []models.Party
	add    func(*services.Workspace, context.Context, models.PartyFields) (models.Party, error)
	update func(*services.Workspace, context.Context, string, models.PartyFields) (models.Party, error)
	remove func(*services.Workspace, context.Context, string) error
	// editParam is the dashboard query parameter that opens the edit form.
	editParam string
}

// PartyHandler manages issuers or clients.
type PartyHandler struct {
	ws  *services.Workspaces
	ops partyOps
}

func NewIssuerHandler(ws *services.Workspaces) *PartyHandler {
	return &PartyHandler{ws: ws, ops: partyOps{
		list:      (*services.Workspace).Issuers,
		add:       (*services.Workspace).AddIssuer,
		update:    (*services.Workspace).UpdateIssuer,
		remove:    (*services.Workspace).RemoveIssuer,
		editParam: "edit_issuer",
	}}
}

func NewClientHandler(ws *services.Workspaces) *PartyHandler {
	return &PartyHandler{ws: ws, ops: partyOps{
		list:      (*services.Workspace).Clients,
		add:       (*services.Workspace).AddClient,
		update:    (*services.Workspace).UpdateClient,
		remove:    (*services.Workspace).RemoveClient,
		editParam: "edit_client",
	}}
}

func (h *PartyHandler) List(w http.ResponseWriter, r *http.Request) {
	if !httpx.WantsJSON(r) {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}
	wsp, err := workspace(h.ws, r)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.ops.list(wsp))
}

func (h *PartyHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *PartyHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, r.PathValue("id"))
}

func (h *PartyHandler) save(w http.ResponseWriter, r *http.Request, id string) {
	isJSON := httpx.SentJSON(r) || httpx.WantsJSON(r)

	var f models.PartyFields
	if httpx.SentJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			httpx.JSONErrorMessage(w, http.StatusBadRequest, "invalid_json", i18n.T("invalid_json"), nil)
			return
		}
	} else {
		f = models.PartyFields{
			Name:    r.FormValue("name"),
			TaxID:   r.FormValue("tax_id"),
			Address: r.FormValue("address"),
			Phone:   r.FormValue("phone"),
		}
	}
	f = f.Trimmed()

	wsp, err := workspace(h.ws, r)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}

	v := make(validation.Violations)
	validation.Required("name", f.Name, v)
	if !v.Empty() {
		if isJSON {
			httpx.JSONErrorMessage(w, http.StatusBadRequest, services.ErrNameRequired.Error(), i18n.T(services.ErrNameRequired.Error()), v)
			return
		}
		h.rerender(w, r, wsp, id, f, services.ErrNameRequired)
		return
	}

	var p models.Party
	if id == "" {
		p, err = h.ops.add(wsp, r.Context(), f)
	} else {
		p, err = h.ops.update(wsp, r.Context(), id, f)
	}
	if err != nil {
		if isJSON {
			writeJSONError(w, r, err)
			return
		}
		h.rerender(w, r, wsp, id, f, err)
		return
	}

	if isJSON {
		status := http.StatusOK
		if id == "" {
			status = http.StatusCreated
		}
		httpx.JSON(w, status, p)
		return
	}
	http.Redirect(w, r, "/app?ok=party_saved", http.StatusSeeOther)
}

// rerender shows the dashboard again with the submitted party fields.
func (h *PartyHandler) rerender(w http.ResponseWriter, r *http.Request, wsp *services.Workspace, id string, f models.PartyFields, err error) {
	edit := &models.Party{ID: id}
	edit.Apply(f)
	key := "EditIssuer"
	if h.ops.editParam == "edit_client" {
		key = "EditClient"
	}
	renderApp(w, r, wsp, statusFor(err), map[string]any{
		key:     edit,
		"Error": i18n.T(errorCode(err)),
	})
}

// Delete removes the party. Quotes that reference it keep the dangling id.
func (h *PartyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	wsp, err := workspace(h.ws, r)
	if err == nil {
		err = h.ops.remove(wsp, r.Context(), r.PathValue("id"))
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
	http.Redirect(w, r, "/app?ok=party_removed", http.StatusSeeOther)
}
