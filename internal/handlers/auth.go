package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/httpx"
	"github.com/diewo77/go-quotes/i18n"
	"github.com/diewo77/go-quotes/internal/identity"
	"github.com/diewo77/go-quotes/validation"
	"github.com/diewo77/go-quotes/view"
)

const minPasswordLength = 6

type AuthHandler struct {
	provider identity.Provider
}

func NewAuthHandler(provider identity.Provider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Token    string `json:"token"`
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if httpx.SentJSON(r) {
		err := json.NewDecoder(r.Body).Decode(&c)
		return c, err
	}
	c.Email = r.FormValue("email")
	c.Password = r.FormValue("password")
	c.Name = r.FormValue("name")
	c.Token = r.FormValue("token")
	return c, nil
}

// reply answers JSON clients with the provider result. It reports whether
// the response was written.
func reply(w http.ResponseWriter, r *http.Request, res identity.Result) bool {
	if !httpx.SentJSON(r) && !httpx.WantsJSON(r) {
		return false
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	httpx.JSON(w, status, res)
	return true
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		view.Render(w, r, "login.html", map[string]any{"Title": "Entrar"})
		return
	}

	c, err := readCredentials(r)
	if err != nil {
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "invalid_json", i18n.T("invalid_json"), nil)
		return
	}
	res := h.provider.SignIn(r.Context(), c.Email, c.Password)
	if res.Success {
		auth.CreateSession(w, res.UserID)
	}
	if reply(w, r, res) {
		return
	}
	if !res.Success {
		view.RenderStatus(w, r, http.StatusUnauthorized, "login.html", map[string]any{"Title": "Entrar", "Error": res.Message, "Email": c.Email})
		return
	}
	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

// Signup creates the account. The user signs in afterwards, which lets
// providers that confirm emails finish that step first.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		view.Render(w, r, "signup.html", map[string]any{"Title": "Criar conta"})
		return
	}

	c, err := readCredentials(r)
	if err != nil {
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "invalid_json", i18n.T("invalid_json"), nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("email", c.Email, v)
	validation.Required("password", c.Password, v)
	if v.Empty() {
		validation.Email("email", c.Email, v)
		validation.MinLength("password", c.Password, minPasswordLength, v)
	}
	if !v.Empty() {
		msg := i18n.T("signup_invalid")
		if v["email"] == "required" || v["password"] == "required" {
			msg = i18n.T("signup_missing")
		}
		if httpx.SentJSON(r) || httpx.WantsJSON(r) {
			httpx.JSONErrorMessage(w, http.StatusBadRequest, "validation_failed", msg, v)
			return
		}
		view.RenderStatus(w, r, http.StatusBadRequest, "signup.html", map[string]any{"Title": "Criar conta", "Error": msg, "Email": c.Email, "Name": c.Name})
		return
	}

	res := h.provider.SignUp(r.Context(), c.Email, c.Password, c.Name)
	if reply(w, r, res) {
		return
	}
	if !res.Success {
		view.RenderStatus(w, r, http.StatusBadRequest, "signup.html", map[string]any{"Title": "Criar conta", "Error": res.Message, "Email": c.Email, "Name": c.Name})
		return
	}
	view.Render(w, r, "login.html", map[string]any{"Title": "Entrar", "Flash": res.Message, "Email": c.Email})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	res := h.provider.SignOut(r.Context(), uid)
	auth.ClearSession(w)
	if reply(w, r, res) {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ResetPassword shows the request form, or the new-password form when the
// link carries a token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		data := map[string]any{"Title": "Recuperar senha"}
		if _, ok := h.provider.(identity.ResetConfirmer); ok {
			if token := r.URL.Query().Get("token"); token != "" {
				data["Token"] = token
			}
		}
		view.Render(w, r, "reset.html", data)
		return
	}

	c, err := readCredentials(r)
	if err != nil {
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "invalid_json", i18n.T("invalid_json"), nil)
		return
	}
	res := h.provider.ResetPassword(r.Context(), c.Email)
	if reply(w, r, res) {
		return
	}
	data := map[string]any{"Title": "Recuperar senha"}
	status := http.StatusOK
	if res.Success {
		data["Flash"] = res.Message
	} else {
		data["Error"] = res.Message
		status = http.StatusBadRequest
	}
	view.RenderStatus(w, r, status, "reset.html", data)
}

// ConfirmReset sets the new password for a reset token.
func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	confirmer, ok := h.provider.(identity.ResetConfirmer)
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, err := readCredentials(r)
	if err != nil {
		httpx.JSONErrorMessage(w, http.StatusBadRequest, "invalid_json", i18n.T("invalid_json"), nil)
		return
	}
	res := confirmer.ConfirmReset(r.Context(), c.Token, c.Password)
	if reply(w, r, res) {
		return
	}
	if !res.Success {
		view.RenderStatus(w, r, http.StatusBadRequest, "reset.html", map[string]any{"Title": "Recuperar senha", "Error": res.Message, "Token": c.Token})
		return
	}
	view.Render(w, r, "login.html", map[string]any{"Title": "Entrar", "Flash": res.Message})
}
