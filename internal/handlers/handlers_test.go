package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/internal/identity"
	"github.com/diewo77/go-quotes/internal/ids"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/persistence"
	"github.com/diewo77/go-quotes/internal/services"
)

const testUser = "local:1"

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	fail bool
}

func (a *fakeArchive) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return "", errors.New("bucket unavailable")
	}
	a.keys = append(a.keys, key)
	return "mem://" + key, nil
}

type testServer struct {
	mux     *http.ServeMux
	ws      *services.Workspaces
	archive *fakeArchive
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
	ws := services.NewWorkspaces(persistence.NewMemory(), services.Options{IDs: ids.Sequence("id"), Now: now})
	archive := &fakeArchive{}

	dash := NewDashboardHandler(ws)
	quotes := NewQuoteHandler(ws)
	issuers := NewIssuerHandler(ws)
	clients := NewClientHandler(ws)
	exports := NewExportHandler(ws, archive)
	exports.now = now

	mux := http.NewServeMux()
	mux.HandleFunc("GET /app", dash.App)
	mux.HandleFunc("GET /issuers", issuers.List)
	mux.HandleFunc("POST /issuers", issuers.Create)
	mux.HandleFunc("POST /issuers/{id}", issuers.Update)
	mux.HandleFunc("POST /issuers/{id}/delete", issuers.Delete)
	mux.HandleFunc("POST /clients", clients.Create)
	mux.HandleFunc("GET /quotes", quotes.List)
	mux.HandleFunc("POST /quotes", quotes.Create)
	mux.HandleFunc("GET /quotes/next-number", quotes.NextNumber)
	mux.HandleFunc("GET /quotes/{id}", quotes.View)
	mux.HandleFunc("POST /quotes/{id}", quotes.Update)
	mux.HandleFunc("POST /quotes/{id}/delete", quotes.Delete)
	mux.HandleFunc("GET /quotes/{id}/print", quotes.Print)
	mux.HandleFunc("GET /quotes/{id}/doc", quotes.DOC)
	mux.HandleFunc("GET /quotes/{id}/pdf", quotes.PDF)
	mux.HandleFunc("GET /export/quotes.csv", exports.CSV)
	return &testServer{mux: mux, ws: ws, archive: archive}
}

func (s *testServer) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if contentType == "application/json" {
		req.Header.Set("Accept", "application/json")
	}
	req = req.WithContext(auth.WithUserID(req.Context(), testUser))
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) json(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, target, "application/json", body)
}

func (s *testServer) form(t *testing.T, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, http.MethodPost, target, "application/x-www-form-urlencoded", values.Encode())
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

// seedParties creates issuer id1 and client id2.
func (s *testServer) seedParties(t *testing.T) {
	t.Helper()
	if rr := s.json(t, http.MethodPost, "/issuers", `{"name":" ACME ","taxId":"12.345.678/0001-90"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create issuer: %d %s", rr.Code, rr.Body)
	}
	if rr := s.json(t, http.MethodPost, "/clients", `{"name":"Fulano"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create client: %d %s", rr.Code, rr.Body)
	}
}

func TestQuoteJSONLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.seedParties(t)

	rr := s.json(t, http.MethodGet, "/quotes/next-number", "")
	if got := decode[map[string]string](t, rr)["number"]; got != "2025-0001" {
		t.Fatalf("next number = %q", got)
	}

	rr = s.json(t, http.MethodPost, "/quotes", `{"issuerId":"id1","clientId":"id2","items":[{"description":"Pintura","quantity":2,"unitPrice":7.5},{"description":"  ","quantity":9,"unitPrice":9}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body)
	}
	q := decode[models.Quote](t, rr)
	if q.Number != "2025-0001" || q.Total != 15 || len(q.Items) != 1 {
		t.Fatalf("unexpected quote %+v", q)
	}

	rr = s.json(t, http.MethodPost, "/quotes", `{"issuerId":"id1","clientId":"id2","number":"2025-0001","items":[{"description":"x","quantity":1,"unitPrice":1}]}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d %s", rr.Code, rr.Body)
	}
	if got := decode[map[string]string](t, rr)["error"]; got != "duplicate_number_for_issuer" {
		t.Fatalf("error code = %q", got)
	}

	rr = s.json(t, http.MethodPost, "/quotes/"+q.ID, `{"issuerId":"id1","clientId":"id2","number":"2025-0001","items":[{"description":"Pintura","quantity":3,"unitPrice":10}],"notes":"revisado"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rr.Code, rr.Body)
	}

	rr = s.json(t, http.MethodGet, "/quotes/"+q.ID, "")
	view := decode[map[string]any](t, rr)
	if view["total"].(float64) != 30 || view["issuer"].(map[string]any)["name"] != "ACME" {
		t.Fatalf("view = %v", view)
	}

	rr = s.json(t, http.MethodGet, "/quotes", "")
	if list := decode[[]map[string]any](t, rr); len(list) != 1 {
		t.Fatalf("list = %v", list)
	}

	if rr = s.json(t, http.MethodPost, "/quotes/"+q.ID+"/delete", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr = s.json(t, http.MethodGet, "/quotes/"+q.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted quote: %d", rr.Code)
	}
}

func TestQuoteJSONDefaultsQuantity(t *testing.T) {
	s := newTestServer(t)
	s.seedParties(t)

	rr := s.json(t, http.MethodPost, "/quotes", `{"issuerId":"id1","clientId":"id2","items":[{"description":"Visita","unitPrice":50}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body)
	}
	q := decode[models.Quote](t, rr)
	if len(q.Items) != 1 || q.Items[0].Quantity != 1 || q.Total != 50 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestQuoteValidationStatuses(t *testing.T) {
	s := newTestServer(t)
	s.seedParties(t)

	cases := []struct {
		name, body, code string
		status           int
	}{
		{"missing selection", `{"clientId":"id2","items":[{"description":"a","quantity":1,"unitPrice":1}]}`, "missing_selection", http.StatusBadRequest},
		{"no items", `{"issuerId":"id1","clientId":"id2","items":[{"description":""}]}`, "no_valid_items", http.StatusBadRequest},
		{"negative", `{"issuerId":"id1","clientId":"id2","items":[{"description":"a","quantity":-1,"unitPrice":1}]}`, "invalid_amount", http.StatusBadRequest},
		{"overflow", `{"issuerId":"id1","clientId":"id2","items":[{"description":"a","quantity":1e200,"unitPrice":1e200}]}`, "invalid_amount", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := s.json(t, http.MethodPost, "/quotes", tc.body)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			body := decode[map[string]any](t, rr)
			if body["error"] != tc.code || body["message"] == "" {
				t.Fatalf("body = %v", body)
			}
		})
	}

	rr := s.json(t, http.MethodPost, "/quotes", `{"issuerId":"id1","clientId":"id2","items":[{"description":"a","quantity":1,"unitPrice":-2}]}`)
	details := decode[map[string]any](t, rr)["details"].(map[string]any)
	if details["items.0.unitPrice"] != "must_be_non_negative" || details["items.0.quantity"] != nil {
		t.Fatalf("details = %v", details)
	}

	if rr := s.json(t, http.MethodPost, "/quotes/missing", `{"issuerId":"id1","clientId":"id2","items":[{"description":"a","quantity":1,"unitPrice":1}]}`); rr.Code != http.StatusNotFound {
		t.Fatalf("edit missing: %d", rr.Code)
	}
	if rr := s.json(t, http.MethodPost, "/quotes", `{"issuerId":`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rr.Code)
	}
}

func TestQuoteFormFlow(t *testing.T) {
	s := newTestServer(t)
	s.seedParties(t)

	form := url.Values{
		"issuer_id":   {"id1"},
		"client_id":   {"id2"},
		"description": {"Pintura", "", "Reparo"},
		"quantity":    {"2", "", "1"},
		"unit_price":  {"7,50", "", "1.000,00"},
	}
	rr := s.form(t, "/quotes", form)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/app?ok=quote_saved" {
		t.Fatalf("create: %d %s", rr.Code, rr.Header().Get("Location"))
	}
	wsp, err := s.ws.Get(context.Background(), testUser)
	if err != nil {
		t.Fatal(err)
	}
	list := wsp.Quotes()
	if len(list) != 1 || list[0].Quote.Total != 1015 || len(list[0].Quote.Items) != 2 {
		t.Fatalf("stored %+v", list)
	}

	form.Set("issuer_id", "")
	rr = s.form(t, "/quotes", form)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing issuer: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Selecione emissor e cliente.") {
		t.Fatalf("form error not shown")
	}
	if !strings.Contains(rr.Body.String(), `value="Reparo"`) {
		t.Fatalf("submitted items not kept in the form")
	}

	form.Set("issuer_id", "id1")
	form["quantity"] = []string{"abc", "", "1"}
	if rr = s.form(t, "/quotes", form); rr.Code != http.StatusBadRequest {
		t.Fatalf("unparsable quantity: %d", rr.Code)
	}
}

func TestDashboardRenders(t *testing.T) {
	s := newTestServer(t)
	s.seedParties(t)
	s.json(t, http.MethodPost, "/quotes", `{"issuerId":"id1","clientId":"id2","items":[{"description":"Pintura","quantity":1,"unitPrice":10}]}`)

	rr := s.do(t, http.MethodGet, "/app?edit_quote=id3&edit_client=id2&ok=quote_saved", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("app: %d %s", rr.Code, rr.Body)
	}
	body := rr.Body.String()
	for _, want := range []string{"ACME", "Fulano", "2025-0001", "Orçamento salvo.", `action="/quotes/id3"`, `action="/clients/id2"`, "2025-0002"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	rr = s.json(t, http.MethodGet, "/app", "")
	state := decode[map[string]any](t, rr)
	if state["nextNumber"] != "2025-0002" || len(state["quotes"].([]any)) != 1 {
		t.Fatalf("state = %v", state)
	}
}

func TestPartyHandlers(t *testing.T) {
	s := newTestServer(t)
	s.seedParties(t)

	rr := s.json(t, http.MethodPost, "/issuers", `{"name":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("blank name: %d", rr.Code)
	}
	rr = s.form(t, "/issuers", url.Values{"name": {""}})
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "Informe o nome.") {
		t.Fatalf("blank form name: %d", rr.Code)
	}

	rr = s.form(t, "/issuers/id1", url.Values{"name": {"ACME Ltda"}, "phone": {"1199"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("update: %d", rr.Code)
	}
	list := decode[[]models.Party](t, s.json(t, http.MethodGet, "/issuers", ""))
	if len(list) != 1 || list[0].Name != "ACME Ltda" || list[0].Phone != "1199" || list[0].TaxID != "" {
		t.Fatalf("issuers = %+v", list)
	}

	if rr = s.json(t, http.MethodPost, "/issuers/nope", `{"name":"x"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("update missing: %d", rr.Code)
	}
	if rr = s.json(t, http.MethodPost, "/issuers/id1/delete", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr = s.json(t, http.MethodPost, "/issuers/id1/delete", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("delete again: %d", rr.Code)
	}
}

func TestDocumentDownloads(t *testing.T) {
	s := newTestServer(t)
	s.seedParties(t)
	s.json(t, http.MethodPost, "/quotes", `{"issuerId":"id1","clientId":"id2","items":[{"description":"Pintura","quantity":1,"unitPrice":10}]}`)

	rr := s.do(t, http.MethodGet, "/quotes/id3/print", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Orçamento 2025-0001") {
		t.Fatalf("print: %d", rr.Code)
	}
	rr = s.do(t, http.MethodGet, "/quotes/id3/doc", "", "")
	if rr.Header().Get("Content-Type") != "application/msword" || !strings.Contains(rr.Header().Get("Content-Disposition"), "orcamento-2025-0001.doc") {
		t.Fatalf("doc headers: %v", rr.Header())
	}
	rr = s.do(t, http.MethodGet, "/quotes/id3/pdf", "", "")
	if rr.Header().Get("Content-Type") != "application/pdf" || !strings.HasPrefix(rr.Body.String(), "%PDF-") {
		t.Fatalf("pdf: %v", rr.Header())
	}
	if rr = s.do(t, http.MethodGet, "/quotes/nope/pdf", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing pdf: %d", rr.Code)
	}
}

func TestExportCSVArchives(t *testing.T) {
	s := newTestServer(t)
	s.seedParties(t)
	s.json(t, http.MethodPost, "/quotes", `{"issuerId":"id1","clientId":"id2","items":[{"description":"Pintura","quantity":1,"unitPrice":10}]}`)

	rr := s.do(t, http.MethodGet, "/export/quotes.csv", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("csv: %d", rr.Code)
	}
	rows, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil || len(rows) != 2 || rows[1][0] != "2025-0001" {
		t.Fatalf("rows = %v (%v)", rows, err)
	}
	if len(s.archive.keys) != 1 || s.archive.keys[0] != "exports/local_1/20250615T100000Z-orcamentos.csv" {
		t.Fatalf("archived keys = %v", s.archive.keys)
	}

	s.archive.fail = true
	if rr = s.do(t, http.MethodGet, "/export/quotes.csv", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("archive failure should not fail the download: %d", rr.Code)
	}
}

func TestNoSession(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/quotes/next-number", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type fakeProvider struct {
	signedOut string
	tokens    map[string]bool
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) identity.Result {
	if email == "a@b.c" && password == "secret" {
		return identity.Result{Success: true, Message: "ok", UserID: "local:7"}
	}
	return identity.Result{Message: "Email ou senha incorretos"}
}

func (p *fakeProvider) SignUp(_ context.Context, email, password, _ string) identity.Result {
	if email == "" || password == "" {
		return identity.Result{Message: "Email e senha são obrigatórios."}
	}
	return identity.Result{Success: true, Message: "Conta criada!", UserID: "local:8"}
}

func (p *fakeProvider) SignOut(_ context.Context, userID string) identity.Result {
	p.signedOut = userID
	return identity.Result{Success: true, Message: "bye"}
}

func (p *fakeProvider) ResetPassword(context.Context, string) identity.Result {
	return identity.Result{Success: true, Message: "Se o email estiver cadastrado"}
}

func (p *fakeProvider) ConfirmReset(_ context.Context, token, _ string) identity.Result {
	if p.tokens[token] {
		delete(p.tokens, token)
		return identity.Result{Success: true, Message: "Senha alterada"}
	}
	return identity.Result{Message: "Link inválido"}
}

func newAuthMux(p identity.Provider) *http.ServeMux {
	h := NewAuthHandler(p)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", h.Login)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /signup", h.Signup)
	mux.Handle("POST /logout", auth.Middleware(http.HandlerFunc(h.Logout)))
	mux.HandleFunc("GET /reset-password", h.ResetPassword)
	mux.HandleFunc("POST /reset-password", h.ResetPassword)
	mux.HandleFunc("POST /reset-password/confirm", h.ConfirmReset)
	return mux
}

func postForm(mux http.Handler, target string, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestLoginSetsSession(t *testing.T) {
	mux := newAuthMux(&fakeProvider{})

	rr := postForm(mux, "/login", url.Values{"email": {"a@b.c"}, "password": {"wrong"}})
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "Email ou senha incorretos") {
		t.Fatalf("bad login: %d", rr.Code)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("failed login must not set a session")
	}

	rr = postForm(mux, "/login", url.Values{"email": {"a@b.c"}, "password": {"secret"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/app" {
		t.Fatalf("login: %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	if uid, ok := auth.ParseSession(req); !ok || uid != "local:7" {
		t.Fatalf("session user = %q %v", uid, ok)
	}
}

func TestLoginJSON(t *testing.T) {
	mux := newAuthMux(&fakeProvider{})
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.c","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	res := decode[identity.Result](t, rr)
	if !res.Success || res.UserID != "local:7" {
		t.Fatalf("result = %+v", res)
	}
}

func TestSignupThenLogout(t *testing.T) {
	p := &fakeProvider{}
	mux := newAuthMux(p)

	rr := postForm(mux, "/signup", url.Values{"email": {""}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("signup missing: %d", rr.Code)
	}
	rr = postForm(mux, "/signup", url.Values{"email": {"not-an-email"}, "password": {"x"}})
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "ao menos 6 caracteres") {
		t.Fatalf("signup invalid: %d", rr.Code)
	}
	rr = postForm(mux, "/signup", url.Values{"email": {"n@b.c"}, "password": {"secret1"}, "name": {"N"}})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Conta criada!") {
		t.Fatalf("signup: %d", rr.Code)
	}

	login := postForm(mux, "/login", url.Values{"email": {"a@b.c"}, "password": {"secret"}})
	rr = postForm(mux, "/logout", nil, login.Result().Cookies()...)
	if rr.Code != http.StatusSeeOther || p.signedOut != "local:7" {
		t.Fatalf("logout: %d signedOut=%q", rr.Code, p.signedOut)
	}
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Value == "" && c.Expires.Before(time.Now()) {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("session cookie not cleared")
	}
}

func TestResetPasswordFlow(t *testing.T) {
	p := &fakeProvider{tokens: map[string]bool{"tok": true}}
	mux := newAuthMux(p)

	req := httptest.NewRequest(http.MethodGet, "/reset-password?token=tok", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), `action="/reset-password/confirm"`) {
		t.Fatal("token link should show the new password form")
	}

	rr = postForm(mux, "/reset-password", url.Values{"email": {"a@b.c"}})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Se o email estiver cadastrado") {
		t.Fatalf("reset request: %d", rr.Code)
	}

	rr = postForm(mux, "/reset-password/confirm", url.Values{"token": {"tok"}, "password": {"new"}})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Senha alterada") {
		t.Fatalf("confirm: %d", rr.Code)
	}
	rr = postForm(mux, "/reset-password/confirm", url.Values{"token": {"tok"}, "password": {"new"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("reused token: %d", rr.Code)
	}
}
