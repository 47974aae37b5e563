package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-quotes/internal/ids"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/persistence"
)

// flakyGateway wraps a gateway and fails saves while fail is set.
type flakyGateway struct {
	persistence.Gateway
	mu    sync.Mutex
	fail  bool
	saves int
}

func (g *flakyGateway) Save(ctx context.Context, doc *models.Document) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return errors.New("disk full")
	}
	g.saves++
	return g.Gateway.Save(ctx, doc)
}

func testOptions() Options {
	return Options{IDs: ids.Sequence("id"), Now: func() time.Time { return fixedNow }}
}

func openTestWorkspace(t *testing.T) (*Workspace, *flakyGateway) {
	t.Helper()
	gw := &flakyGateway{Gateway: persistence.NewMemory().Gateway("u1")}
	w, err := OpenWorkspace(context.Background(), "u1", gw, testOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return w, gw
}

func TestWorkspace_EndToEnd(t *testing.T) {
	ctx := context.Background()
	w, gw := openTestWorkspace(t)

	iss, err := w.AddIssuer(ctx, models.PartyFields{Name: " ACME ", TaxID: "12"})
	if err != nil {
		t.Fatalf("add issuer: %v", err)
	}
	if iss.Name != "ACME" || iss.ID == "" {
		t.Fatalf("unexpected issuer %+v", iss)
	}
	cli, err := w.AddClient(ctx, models.PartyFields{Name: "Bob"})
	if err != nil {
		t.Fatalf("add client: %v", err)
	}
	if got := w.NextNumber(); got != "2025-0001" {
		t.Fatalf("expected preview 2025-0001 got %s", got)
	}

	q, err := w.SaveQuote(ctx, models.QuoteInput{
		IssuerID: iss.ID, ClientID: cli.ID,
		Items: []models.LineItem{{Description: "A", Quantity: 2, UnitPrice: 150}},
	}, "")
	if err != nil {
		t.Fatalf("save quote: %v", err)
	}
	if q.Number != "2025-0001" || q.Total != 300 {
		t.Fatalf("unexpected quote %+v", q)
	}

	reloaded, err := gw.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Quotes) != 1 || reloaded.NextQuoteNumber != 2 {
		t.Fatalf("expected persisted quote and counter 2 got %+v", reloaded)
	}

	if err := w.RemoveIssuer(ctx, iss.ID); err != nil {
		t.Fatalf("remove issuer: %v", err)
	}
	v, err := w.View(q.ID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !v.Issuer.IsPlaceholder() || v.Client.Name != "Bob" {
		t.Fatalf("expected placeholder issuer and resolved client got %+v", v)
	}
	if list := w.Quotes(); len(list) != 1 || list[0].Quote.ID != q.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := w.RemoveQuote(ctx, q.ID); err != nil {
		t.Fatalf("remove quote: %v", err)
	}
	if _, err := w.View(q.ID); !errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("expected ErrQuoteNotFound got %v", err)
	}
}

func TestWorkspace_PartyValidation(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t)
	if _, err := w.AddClient(ctx, models.PartyFields{Name: "   "}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired got %v", err)
	}
	if _, err := w.UpdateClient(ctx, "nope", models.PartyFields{Name: "x"}); !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound got %v", err)
	}
	if err := w.RemoveIssuer(ctx, "nope"); !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound got %v", err)
	}
	c, _ := w.AddClient(ctx, models.PartyFields{Name: "Bob"})
	up, err := w.UpdateClient(ctx, c.ID, models.PartyFields{Name: "Robert", Phone: "9"})
	if err != nil || up.Name != "Robert" || up.Phone != "9" || up.ID != c.ID {
		t.Fatalf("update: %v %+v", err, up)
	}
}

func TestWorkspace_PersistenceFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	w, gw := openTestWorkspace(t)
	iss, _ := w.AddIssuer(ctx, models.PartyFields{Name: "ACME"})
	cli, _ := w.AddClient(ctx, models.PartyFields{Name: "Bob"})

	gw.mu.Lock()
	gw.fail = true
	gw.mu.Unlock()

	_, err := w.SaveQuote(ctx, models.QuoteInput{IssuerID: iss.ID, ClientID: cli.ID, Items: []models.LineItem{{Description: "A", Quantity: 1}}}, "")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence got %v", err)
	}
	snap := w.Snapshot()
	if len(snap.Quotes) != 0 || snap.NextQuoteNumber != 1 {
		t.Fatalf("failed save leaked into memory: %+v", snap)
	}
}

func TestWorkspace_ConcurrentSavesGetDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	gw := &flakyGateway{Gateway: persistence.NewMemory().Gateway("u1")}
	w, err := OpenWorkspace(ctx, "u1", gw, Options{Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	iss, _ := w.AddIssuer(ctx, models.PartyFields{Name: "ACME"})
	cli, _ := w.AddClient(ctx, models.PartyFields{Name: "Bob"})

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := w.SaveQuote(ctx, models.QuoteInput{
				IssuerID: iss.ID, ClientID: cli.ID,
				Items: []models.LineItem{{Description: fmt.Sprintf("item %d", i), Quantity: 1, UnitPrice: 1}},
			}, "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	seen := map[string]bool{}
	for _, v := range w.Quotes() {
		if seen[v.Quote.Number] {
			t.Fatalf("duplicate number %s", v.Quote.Number)
		}
		seen[v.Quote.Number] = true
	}
	if snap := w.Snapshot(); snap.NextQuoteNumber != n+1 {
		t.Fatalf("expected counter %d got %d", n+1, snap.NextQuoteNumber)
	}
}

func TestOpenWorkspace_RepairsCounter(t *testing.T) {
	ctx := context.Background()
	mem := persistence.NewMemory()
	legacy := models.NewDocument()
	legacy.NextQuoteNumber = 0
	legacy.Quotes = append(legacy.Quotes, models.Quote{ID: "q", Number: "2024-0041"})
	if err := mem.Gateway("u1").Save(ctx, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w, err := OpenWorkspace(ctx, "u1", mem.Gateway("u1"), testOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := w.Snapshot().NextQuoteNumber; got != 42 {
		t.Fatalf("expected repaired counter 42 got %d", got)
	}
	stored, _ := mem.Gateway("u1").Load(ctx)
	if stored.NextQuoteNumber != 42 {
		t.Fatalf("repaired counter not written back: %d", stored.NextQuoteNumber)
	}
}

// rawGateway loads a fixed stored payload.
type rawGateway struct {
	payload string
	saved   *models.Document
}

func (g *rawGateway) Load(context.Context) (*models.Document, error) {
	doc := &models.Document{}
	if err := json.Unmarshal([]byte(g.payload), doc); err != nil {
		return nil, err
	}
	doc.EnsureSlices()
	return doc, nil
}

func (g *rawGateway) Save(_ context.Context, doc *models.Document) error {
	g.saved = doc.Clone()
	return nil
}

func TestOpenWorkspace_RepairsCorruptCounter(t *testing.T) {
	gw := &rawGateway{payload: `{"issuers":[{"id":"i1","name":"ACME"}],"quotes":[{"id":"q","number":"2024-0003"}],"nextQuoteNumber":"abc"}`}
	w, err := OpenWorkspace(context.Background(), "u1", gw, testOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := w.Snapshot().NextQuoteNumber; got != 4 {
		t.Fatalf("expected counter 4 got %d", got)
	}
	if len(w.Issuers()) != 1 || gw.saved == nil || gw.saved.NextQuoteNumber != 4 {
		t.Fatalf("expected records kept and counter written back")
	}
}

func TestWorkspace_Renumber(t *testing.T) {
	ctx := context.Background()
	w, _ := openTestWorkspace(t)
	iss, _ := w.AddIssuer(ctx, models.PartyFields{Name: "ACME"})
	cli, _ := w.AddClient(ctx, models.PartyFields{Name: "Bob"})
	if _, err := w.SaveQuote(ctx, models.QuoteInput{IssuerID: iss.ID, ClientID: cli.ID, Number: "X-0050", Items: []models.LineItem{{Description: "A", Quantity: 1}}}, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	next, err := w.Renumber(ctx)
	if err != nil || next != 51 {
		t.Fatalf("expected 51 got %d (%v)", next, err)
	}
}

func TestWorkspaces_CachesPerSlot(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspaces(persistence.NewMemory(), testOptions())
	a1, err := ws.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	a2, _ := ws.Get(ctx, "a")
	b, _ := ws.Get(ctx, "b")
	if a1 != a2 {
		t.Fatalf("expected cached workspace")
	}
	if a1 == b || b.Slot() != "b" {
		t.Fatalf("expected distinct workspace per slot")
	}
	ws.Forget("a")
	a3, _ := ws.Get(ctx, "a")
	if a3 == a1 {
		t.Fatalf("expected reload after Forget")
	}
}
