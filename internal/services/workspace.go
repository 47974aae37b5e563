package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/go-quotes/internal/ids"
	"github.com/diewo77/go-quotes/internal/metrics"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/internal/numbering"
	"github.com/diewo77/go-quotes/internal/persistence"
	"github.com/diewo77/go-quotes/internal/repository"
)

// Options configures workspaces. Zero values select production defaults.
type Options struct {
	IDs     ids.Allocator
	Now     func() time.Time
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = ids.UUID{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Nop{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// QuoteView is a quote together with its resolved parties. A party that
// no longer exists is an empty placeholder.
type QuoteView struct {
	Quote  models.Quote
	Issuer models.Issuer
	Client models.Client
}

// Workspace owns one user's Document. Every operation holds the workspace
// lock, so saves against the same document are serialized.
type Workspace struct {
	mu     sync.Mutex
	slot   string
	doc    *models.Document
	gw     persistence.Gateway
	engine *Engine
	opts   Options
}

// OpenWorkspace loads the document behind gw. A missing or invalid counter
// is recomputed from the stored quotes and written back.
func OpenWorkspace(ctx context.Context, slot string, gw persistence.Gateway, opts Options) (*Workspace, error) {
	opts = opts.withDefaults()
	doc, err := gw.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	w := &Workspace{
		slot:   slot,
		doc:    doc,
		gw:     gw,
		engine: NewEngine(opts.IDs, opts.Now),
		opts:   opts,
	}
	if numbering.Normalize(doc) {
		opts.Logger.Info("recomputed quote counter", "slot", slot, "next", doc.NextQuoteNumber)
		if err := w.persist(ctx, doc); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Slot returns the storage slot the workspace is bound to.
func (w *Workspace) Slot() string { return w.slot }

// Snapshot returns a deep copy of the current document.
func (w *Workspace) Snapshot() *models.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Clone()
}

func (w *Workspace) read() *repository.Repository {
	return repository.New(w.doc)
}

func (w *Workspace) persist(ctx context.Context, doc *models.Document) error {
	start := time.Now()
	err := w.gw.Save(ctx, doc)
	w.opts.Metrics.DocumentSaved(time.Since(start), err)
	if err != nil {
		w.opts.Logger.Error("document save failed", "slot", w.slot, "err", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// mutate runs fn against a copy of the document, persists the copy, and
// only then makes it current. A failed fn or save leaves state untouched.
func (w *Workspace) mutate(ctx context.Context, fn func(doc *models.Document) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := w.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := w.persist(ctx, next); err != nil {
		return err
	}
	w.doc = next
	return nil
}

// ---------------------------------------------------------------------------
// Parties
// ---------------------------------------------------------------------------

func (w *Workspace) Issuers() []models.Issuer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.read().Issuers()
}

func (w *Workspace) Clients() []models.Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.read().Clients()
}

func (w *Workspace) AddIssuer(ctx context.Context, f models.PartyFields) (models.Issuer, error) {
	return w.addParty(ctx, f, (*repository.Repository).AddIssuer)
}

func (w *Workspace) AddClient(ctx context.Context, f models.PartyFields) (models.Client, error) {
	return w.addParty(ctx, f, (*repository.Repository).AddClient)
}

func (w *Workspace) UpdateIssuer(ctx context.Context, id string, f models.PartyFields) (models.Issuer, error) {
	return w.updateParty(ctx, id, f, (*repository.Repository).UpdateIssuer)
}

func (w *Workspace) UpdateClient(ctx context.Context, id string, f models.PartyFields) (models.Client, error) {
	return w.updateParty(ctx, id, f, (*repository.Repository).UpdateClient)
}

// RemoveIssuer deletes the issuer. Quotes referencing it are kept.
func (w *Workspace) RemoveIssuer(ctx context.Context, id string) error {
	return w.mutate(ctx, func(doc *models.Document) error {
		return repository.New(doc).RemoveIssuer(id)
	})
}

// RemoveClient deletes the client. Quotes referencing it are kept.
func (w *Workspace) RemoveClient(ctx context.Context, id string) error {
	return w.mutate(ctx, func(doc *models.Document) error {
		return repository.New(doc).RemoveClient(id)
	})
}

func (w *Workspace) addParty(ctx context.Context, f models.PartyFields, add func(*repository.Repository, models.Party) models.Party) (models.Party, error) {
	f = f.Trimmed()
	if f.Name == "" {
		return models.Party{}, ErrNameRequired
	}
	var out models.Party
	err := w.mutate(ctx, func(doc *models.Document) error {
		p := models.Party{ID: w.opts.IDs.NewID()}
		p.Apply(f)
		out = add(repository.New(doc), p)
		return nil
	})
	return out, err
}

func (w *Workspace) updateParty(ctx context.Context, id string, f models.PartyFields, update func(*repository.Repository, string, models.PartyFields) (models.Party, error)) (models.Party, error) {
	f = f.Trimmed()
	if f.Name == "" {
		return models.Party{}, ErrNameRequired
	}
	var out models.Party
	err := w.mutate(ctx, func(doc *models.Document) error {
		p, err := update(repository.New(doc), id, f)
		out = p
		return err
	})
	return out, err
}

// ---------------------------------------------------------------------------
// Quotes
// ---------------------------------------------------------------------------

// Quotes lists quotes most recent first with their parties resolved.
func (w *Workspace) Quotes() []QuoteView {
	w.mu.Lock()
	defer w.mu.Unlock()
	repo := w.read()
	list := repo.Quotes()
	out := make([]QuoteView, 0, len(list))
	for _, q := range list {
		out = append(out, QuoteView{Quote: q, Issuer: repo.ResolveIssuer(q.IssuerID), Client: repo.ResolveClient(q.ClientID)})
	}
	return out
}

// View returns one quote with its parties resolved.
func (w *Workspace) View(id string) (QuoteView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	repo := w.read()
	q, ok := repo.FindQuote(id)
	if !ok {
		return QuoteView{}, ErrQuoteNotFound
	}
	return QuoteView{Quote: q, Issuer: repo.ResolveIssuer(q.IssuerID), Client: repo.ResolveClient(q.ClientID)}, nil
}

// SaveQuote validates, applies and persists a quote. An empty editingID
// creates a new quote.
func (w *Workspace) SaveQuote(ctx context.Context, in models.QuoteInput, editingID string) (models.Quote, error) {
	editingID = strings.TrimSpace(editingID)
	var res SaveResult
	err := w.mutate(ctx, func(doc *models.Document) error {
		var err error
		res, err = w.engine.SaveQuote(doc, in, editingID)
		return err
	})
	if err != nil {
		w.opts.Metrics.QuoteRejected(Code(err))
		return models.Quote{}, err
	}
	mode := "update"
	if res.Created {
		mode = "create"
	}
	w.opts.Metrics.QuoteSaved(mode)
	w.opts.Logger.Info("quote saved", "slot", w.slot, "id", res.Quote.ID, "number", res.Quote.Number, "mode", mode, "generated", res.Generated)
	return res.Quote, nil
}

func (w *Workspace) RemoveQuote(ctx context.Context, id string) error {
	return w.mutate(ctx, func(doc *models.Document) error {
		return repository.New(doc).RemoveQuote(id)
	})
}

// NextNumber previews the number a quote saved now without an explicit
// number would receive.
func (w *Workspace) NextNumber() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, _ := numbering.Next(w.doc, w.opts.Now())
	return n
}

// Renumber resets the counter from the stored quote numbers and returns
// the new value.
func (w *Workspace) Renumber(ctx context.Context) (int, error) {
	var next int
	err := w.mutate(ctx, func(doc *models.Document) error {
		doc.NextQuoteNumber = numbering.Recompute(doc.Quotes)
		next = doc.NextQuoteNumber
		return nil
	})
	return next, err
}
