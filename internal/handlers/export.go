package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/internal/blob"
	"github.com/diewo77/go-quotes/internal/export"
	"github.com/diewo77/go-quotes/internal/services"
)

// ExportHandler serves the CSV export and, when an archive store is
// configured, keeps a copy of every export in it.
type ExportHandler struct {
	ws      *services.Workspaces
	archive blob.Store
	now     func() time.Time
}

// NewExportHandler returns a handler. archive may be nil.
func NewExportHandler(ws *services.Workspaces, archive blob.Store) *ExportHandler {
	return &ExportHandler{ws: ws, archive: archive, now: time.Now}
}

func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	wsp, err := workspace(h.ws, r)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.CSV(&buf, wsp.Snapshot()); err != nil {
		writeJSONError(w, r, err)
		return
	}

	if h.archive != nil {
		uid, _ := auth.UserIDFromContext(r.Context())
		key := "exports/" + blob.SafeSegment(uid) + "/" + h.now().UTC().Format("20060102T150405Z") + "-orcamentos.csv"
		// A failed archive copy does not fail the download.
		if loc, err := h.archive.Put(r.Context(), key, "text/csv", buf.Bytes()); err != nil {
			slog.WarnContext(r.Context(), "export archive failed", "key", key, "err", err)
		} else {
			slog.InfoContext(r.Context(), "export archived", "location", loc)
		}
	}

	attachment(w, "text/csv; charset=utf-8", "orcamentos.csv")
	buf.WriteTo(w)
}
