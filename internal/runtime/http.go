package runtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/vibeinventory/partsvoice/internal/csvio"
	"github.com/vibeinventory/partsvoice/internal/inventory"
	"github.com/vibeinventory/partsvoice/internal/session"
)

// api is the small operational surface over the orchestrator and the store.
// It mirrors the controls a voice UI would offer.
type api struct {
	orchestrator *session.Orchestrator
	store        *inventory.Store
	logger       *slog.Logger
}

func newAPI(orchestrator *session.Orchestrator, store *inventory.Store, logger *slog.Logger) *api {
	return &api{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger.With(slog.String("component", "http-api")),
	}
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/session", a.handleSession)
	mux.HandleFunc("POST /v1/session/start", a.handleStart)
	mux.HandleFunc("POST /v1/session/stop", a.handleStop)
	mux.HandleFunc("POST /v1/session/clear", a.handleClear)
	mux.HandleFunc("POST /v1/session/transcript", a.handleTranscript)
	mux.HandleFunc("GET /v1/inventory", a.handleInventory)
	mux.HandleFunc("GET /v1/inventory/export", a.handleExport)
	mux.HandleFunc("POST /v1/inventory/import", a.handleImport)
}

func (a *api) handleSession(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.orchestrator.Current())
}

func (a *api) handleStart(w http.ResponseWriter, _ *http.Request) {
	if err := a.orchestrator.Start(); err != nil {
		a.writeError(w, http.StatusConflict, err)
		return
	}
	a.writeJSON(w, http.StatusAccepted, a.orchestrator.Current())
}

func (a *api) handleStop(w http.ResponseWriter, _ *http.Request) {
	a.orchestrator.Stop()
	a.writeJSON(w, http.StatusOK, a.orchestrator.Current())
}

func (a *api) handleClear(w http.ResponseWriter, _ *http.Request) {
	a.orchestrator.ClearResponse()
	a.writeJSON(w, http.StatusOK, a.orchestrator.Current())
}

func (a *api) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.orchestrator.SubmitTranscript(body.Text); err != nil {
		a.writeError(w, http.StatusConflict, err)
		return
	}
	a.writeJSON(w, http.StatusAccepted, a.orchestrator.Current())
}

func (a *api) handleInventory(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.store.Snapshot(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, snapshot)
}

func (a *api) handleExport(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.store.Snapshot(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.csv"`)
	_, _ = w.Write([]byte(csvio.Encode(snapshot)))
}

func (a *api) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	text := string(data)
	if err := csvio.ValidateHeader(text); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	items, skipped := csvio.Decode(text)
	imported := 0
	for _, item := range items {
		if _, err := a.store.Add(r.Context(), item); err != nil {
			a.logger.Warn("failed to import item", slog.String("name", item.Name), slog.String("error", err.Error()))
			skipped++
			continue
		}
		imported++
	}
	a.writeJSON(w, http.StatusOK, map[string]int{"imported": imported, "skipped": skipped})
}

func (a *api) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}
