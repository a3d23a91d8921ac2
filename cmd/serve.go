package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdg-tools/crosswalk-cli/internal/fixture"
	"github.com/sdg-tools/crosswalk-cli/internal/record"
)

var servePort int

// serverState owns the record store behind the HTTP API. The engines are
// synchronous and single-owner; the mutex serializes handler access.
type serverState struct {
	mu    sync.Mutex
	store *record.Store
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the record explorer and rate calculator over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st := &serverState{store: record.NewStore()}

		// Load the default collection. A fixture failure degrades to an
		// empty explorer rather than refusing to start.
		fetcher := fixture.NewFetcher(time.Duration(cfg.Fixtures.TimeoutSecs) * time.Second)
		records, err := fetcher.LoadCrosswalk(ctx, cfg.Fixtures.Crosswalk)
		if err != nil {
			zap.L().Error("fixture load failed, starting with empty collection",
				zap.String("source", cfg.Fixtures.Crosswalk),
				zap.Error(err),
			)
		} else {
			st.store.Load(records)
			zap.L().Info("collection loaded",
				zap.String("source", cfg.Fixtures.Crosswalk),
				zap.Int("records", st.store.Len()),
			)
		}

		router := newRouter(st, cfg.Server.AllowedOrigins)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the API routes.
func newRouter(st *serverState, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/records", st.handleListRecords)
		r.Patch("/records/{identity}", st.handleEditRecord)
		r.Get("/fields", st.handleFields)
		r.Put("/filters", st.handleSetFilters)
		r.Delete("/filters", st.handleClearFilters)
		r.Post("/import", st.handleImport)
		r.Get("/export", st.handleExport)
		r.Get("/rates", handleRates)
	})

	return r
}

func (st *serverState) handleListRecords(w http.ResponseWriter, req *http.Request) {
	st.mu.Lock()
	entries := st.store.VisibleEntries()
	st.mu.Unlock()

	writeJSON(w, http.StatusOK, entries)
}

func (st *serverState) handleFields(w http.ResponseWriter, req *http.Request) {
	st.mu.Lock()
	resp := struct {
		Fields     []string        `json:"fields"`
		Visibility map[string]bool `json:"visibility"`
	}{
		Fields:     st.store.KnownFields(),
		Visibility: st.store.Visibility(),
	}
	st.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (st *serverState) handleSetFilters(w http.ResponseWriter, req *http.Request) {
	var state record.FilterState
	if err := json.NewDecoder(req.Body).Decode(&state); err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter body")
		return
	}

	st.mu.Lock()
	st.store.SetFilter(state)
	count := len(st.store.VisibleRecords())
	st.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{"visible": count})
}

func (st *serverState) handleClearFilters(w http.ResponseWriter, req *http.Request) {
	st.mu.Lock()
	st.store.ClearFilters()
	st.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleEditRecord runs a full edit session: begin, apply the body's field
// values to the draft, commit.
func (st *serverState) handleEditRecord(w http.ResponseWriter, req *http.Request) {
	identity := chi.URLParam(req, "identity")
	if unescaped, err := url.PathUnescape(identity); err == nil {
		identity = unescaped
	}

	dec := json.NewDecoder(req.Body)
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid edit body")
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, err := st.store.BeginEdit(identity); err != nil {
		switch {
		case eris.Is(err, record.ErrRecordNotFound):
			writeError(w, http.StatusNotFound, "record not found")
		case eris.Is(err, record.ErrEditSessionConflict):
			writeError(w, http.StatusConflict, "another edit session is open")
		default:
			writeError(w, http.StatusInternalServerError, "begin edit failed")
		}
		return
	}

	// Apply in sorted order so fields introduced by one body join the
	// record (and the field universe) deterministically.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := st.store.SetDraftField(name, fields[name]); err != nil {
			st.store.CancelEdit()
			writeError(w, http.StatusInternalServerError, "draft update failed")
			return
		}
	}

	if err := st.store.CommitEdit(); err != nil {
		writeError(w, http.StatusInternalServerError, "commit failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "committed", "identity": identity})
}

func (st *serverState) handleImport(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}

	records, err := record.ImportCollection(data)
	if err != nil {
		// Prior collection stays untouched.
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return
	}

	st.mu.Lock()
	st.store.Load(records)
	count := st.store.Len()
	st.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

func (st *serverState) handleExport(w http.ResponseWriter, req *http.Request) {
	st.mu.Lock()
	snapshot := st.store.ExportSnapshot()
	st.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "marshal failed")
		return
	}

	name := fmt.Sprintf("exported-data-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func handleRates(w http.ResponseWriter, req *http.Request) {
	report, err := computeRatesReport(req.Context(), fixture.RateSources{
		BuiltUpT:    cfg.Fixtures.BuiltUpT,
		BuiltUpTN:   cfg.Fixtures.BuiltUpTN,
		AdminUnit:   cfg.Fixtures.AdminUnit,
		Populations: cfg.Fixtures.Populations,
	})
	if err != nil {
		zap.L().Error("rate fixture load failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "rate fixtures unavailable")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
