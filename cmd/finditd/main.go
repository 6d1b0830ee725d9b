package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/findit-engine/findit/internal/config"
	"github.com/findit-engine/findit/internal/engine"
	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/memory"
	"github.com/findit-engine/findit/internal/query"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	errMissingPath  = errors.New("missing required \"path\" field")
	errMissingQuery = errors.New("missing required \"q\" parameter")
)

func main() {
	startTime := time.Now()

	memResult := memory.ConfigureFromEnv()
	if memResult.Configured {
		logging.Info("memory: GOMEMLIMIT configured from %s", memResult.Source)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal("configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.NewEngine(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to construct engine: %v", err)
	}

	if err := eng.Start(ctx); err != nil {
		logging.Fatal("failed to start engine: %v", err)
	}
	logging.Info("engine started in %s", time.Since(startTime))

	var srv *http.Server
	if cfg.MetricsEnabled {
		srv = &http.Server{
			Addr:         ":" + cfg.MetricsPort,
			Handler:      setupRouter(eng),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logging.Info("debug/metrics server listening on :%s", cfg.MetricsPort)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("debug/metrics server error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logging.Info("received signal %s, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("debug/metrics server shutdown error: %v", err)
		}
	}

	if err := eng.Shutdown(shutdownCtx); err != nil {
		logging.Warn("engine shutdown error: %v", err)
	}

	logging.Info("shutdown complete")
}

// setupRouter wires the daemon's debug/metrics surface: health and
// Prometheus endpoints plus a minimal control API for folder management
// and search, useful for operating findit without a separate client.
func setupRouter(eng *engine.Engine) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/folders", handleListFolders(eng)).Methods(http.MethodGet)
	api.HandleFunc("/folders", handleAddFolder(eng)).Methods(http.MethodPost)
	api.HandleFunc("/folders", handleRemoveFolder(eng)).Methods(http.MethodDelete)
	api.HandleFunc("/index/cancel", handleCancelIndexing(eng)).Methods(http.MethodPost)
	api.HandleFunc("/search", handleSearch(eng)).Methods(http.MethodGet)

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleListFolders(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folders, err := eng.Folders(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, folders)
	}
}

type addFolderRequest struct {
	Path      string   `json:"path"`
	Excluding []string `json:"excluding"`
}

func handleAddFolder(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addFolderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}
		if req.Path == "" {
			writeJSONError(w, http.StatusBadRequest, errMissingPath)
			return
		}
		if err := eng.AddFolder(r.Context(), req.Path); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}
		eng.QueueFolder(req.Path, req.Excluding)
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleRemoveFolder(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeJSONError(w, http.StatusBadRequest, errMissingPath)
			return
		}
		if err := eng.RemoveFolder(r.Context(), path); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCancelIndexing(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng.CancelIndexing()
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleSearch(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			writeJSONError(w, http.StatusBadRequest, errMissingQuery)
			return
		}
		mode := engine.SearchModeAuto
		if r.URL.Query().Get("mode") == string(engine.SearchModeFTS) {
			mode = engine.SearchModeFTS
		}
		filter := query.Filter{PathPrefix: r.URL.Query().Get("prefix")}
		if folders := r.URL.Query().Get("folders"); folders != "" {
			filter.FolderPaths = strings.Split(folders, ",")
		}
		results, err := eng.Search(r.Context(), q, filter, mode)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
