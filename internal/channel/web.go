package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"stepone/internal/domain"
)

const maxBodySize = 1 << 20 // 1MB

// PlanHandler is what the web channel needs from the relay.
type PlanHandler interface {
	Handle(ctx context.Context, req domain.PlanRequest) domain.PlanResponse
}

// Web serves the browser front end: the static files under /public/, the
// root redirect, and the /api/plan endpoint.
type Web struct {
	host      string
	port      int
	publicDir string
	relay     PlanHandler
	store     domain.PlanStore // optional, enables /api/history
	metricsEP string           // optional metrics endpoint path
	metricsH  http.Handler
	logger    *slog.Logger
	server    *http.Server
	version   string
}

type WebConfig struct {
	Host            string
	Port            int
	PublicDir       string
	Relay           PlanHandler
	Store           domain.PlanStore
	MetricsEndpoint string
	MetricsHandler  http.Handler
	Logger          *slog.Logger
	Version         string
}

func NewWeb(cfg WebConfig) *Web {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = "public"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Web{
		host:      cfg.Host,
		port:      cfg.Port,
		publicDir: cfg.PublicDir,
		relay:     cfg.Relay,
		store:     cfg.Store,
		metricsEP: cfg.MetricsEndpoint,
		metricsH:  cfg.MetricsHandler,
		logger:    cfg.Logger,
		version:   cfg.Version,
	}
}

func (w *Web) Name() string { return "web" }

func (w *Web) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", w.handleRoot)
	mux.Handle("GET /public/", http.StripPrefix("/public/", http.FileServer(http.Dir(w.publicDir))))
	mux.HandleFunc("POST /api/plan", w.handlePlan)
	mux.HandleFunc("GET /status", w.handleStatus)

	if w.store != nil {
		mux.HandleFunc("GET /api/history", w.handleHistory)
	}
	if w.metricsH != nil && w.metricsEP != "" {
		mux.Handle("GET "+w.metricsEP, w.metricsH)
	}

	return mux
}

// Start runs the web server and blocks until the context is cancelled.
func (w *Web) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", w.host, w.port)
	w.server = &http.Server{
		Addr:    addr,
		Handler: w.routes(),
	}

	w.logger.Info("web server started", "addr", "http://"+addr, "public", w.publicDir)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.server.Shutdown(shutdownCtx)
	}()

	if err := w.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (w *Web) Stop() error {
	if w.server != nil {
		return w.server.Close()
	}
	return nil
}

func (w *Web) handleRoot(rw http.ResponseWriter, r *http.Request) {
	http.Redirect(rw, r, "/public/index.html", http.StatusTemporaryRedirect)
}

// handlePlan relays one request. The relay never fails, so every decoded
// request answers 200 with a real or fallback payload. A disconnecting
// client must not cancel the outbound call, hence WithoutCancel.
func (w *Web) handlePlan(rw http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req domain.PlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxBodySize)).Decode(&req); err != nil {
		rw.Header().Set("Content-Type", "application/json; charset=utf-8")
		rw.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(rw).Encode(map[string]string{"error": "invalid request body"})
		return
	}

	resp := w.relay.Handle(context.WithoutCancel(r.Context()), req)

	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(rw).Encode(resp)
}

func (w *Web) handleStatus(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]any{
		"status":  "ok",
		"version": w.version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (w *Web) handleHistory(rw http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recs, err := w.store.Recent(r.Context(), limit)
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err != nil {
		w.logger.Error("cannot list history", "err", err)
		rw.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(rw).Encode(map[string]string{"error": "history unavailable"})
		return
	}
	if recs == nil {
		recs = []domain.PlanRecord{}
	}
	json.NewEncoder(rw).Encode(recs)
}
