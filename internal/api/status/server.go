// Package status отдаёт состояние прогонов и журнала по HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	app "roi-harvester/internal/application"
	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/infrastructure/ledger"
)

// Runner запускает прогон в фоне
type Runner interface {
	Trigger(ctx context.Context) bool
}

// StatusSource источник состояния прогонов
type StatusSource interface {
	Status() app.RunStatus
}

// LedgerReader чтение журнала исходов
type LedgerReader interface {
	Get(ctx context.Context, id int64) (ledger.Outcome, bool, error)
	Counts(ctx context.Context) (map[entity.Reason]int, error)
}

// Server HTTP-интерфейс состояния; runner и ledger могут быть nil.
type Server struct {
	router *chi.Mux
	status StatusSource
	runner Runner
	ledger LedgerReader
	logger *slog.Logger
	runCtx context.Context
}

// NewServer создаёт сервер; runCtx - контекст запускаемых через /run прогонов.
func NewServer(runCtx context.Context, status StatusSource, runner Runner, ledger LedgerReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router: chi.NewRouter(),
		status: status,
		runner: runner,
		ledger: ledger,
		logger: logger,
		runCtx: runCtx,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	s.router.Post("/run", s.handleRun)
	s.router.Get("/ledger", s.handleLedgerCounts)
	s.router.Get("/ledger/{id}", s.handleLedgerOutcome)
	return s
}

// Handler возвращает корневой обработчик
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe обслуживает addr до отмены ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		http.Error(w, "manual runs disabled", http.StatusNotImplemented)
		return
	}
	if !s.runner.Trigger(s.runCtx) {
		s.writeJSON(w, http.StatusConflict, map[string]string{"status": "running"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleLedgerCounts(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "ledger disabled", http.StatusNotFound)
		return
	}
	counts, err := s.ledger.Counts(r.Context())
	if err != nil {
		s.logger.Error("ledger counts failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleLedgerOutcome(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "ledger disabled", http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}

	outcome, ok, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("ledger lookup failed", "id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Identifier not scanned", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}
