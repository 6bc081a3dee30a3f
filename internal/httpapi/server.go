package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"AptScanner/internal/usecase"
)

type runResponse struct {
	Status         string `json:"status"`
	Fetched        int    `json:"fetched"`
	SkippedSeen    int    `json:"skippedSeen"`
	SkippedOldDate int    `json:"skippedOldDate"`
	Classified     int    `json:"classified"`
	Accepted       int    `json:"accepted"`
	Published      bool   `json:"published"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler exposes the manual trigger and a liveness probe.
type Handler struct {
	runner usecase.Runner
	logger *slog.Logger
	clock  func() time.Time
}

// NewRouter mounts the routes on a chi router.
func NewRouter(runner usecase.Runner, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{runner: runner, logger: logger, clock: time.Now}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", h.Health)
	mux.Post("/run", h.Run)

	return mux
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Run executes one pipeline pass synchronously and reports its counters.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context(), h.clock())
	if err != nil {
		h.logger.Error("manual run failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		Status:         result.Status,
		Fetched:        result.Fetched,
		SkippedSeen:    result.SkippedSeen,
		SkippedOldDate: result.SkippedOldDate,
		Classified:     result.Classified,
		Accepted:       result.Accepted,
		Published:      result.Published,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
