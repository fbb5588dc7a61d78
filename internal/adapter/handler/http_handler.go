package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rl1809/inventory-metafields/internal/core/service"
	"github.com/rl1809/inventory-metafields/internal/port"
)

const (
	ackMessage  = "Metafields updating process started..."
	runIDHeader = "X-Run-ID"
)

type HTTPHandler struct {
	reconciler *service.Reconciler
	runs       port.RunRepository
	logger     *zerolog.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(reconciler *service.Reconciler, runs port.RunRepository, logger *zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{reconciler: reconciler, runs: runs, logger: logger}
}

// Routes returns the API mux. metrics may be nil.
func (h *HTTPHandler) Routes(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/update-inventory-metafields", h.UpdateInventoryMetafields)
	mux.HandleFunc("GET /runs/latest", h.LatestRun)
	mux.HandleFunc("GET /runs/{id}", h.GetRun)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return Chain(Recovery(h.logger), Logger(h.logger))(mux)
}

// UpdateInventoryMetafields acknowledges immediately; the reconciliation
// keeps running after the response and its outcome only reaches the logs
// and the run history.
func (h *HTTPHandler) UpdateInventoryMetafields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	job, err := h.reconciler.Trigger(r.Context())
	switch {
	case err == nil:
		h.logger.Info().Str("run_id", job.ID()).Msg("metafields update triggered")
	case errors.Is(err, service.ErrRunInProgress):
		event := h.logger.Warn()
		if job != nil {
			event = event.Str("run_id", job.ID())
		}
		event.Msg("metafields update already in progress, trigger ignored")
	case errors.Is(err, service.ErrShuttingDown):
		h.logger.Warn().Msg("server shutting down, trigger ignored")
	default:
		h.logger.Error().Err(err).Msg("failed to start metafields update")
	}

	if job != nil {
		w.Header().Set(runIDHeader, job.ID())
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ackMessage))
}

func (h *HTTPHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	if job := h.reconciler.Active(); job != nil {
		writeJSON(w, http.StatusOK, job.Run())
		return
	}

	run, err := h.runs.LatestRun(r.Context())
	h.writeRun(w, run, err)
}

func (h *HTTPHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if job := h.reconciler.Active(); job != nil && job.ID() == id {
		writeJSON(w, http.StatusOK, job.Run())
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	h.writeRun(w, run, err)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeRun(w http.ResponseWriter, run any, err error) {
	if errors.Is(err, port.ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load run")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
