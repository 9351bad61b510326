package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/causalstack/causal-sentinel/internal/models"
	"github.com/causalstack/causal-sentinel/internal/services"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

const maxRequestBytes = 16 << 20

type handler struct {
	analyzer *services.Analyzer
	logger   *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var validation *utils.ValidationError
		var insufficient *utils.InsufficientDataError
		if errors.As(err, &validation) || errors.As(err, &insufficient) {
			status = http.StatusBadRequest
		}
		h.logger.Error("analysis failed",
			slog.String("metric", req.Series.Name),
			slog.Int("status", status),
			slog.Any("error", err))
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	h.logger.Info("analysis complete",
		slog.String("run_id", result.RunID),
		slog.String("metric", result.Metric),
		slog.Int("reports", len(result.Reports)))
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
