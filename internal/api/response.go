package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gyaneshwarpardhi/netrel/internal/autocorr"
	"github.com/gyaneshwarpardhi/netrel/internal/engine"
	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
	"github.com/gyaneshwarpardhi/netrel/internal/topology"
)

// writeJSON encodes v as JSON and writes it with the given status code. A value
// that cannot be encoded becomes a 500 instead of an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "err", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "response encoding failed", Code: "encoding"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// analysisResponse wraps every analysis result.
type analysisResponse struct {
	AnalysisID string `json:"analysis_id"`
	NetworkID  string `json:"network_id,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

// errorStatus maps a domain error to its HTTP status and machine-readable code.
var errorStatus = []struct {
	target error
	status int
	code   string
}{
	{engine.ErrNetworkNotFound, http.StatusNotFound, "not_found"},
	{engine.ErrQueueFull, http.StatusTooManyRequests, "queue_full"},
	{engine.ErrTimeout, http.StatusGatewayTimeout, "timeout"},
	{engine.ErrShutdown, http.StatusServiceUnavailable, "shutting_down"},
	{reliability.ErrMissingProbability, http.StatusUnprocessableEntity, "missing_probability"},
	{reliability.ErrInvalidProbability, http.StatusUnprocessableEntity, "invalid_probability"},
	{reliability.ErrTooManyNodes, http.StatusUnprocessableEntity, "too_many_nodes"},
	{autocorr.ErrInsufficientData, http.StatusUnprocessableEntity, "insufficient_data"},
	{autocorr.ErrDegenerateResiduals, http.StatusUnprocessableEntity, "degenerate_residuals"},
	{autocorr.ErrNonFiniteResidual, http.StatusUnprocessableEntity, "non_finite_residual"},
	{topology.ErrMatrixShape, http.StatusUnprocessableEntity, "matrix_shape"},
	{topology.ErrUnknownNode, http.StatusUnprocessableEntity, "unknown_node"},
}

func writeDomainError(w http.ResponseWriter, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.target) {
			writeJSON(w, e.status, errorResponse{Error: err.Error(), Code: e.code})
			return
		}
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
