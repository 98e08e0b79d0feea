package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/netrel/internal/config"
	"github.com/gyaneshwarpardhi/netrel/internal/engine"
	"github.com/gyaneshwarpardhi/netrel/internal/metrics"
	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
	"github.com/gyaneshwarpardhi/netrel/internal/topology"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/reliability", h.evaluate)
	h.mux.HandleFunc("GET /v1/networks", h.listNetworks)
	h.mux.HandleFunc("POST /v1/networks/reload", h.reloadNetworks)
	h.mux.HandleFunc("GET /v1/networks/{id}/report", h.report)
	h.mux.HandleFunc("GET /v1/networks/{id}/distribution", h.distribution)
	h.mux.HandleFunc("POST /v1/networks/{id}/fragility", h.fragility)
	h.mux.HandleFunc("POST /v1/networks/{id}/threats", h.threats)
	h.mux.HandleFunc("POST /v1/durbin-watson", h.durbinWatson)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// evaluateRequest carries an ad-hoc network, either declared like a config network or
// as raw maps. Raw links come as an adjacency map or as a 0/1 matrix indexed by order
// (sorted probability ids when order is empty).
type evaluateRequest struct {
	Network       *config.NetworkDef        `json:"network"`
	Probabilities reliability.Probabilities `json:"probabilities"`
	Adjacency     reliability.Adjacency     `json:"adjacency"`
	Matrix        [][]int                   `json:"matrix"`
	Order         []string                  `json:"order"`
}

// POST /v1/reliability — full report for an inline network.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Network != nil {
		if err := config.ValidateNetwork(*req.Network); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		n, err := topology.Build(*req.Network)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		req.Probabilities = n.Probabilities()
		req.Adjacency = n.Adjacency()
	}
	adj := req.Adjacency
	if len(req.Matrix) > 0 {
		if len(req.Adjacency) > 0 {
			writeError(w, http.StatusUnprocessableEntity, "adjacency and matrix are mutually exclusive")
			return
		}
		order := req.Order
		if len(order) == 0 {
			order = req.Probabilities.IDs()
		}
		m, err := topology.AdjacencyFromMatrix(order, req.Matrix)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		adj = m
	}

	start := time.Now()
	rep, err := h.eng.Evaluate(r.Context(), req.Probabilities, adj)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeAnalysis(w, "", start, rep)
}

// GET /v1/networks — list loaded networks.
func (h *Handler) listNetworks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  h.loader.Config().Version,
		"networks": h.eng.Networks(),
	})
}

// POST /v1/networks/reload — hot-reload networks from disk.
func (h *Handler) reloadNetworks(w http.ResponseWriter, r *http.Request) {
	// The engine picks the new config up through the loader's OnChange callback.
	cfg, err := h.loader.Reload()
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	networks := len(h.eng.Networks())
	slog.Info("networks reloaded via API", "version", cfg.Version, "networks", networks)
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":       true,
		"version":        cfg.Version,
		"networks_count": networks,
	})
}

// GET /v1/networks/{id}/report — reliability report of a loaded network.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	start := time.Now()
	rep, err := h.eng.Report(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeAnalysis(w, id, start, rep)
}

// GET /v1/networks/{id}/distribution — every joint state with its probability.
func (h *Handler) distribution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	start := time.Now()
	dist, err := h.eng.Distribution(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeAnalysis(w, id, start, dist)
}

type fragilityRequest struct {
	RemovalOrder      []string `json:"removal_order"`
	CriticalThreshold int      `json:"critical_threshold"`
}

// POST /v1/networks/{id}/fragility — sequential node removal.
func (h *Handler) fragility(w http.ResponseWriter, r *http.Request) {
	var req fragilityRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CriticalThreshold < 0 {
		writeError(w, http.StatusUnprocessableEntity, "critical_threshold must not be negative")
		return
	}
	id := r.PathValue("id")
	start := time.Now()
	steps, err := h.eng.Fragility(r.Context(), id, req.RemovalOrder, req.CriticalThreshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeAnalysis(w, id, start, steps)
}

type threatsRequest struct {
	Seed *uint64 `json:"seed"`
}

// POST /v1/networks/{id}/threats — one threat simulation; the seed is echoed back.
func (h *Handler) threats(w http.ResponseWriter, r *http.Request) {
	var req threatsRequest
	if err := decode(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}
	id := r.PathValue("id")
	start := time.Now()
	res, err := h.eng.Threats(r.Context(), id, seed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeAnalysis(w, id, start, res)
}

type durbinWatsonRequest struct {
	Residuals []float64 `json:"residuals"`
}

// POST /v1/durbin-watson — autocorrelation diagnostic over residuals.
func (h *Handler) durbinWatson(w http.ResponseWriter, r *http.Request) {
	var req durbinWatsonRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	res, err := h.eng.DurbinWatson(req.Residuals)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeAnalysis(w, "", start, res)
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if analysis queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func writeAnalysis(w http.ResponseWriter, networkID string, start time.Time, result any) {
	writeJSON(w, http.StatusOK, analysisResponse{
		AnalysisID: uuid.New().String(),
		NetworkID:  networkID,
		DurationMs: time.Since(start).Milliseconds(),
		Result:     result,
	})
}

// decode reads a JSON body into v. An empty body is accepted only when optional is set.
func decode(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && optional:
		return nil
	default:
		return fmt.Errorf("invalid JSON: %w", err)
	}
}
