package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/netrel/internal/api"
	"github.com/gyaneshwarpardhi/netrel/internal/config"
	"github.com/gyaneshwarpardhi/netrel/internal/engine"
	"github.com/gyaneshwarpardhi/netrel/internal/topology"
)

type server struct {
	handler http.Handler
	cfgPath string
}

func newServer(t *testing.T) *server {
	t.Helper()
	data, err := os.ReadFile("../../configs/networks.yaml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "networks.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loader, err := config.NewLoader(path)
	require.NoError(t, err)
	cat, err := topology.BuildCatalog(loader.Config())
	require.NoError(t, err)
	eng, err := engine.New(context.Background(), loader.Config(), cat)
	require.NoError(t, err)
	t.Cleanup(eng.Shutdown)
	loader.OnChange(eng.OnConfigChange)

	return &server{handler: api.New(eng, loader), cfgPath: path}
}

func (s *server) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func result(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	assert.NotEmpty(t, out["analysis_id"])
	res, ok := out["result"].(map[string]any)
	require.True(t, ok, "result is an object: %v", out)
	return res
}

func TestEvaluate_Adjacency(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodPost, "/v1/reliability", map[string]any{
		"probabilities": map[string]float64{"a": 0.9, "b": 0.8},
		"adjacency":     map[string][]string{"a": {"b"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 0.98, result(t, out)["system_reliability"], 1e-12)
}

func TestEvaluate_Matrix(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodPost, "/v1/reliability", map[string]any{
		"probabilities": map[string]float64{"a": 0.9, "b": 0.9, "c": 0.9},
		"order":         []string{"a", "b", "c"},
		"matrix":        [][]int{{0, 1, 0}, {1, 0, 1}, {0, 1, 0}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 0.918, result(t, out)["system_reliability"], 1e-9)
}

func TestEvaluate_ContractViolations(t *testing.T) {
	s := newServer(t)
	cases := []struct {
		name string
		body any
		code string
	}{
		{"missing probability", map[string]any{
			"probabilities": map[string]float64{"a": 0.9},
			"adjacency":     map[string][]string{"a": {"ghost"}},
		}, "missing_probability"},
		{"invalid probability", map[string]any{
			"probabilities": map[string]float64{"a": 1.2},
		}, "invalid_probability"},
		{"matrix shape", map[string]any{
			"probabilities": map[string]float64{"a": 0.9, "b": 0.9},
			"matrix":        [][]int{{0, 1}},
		}, "matrix_shape"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, out := s.do(t, http.MethodPost, "/v1/reliability", tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, tc.code, out["code"])
		})
	}
}

func TestEvaluate_BadJSON(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(t, http.MethodPost, "/v1/reliability", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNetworks(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodGet, "/v1/networks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", out["version"])
	assert.Len(t, out["networks"], 2)
}

func TestReport(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodGet, "/v1/networks/sample/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sample", out["network_id"])
	res := result(t, out)
	assert.InDelta(t, 0.9926985260416, res["system_reliability"], 1e-9)
	assert.Len(t, res["nodes"], 7)
	total := res["total"].(map[string]any)
	assert.Equal(t, "SYSTEM_TOTAL", total["node_id"])
	assert.Equal(t, "system", total["tier"])

	rec, out = s.do(t, http.MethodGet, "/v1/networks/ghost/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", out["code"])
}

func TestDistribution(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodGet, "/v1/networks/ring/distribution", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["result"], 16)
}

func TestFragility(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodPost, "/v1/networks/sample/fragility", map[string]any{
		"removal_order": []string{"firewall", "switch2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	steps := out["result"].([]any)
	require.Len(t, steps, 2)
	last := steps[1].(map[string]any)
	assert.Equal(t, "switch2", last["removed"])
	assert.InDelta(t, 0.951099464, last["reliability"], 1e-9)
	assert.InDelta(t, 0.858277728, last["product_reliability"], 1e-9)

	rec, _ = s.do(t, http.MethodPost, "/v1/networks/sample/fragility", map[string]any{
		"critical_threshold": -1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestThreats_SeedIsReproducible(t *testing.T) {
	s := newServer(t)
	_, first := s.do(t, http.MethodPost, "/v1/networks/sample/threats", map[string]any{"seed": 7})
	_, second := s.do(t, http.MethodPost, "/v1/networks/sample/threats", map[string]any{"seed": 7})
	a, b := result(t, first), result(t, second)
	assert.Equal(t, float64(7), a["seed"])
	assert.Equal(t, a["probabilities"], b["probabilities"])
	assert.Equal(t, a["events"], b["events"])

	rec, out := s.do(t, http.MethodPost, "/v1/networks/sample/threats", nil)
	require.Equal(t, http.StatusOK, rec.Code, "seed is optional")
	assert.Contains(t, result(t, out), "seed")
}

func TestDurbinWatson(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodPost, "/v1/durbin-watson", map[string]any{
		"residuals": []float64{1, -1, 1, -1, 1, -1, 1, -1, 1, -1},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res := result(t, out)
	assert.InDelta(t, 3.6, res["statistic"], 1e-12)
	assert.Equal(t, "negative_autocorrelation", res["verdict"])

	rec, out = s.do(t, http.MethodPost, "/v1/durbin-watson", map[string]any{"residuals": []float64{1, 2}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_data", out["code"])
}

func TestDurbinWatson_LargeResiduals(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodPost, "/v1/durbin-watson", `{"residuals": [1e200, -1e200, 1e200, -1e200]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := result(t, out)
	assert.InDelta(t, 3.0, res["statistic"], 1e-12)
	assert.Equal(t, "negative_autocorrelation", res["verdict"])

	rec, _ = s.do(t, http.MethodPost, "/v1/durbin-watson", `{"residuals": [1e400, 1, 2]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "out-of-range numbers are rejected while decoding")
}

func TestReload(t *testing.T) {
	s := newServer(t)
	require.NoError(t, os.WriteFile(s.cfgPath, []byte(`
version: v2
networks:
  - id: pair
    nodes:
      - { id: a, reliability: 0.9 }
      - { id: b, reliability: 0.8 }
    links:
      - { source: a, target: b }
`), 0o644))

	rec, out := s.do(t, http.MethodPost, "/v1/networks/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), out["networks_count"])
	assert.Equal(t, "v2", out["version"])

	rec, out = s.do(t, http.MethodGet, "/v1/networks/pair/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.98, result(t, out)["system_reliability"], 1e-12)

	require.NoError(t, os.WriteFile(s.cfgPath, []byte("version: v3\nnetworks:\n  - id: ''\n"), 0o644))
	rec, _ = s.do(t, http.MethodPost, "/v1/networks/reload", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/v1/networks/pair/report", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "failed reload keeps the active catalog")

	rec, out = s.do(t, http.MethodGet, "/v1/networks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v2", out["version"], "listed version matches the served catalog")
	assert.Len(t, out["networks"], 1)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, out := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])

	rec, out = s.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", out["status"])

	rec, _ = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "netrel_")
}

func TestEvaluate_DeclaredNetwork(t *testing.T) {
	s := newServer(t)
	network := map[string]any{
		"id": "path",
		"nodes": []map[string]any{
			{"id": "a", "reliability": 0.9},
			{"id": "b", "reliability": 0.9},
			{"id": "c", "reliability": 0.9},
		},
		"links": []map[string]any{
			{"source": "a", "target": "b"},
			{"source": "b", "target": "c"},
		},
	}
	rec, out := s.do(t, http.MethodPost, "/v1/reliability", map[string]any{"network": network})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 0.918, result(t, out)["system_reliability"], 1e-9)

	network["links"] = []map[string]any{{"source": "a", "target": "ghost"}}
	rec, out = s.do(t, http.MethodPost, "/v1/reliability", map[string]any{"network": network})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, out["error"], `unknown node "ghost"`)
}
