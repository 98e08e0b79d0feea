package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/netrel/internal/autocorr"
	"github.com/gyaneshwarpardhi/netrel/internal/fragility"
	"github.com/gyaneshwarpardhi/netrel/internal/reliability"
)

const sampleConfig = "../../configs/networks.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", sampleConfig}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestReportCmd_JSON(t *testing.T) {
	out, err := run(t, "report", "--json")
	require.NoError(t, err)

	var rep reliability.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.InDelta(t, 0.9926985260416, rep.SystemReliability, 1e-9)
	assert.Len(t, rep.Nodes, 7)
}

func TestReportCmd_Table(t *testing.T) {
	out, err := run(t, "report", "--network", "ring")
	require.NoError(t, err)
	assert.Contains(t, out, "Network ring")
	assert.Contains(t, out, "0.983700")
	assert.Contains(t, out, reliability.SystemTotalID)
}

func TestReportCmd_UnknownNetwork(t *testing.T) {
	_, err := run(t, "report", "--network", "ghost")
	assert.ErrorContains(t, err, `network "ghost" not found`)
}

func TestFragilityCmd(t *testing.T) {
	out, err := run(t, "fragility", "--order", "firewall,switch2", "--json")
	require.NoError(t, err)

	var steps []fragility.StepResult
	require.NoError(t, json.Unmarshal([]byte(out), &steps))
	require.Len(t, steps, 2)
	assert.InDelta(t, 0.951099464, steps[1].Reliability, 1e-9)

	out, err = run(t, "fragility", "--order", "firewall,switch2", "--mode", "product", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &steps))
	assert.InDelta(t, 0.858277728, steps[1].Reliability, 1e-9)

	_, err = run(t, "fragility", "--mode", "fast")
	assert.Error(t, err)
}

func TestFragilityCmd_DefaultOrderStopsAtThreshold(t *testing.T) {
	out, err := run(t, "fragility")
	require.NoError(t, err)
	assert.Contains(t, out, "critical threshold reached")
}

func TestThreatsCmd_SeedIsReproducible(t *testing.T) {
	first, err := run(t, "threats", "--seed", "11", "--json")
	require.NoError(t, err)
	second, err := run(t, "threats", "--seed", "11", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, first, second)
}

func TestDistributionCmd(t *testing.T) {
	out, err := run(t, "distribution", "--network", "ring", "--json")
	require.NoError(t, err)
	var dist []reliability.StateProbability
	require.NoError(t, json.Unmarshal([]byte(out), &dist))
	assert.Len(t, dist, 16)

	out, err = run(t, "distribution", "--network", "ring", "--connected", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &dist))
	// Of the 15 non-empty states of a 4-ring only the two opposite pairs are split.
	assert.Len(t, dist, 13)
	var sum float64
	for _, s := range dist {
		sum += s.Probability
	}
	assert.InDelta(t, 0.9837, sum, 1e-9)
}

func TestDurbinWatsonCmd(t *testing.T) {
	out, err := run(t, "dw", "--json", "--", "1", "-1", "1", "-1", "1", "-1", "1", "-1", "1", "-1")
	require.NoError(t, err)
	var res autocorr.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 3.6, res.Statistic, 1e-12)
	assert.Equal(t, autocorr.VerdictNegative, res.Verdict)

	_, err = run(t, "dw", "1", "2")
	assert.ErrorIs(t, err, autocorr.ErrInsufficientData)

	_, err = run(t, "dw", "1", "x", "2")
	assert.ErrorContains(t, err, `residual "x"`)
}

func TestDurbinWatsonCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "residuals.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 -1 -1 1\n1 -1 -1 1\n"), 0o644))
	out, err := run(t, "dw", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, string(autocorr.VerdictNone))
}

func TestRenderFragility_Empty(t *testing.T) {
	out := renderFragility("sample", 3, nil)
	assert.Contains(t, out, "no node in the removal order")
	assert.Equal(t, 1, strings.Count(out, "Fragility of sample"))
}
