package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seals = "105,213,332,351,365,397,400,397,437,1014,1126,1132,3944,5042"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseTimes(t *testing.T) {
	got, err := parseTimes(" 1, 2.5,,3 ")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 3}, got)

	got, err = parseTimes("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseTimes("1,x")
	assert.Error(t, err)
}

func TestFitCommand(t *testing.T) {
	out, err := run(t, "fit", "--failures", seals)
	require.NoError(t, err)

	var result struct {
		Model struct {
			Method     string             `json:"method"`
			Parameters map[string]float64 `json:"parameters"`
		} `json:"model"`
		Warning string `json:"warning"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "SRM", result.Model.Method)
	assert.InDelta(t, 0.97018, result.Model.Parameters["beta"], 1e-4)
	assert.Empty(t, result.Warning)
}

func TestFitCommandReportsEstimationWarning(t *testing.T) {
	out, err := run(t, "fit", "--failures", "100", "--suspensions", "200,300")
	require.NoError(t, err)
	assert.Contains(t, out, "insufficient data")
}

func TestFitCommandRejectsBadInput(t *testing.T) {
	_, err := run(t, "fit", "--failures", "1,2,3", "--distribution", "cauchy")
	assert.Error(t, err)

	_, err = run(t, "fit")
	assert.Error(t, err)

	_, err = run(t, "fit", "--failures", "1,-2")
	assert.Error(t, err)
}

func TestBestFitCommand(t *testing.T) {
	out, err := run(t, "best-fit", "--failures", seals)
	require.NoError(t, err)

	var result struct {
		Best string `json:"best"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "lognormal", result.Best)
}

func TestBoundsCommand(t *testing.T) {
	out, err := run(t, "bounds", "--failures", seals, "--confidence", "95")
	require.NoError(t, err)
	assert.Contains(t, out, `"confidenceLevel": 0.95`)

	_, err = run(t, "bounds", "--failures", "100")
	assert.Error(t, err)
}

func TestCurvesCommand(t *testing.T) {
	out, err := run(t, "curves", "--failures", seals, "-d", "weibull", "-d", "normal")
	require.NoError(t, err)

	var series map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &series))
	require.Len(t, series["Rt"], 101)
	assert.Contains(t, series["Rt"][0], "weibull")
	assert.Contains(t, series["Rt"][0], "normal")
}

func TestSimulateRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.csv")
	out, err := run(t, "simulate", "--units", "40", "--beta", "2", "--eta", "500", "--censor", "600", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	out, err = run(t, "fit", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"beta"`)

	_, err = run(t, "simulate", "--out", "fleet.json")
	assert.Error(t, err)
}
