package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"relialab/adapters/excel"
	"relialab/adapters/memory"
	"relialab/app"
	"relialab/internal"
	"relialab/internal/config"
	"relialab/internal/reliability"
	"relialab/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sealsJSON = `[105, 213, 332, 351, 365, 397, 400, 397, 437, 1014, 1126, 1132, 3944, 5042]`

type staticSummarizer struct{ text string }

func (s staticSummarizer) Summarize(_ context.Context, req ports.SummaryRequest) (string, error) {
	return s.text + " (" + string(req.Distribution) + ")", nil
}

func newTestServiceWith(summarizer ports.Summarizer) *app.AnalysisService {
	logger := internal.NewLogger(internal.LogLevelError)
	defaults := config.AnalysisConfig{
		DefaultConfidence:   0.9,
		DefaultMethod:       "SRM",
		DefaultDistribution: "weibull",
		MaxObservations:     10000,
	}
	return app.NewAnalysisService(reliability.NewEngine(logger), memory.NewAnalysisRepository(), summarizer, defaults, logger)
}

func newTestServer(summarizer ports.Summarizer) *Server {
	return NewServer(newTestServiceWith(summarizer), excel.NewLifeDataReader(excel.DefaultReaderConfig()), gin.TestMode)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealth(t *testing.T) {
	w, body := doJSON(t, newTestServer(nil).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownRouteIsJSONNotFound(t *testing.T) {
	w, body := doJSON(t, newTestServer(nil).Handler(), http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "route GET /api/nope not found", body["error"])
}

func TestEstimateReturnsStoredAnalysis(t *testing.T) {
	h := newTestServer(nil).Handler()
	w, body := doJSON(t, h, http.MethodPost, "/api/estimate", `{"name":"seals","failures":`+sealsJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	model := body["model"].(map[string]interface{})
	params := model["parameters"].(map[string]interface{})
	assert.InDelta(t, 0.97018, params["beta"].(float64), 1e-4)
	assert.InDelta(t, 1029.88, params["eta"].(float64), 0.01)
	assert.Equal(t, "SRM", model["method"])
	assert.NotNil(t, model["plotData"])

	id := body["id"].(string)
	w, got := doJSON(t, h, http.MethodGet, "/api/analyses/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "seals", got["name"])
}

func TestEstimateDegradesToEmptyParameters(t *testing.T) {
	h := newTestServer(nil).Handler()
	w, body := doJSON(t, h, http.MethodPost, "/api/estimate", `{"failures":[120],"suspensions":[400,500]}`)
	require.Equal(t, http.StatusOK, w.Code)

	model := body["model"].(map[string]interface{})
	assert.Empty(t, model["parameters"])
	assert.Nil(t, model["rSquared"])
	assert.Contains(t, body["warning"], "insufficient data")
}

func TestEstimateGroupedInput(t *testing.T) {
	h := newTestServer(nil).Handler()
	w, body := doJSON(t, h, http.MethodPost, "/api/estimate",
		`{"distribution":"normal","grouped":{"failures":[{"time":100,"qty":2},{"time":200,"qty":3}],"suspensions":[{"time":250,"qty":1}]}}`)
	require.Equal(t, http.StatusOK, w.Code)

	sample := body["sample"].(map[string]interface{})
	assert.Len(t, sample["failures"], 5)
	assert.Len(t, sample["suspensions"], 1)
}

func TestGroupedInputOverCapIsRejected(t *testing.T) {
	h := newTestServer(nil).Handler()
	grouped := `"grouped":{"failures":[{"time":1,"qty":2000000000}]}`
	tests := []struct {
		path string
		body string
	}{
		{"/api/estimate", `{` + grouped + `}`},
		{"/api/estimate/batch", `{"models":[{"distribution":"weibull"}],` + grouped + `}`},
		{"/api/best-fit", `{` + grouped + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, body := doJSON(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_INPUT", body["code"])
			assert.Contains(t, body["error"], "limit is 10000")
		})
	}
}

func TestEstimateRejectsBadInput(t *testing.T) {
	h := newTestServer(nil).Handler()
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"failures":`},
		{"unknown distribution", `{"distribution":"cauchy","failures":[1,2,3]}`},
		{"unknown method", `{"method":"LSQ","failures":[1,2,3]}`},
		{"negative time", `{"failures":[10,-1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doJSON(t, h, http.MethodPost, "/api/estimate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestEstimateBatch(t *testing.T) {
	h := newTestServer(nil).Handler()
	w, body := doJSON(t, h, http.MethodPost, "/api/estimate/batch",
		`{"failures":`+sealsJSON+`,"models":[{"distribution":"weibull","method":"MLE"},{"distribution":"gumbel","method":"MLE"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	first := results[0].(map[string]interface{})["model"].(map[string]interface{})
	assert.Equal(t, "MLE", first["method"])
	second := results[1].(map[string]interface{})
	assert.Equal(t, true, second["model"].(map[string]interface{})["fellBack"])
	assert.NotEmpty(t, second["warning"])
}

func TestReliabilityFromParameters(t *testing.T) {
	h := newTestServer(nil).Handler()
	w, body := doJSON(t, h, http.MethodPost, "/api/reliability",
		`{"models":[{"name":"w","distribution":"weibull","parameters":{"beta":2,"eta":1000},"maxTime":1000},{"name":"broken","distribution":"weibull","parameters":{"beta":-1}}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	rt := body["Rt"].([]interface{})
	require.Len(t, rt, reliability.GridPoints)
	first := rt[0].(map[string]interface{})
	assert.Equal(t, 0.0, first["time"])
	assert.Equal(t, 1.0, first["w"])
	assert.Contains(t, first, "broken")
	assert.Nil(t, first["broken"])
	last := rt[len(rt)-1].(map[string]interface{})
	assert.InDelta(t, 1200, last["time"].(float64), 1e-9)
	assert.Len(t, body["lambda_t"], reliability.GridPoints)
}

func TestReliabilityFromStoredAnalyses(t *testing.T) {
	h := newTestServer(nil).Handler()
	_, created := doJSON(t, h, http.MethodPost, "/api/estimate", `{"name":"seals","failures":`+sealsJSON+`}`)

	w, body := doJSON(t, h, http.MethodPost, "/api/reliability", `{"analysisIds":["`+created["id"].(string)+`"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	rt := body["Rt"].([]interface{})
	assert.Contains(t, rt[10].(map[string]interface{}), "seals")

	w, _ = doJSON(t, h, http.MethodPost, "/api/reliability", `{"analysisIds":["0190d5d8-7f2e-7a3c-9a1b-000000000000"]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBestFit(t *testing.T) {
	w, body := doJSON(t, newTestServer(nil).Handler(), http.MethodPost, "/api/best-fit", `{"failures":`+sealsJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lognormal", body["best"])
	assert.Len(t, body["results"], 6)
}

func TestBounds(t *testing.T) {
	h := newTestServer(nil).Handler()

	w, body := doJSON(t, h, http.MethodPost, "/api/bounds", `{"failures":`+sealsJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.9, body["confidenceLevel"])
	assert.Len(t, body["line"], 100)

	w, body = doJSON(t, h, http.MethodPost, "/api/bounds", `{"failures":[100],"confidenceLevel":95}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_DATA", body["code"])

	w, _ = doJSON(t, h, http.MethodPost, "/api/bounds", `{"failures":`+sealsJSON+`,"confidenceLevel":100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportAndAnalysisLifecycle(t *testing.T) {
	h := newTestServer(staticSummarizer{text: "Wear-out dominates"}).Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("method", "RRX"))
	fw, err := mw.CreateFormFile("file", "bearings.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("time,state,qty\n150,F,2\n210,F,5\n300,F,1\n400,S,3\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "bearings.csv", created["name"])
	assert.Equal(t, "RRX", created["model"].(map[string]interface{})["method"])
	id := created["id"].(string)

	w, list := doJSON(t, h, http.MethodGet, "/api/analyses?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, list["analyses"], 1)

	w, updated := doJSON(t, h, http.MethodPut, "/api/analyses/"+id+"/overrides", `{"parameters":{"beta":3,"eta":250}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, updated["overrides"].(map[string]interface{})["beta"])

	w, _ = doJSON(t, h, http.MethodPut, "/api/analyses/"+id+"/overrides", `{"parameters":{"beta":0,"eta":250}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, h, http.MethodGet, "/api/analyses/"+id+"/report?format=html", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<table>")
	assert.Contains(t, w.Body.String(), "Manual overrides are in effect.")

	w, summary := doJSON(t, h, http.MethodPost, "/api/analyses/"+id+"/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Wear-out dominates (weibull)", summary["summary"])

	w, _ = doJSON(t, h, http.MethodDelete, "/api/analyses/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body := doJSON(t, h, http.MethodGet, "/api/analyses/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, body["error"])
}

func TestImportRejectsBadFiles(t *testing.T) {
	h := newTestServer(nil).Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "data.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("time\n10\nabc\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "row 3")

	w, _ = doJSON(t, h, http.MethodPost, "/api/import", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysisRoutesValidateIDs(t *testing.T) {
	h := newTestServer(nil).Handler()

	w, _ := doJSON(t, h, http.MethodGet, "/api/analyses/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, h, http.MethodGet, "/api/analyses?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := doJSON(t, h, http.MethodPost, "/api/analyses/0190d5d8-7f2e-7a3c-9a1b-000000000000/summary", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_CONFIGURED", body["code"])
}
