package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/application"
	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
	"github.com/wyfcoding/energyrisk/internal/riskanalytics/infrastructure/persistence/memory"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	stress := domain.NewStressTestEngine(500, 1)
	svc := application.NewRiskAnalyticsService(nil, nil, nil, stress, nil, 1000)
	mgr := application.NewSimulationJobManager(memory.NewJobRepository(), nil, nil, 1, time.Minute, time.Hour)

	r := gin.New()
	handler := NewRiskAnalyticsHandler(svc, mgr)
	handler.RegisterRoutes(&r.RouterGroup)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func varPayload(confidence float64) map[string]any {
	return map[string]any{
		"portfolio_data": map[string]any{
			"portfolio_id": "PF-HTTP",
			"total_value":  100000,
			"positions": []map[string]any{
				{"commodity": "WTI", "quantity": 1000, "price": 100},
			},
			"volatility": 0.25,
		},
		"confidence_level": confidence,
		"time_horizon":     1,
	}
}

func TestParametricVaREndpoint(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/var/parametric", varPayload(0.95))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "parametric")
}

func TestVaRInvalidConfidence(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/var/parametric", varPayload(1.5))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVaRMalformedBody(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk-analytics/var/parametric", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoricalVaRInsufficientData(t *testing.T) {
	r := newTestRouter()
	payload := varPayload(0.95)
	// 无历史收益序列
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/var/historical", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonteCarloVaREndpoint(t *testing.T) {
	r := newTestRouter()
	payload := varPayload(0.95)
	payload["num_simulations"] = 1000
	payload["seed"] = 42
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/var/monte-carlo", payload)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "job_id")
}

func TestExpectedShortfallEndpoint(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/expected-shortfall", varPayload(0.95))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStressTestEndpoint(t *testing.T) {
	r := newTestRouter()
	payload := varPayload(0.95)
	delete(payload, "confidence_level")
	delete(payload, "time_horizon")
	payload["stress_scenarios"] = []map[string]any{
		{"name": "CRASH", "type": "PRICE_SHOCK", "shock_factor": -0.3},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/stress-test", payload)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CRASH")
}

func TestStressTestUnknownScenarioType(t *testing.T) {
	r := newTestRouter()
	payload := varPayload(0.95)
	payload["stress_scenarios"] = []map[string]any{
		{"name": "X", "type": "LIQUIDITY_CRUNCH"},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/stress-test", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScenarioAnalysisEndpoint(t *testing.T) {
	r := newTestRouter()
	payload := varPayload(0.95)
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/scenario-analysis", payload)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "worst_case")
}

func TestGenerateReportEndpoint(t *testing.T) {
	r := newTestRouter()
	payload := varPayload(0.95)
	payload["report_type"] = "SUMMARY"
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/risk-report", payload)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "RPT-")
}

func TestGenerateReportInvalidType(t *testing.T) {
	r := newTestRouter()
	payload := varPayload(0.95)
	payload["report_type"] = "HOURLY"
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/risk-report", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestMetricsNotFound(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodGet, "/api/v1/risk-analytics/metrics/PF-unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimulationLifecycleEndpoints(t *testing.T) {
	// worker 未运行，任务停留在 SUBMITTED，接口语义仍可验证
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/simulation/monte-carlo", varPayload(0.95))
	require.Equal(t, http.StatusAccepted, w.Code)

	var submitResp struct {
		SimulationID string `json:"simulation_id"`
		Status       string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitResp))
	require.NotEmpty(t, submitResp.SimulationID)
	assert.Equal(t, string(domain.JobSubmitted), submitResp.Status)

	base := "/api/v1/risk-analytics/simulation/" + submitResp.SimulationID

	w = doJSON(t, r, http.MethodGet, base+"/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.JobSubmitted))

	// 未完成时取结果应返回冲突
	w = doJSON(t, r, http.MethodGet, base+"/results", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 已取消任务的结果不可获取
	w = doJSON(t, r, http.MethodGet, base+"/results", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSimulationStatusUnknownJob(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodGet, "/api/v1/risk-analytics/simulation/SIM-0/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimulationSubmitRejectsBadParams(t *testing.T) {
	r := newTestRouter()
	payload := varPayload(0.95)
	payload["confidence_level"] = 3.0
	w := doJSON(t, r, http.MethodPost, "/api/v1/risk-analytics/simulation/monte-carlo", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
