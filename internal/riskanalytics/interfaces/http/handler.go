package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/application"
	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
)

// RiskAnalyticsHandler 负责处理风险分析相关的 HTTP 请求
type RiskAnalyticsHandler struct {
	svc *application.RiskAnalyticsService
	sim *application.SimulationJobManager
}

// NewRiskAnalyticsHandler 创建 HTTP 处理器
func NewRiskAnalyticsHandler(svc *application.RiskAnalyticsService, sim *application.SimulationJobManager) *RiskAnalyticsHandler {
	return &RiskAnalyticsHandler{svc: svc, sim: sim}
}

// RegisterRoutes 注册路由
func (h *RiskAnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/risk-analytics")
	{
		api.POST("/var/parametric", h.ParametricVaR)
		api.POST("/var/historical", h.HistoricalVaR)
		api.POST("/var/monte-carlo", h.MonteCarloVaR)
		api.POST("/expected-shortfall", h.ExpectedShortfall)
		api.POST("/stress-test", h.StressTest)
		api.POST("/scenario-analysis", h.ScenarioAnalysis)
		api.POST("/risk-report", h.GenerateReport)
		api.GET("/metrics/:portfolio_id", h.LatestMetrics)
		api.GET("/metrics/:portfolio_id/history", h.MetricsHistory)

		api.POST("/simulation/monte-carlo", h.SubmitSimulation)
		api.GET("/simulation/:simulation_id/status", h.SimulationStatus)
		api.GET("/simulation/:simulation_id/results", h.SimulationResults)
		api.DELETE("/simulation/:simulation_id", h.CancelSimulation)
	}
}

// statusFromError 将领域错误分类映射为 HTTP 状态码
func statusFromError(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrInvalidParameter, domain.ErrInsufficientData:
		return http.StatusBadRequest
	case domain.ErrNotFound, domain.ErrJobNotFound:
		return http.StatusNotFound
	case domain.ErrJobNotReady:
		return http.StatusConflict
	case domain.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	response.ErrorWithStatus(c, statusFromError(err), err.Error(), string(domain.KindOf(err)))
}

// ParametricVaR 参数法在险价值
func (h *RiskAnalyticsHandler) ParametricVaR(c *gin.Context) {
	h.calculateVaR(c, domain.MethodParametric)
}

// HistoricalVaR 历史模拟法在险价值
func (h *RiskAnalyticsHandler) HistoricalVaR(c *gin.Context) {
	h.calculateVaR(c, domain.MethodHistorical)
}

// MonteCarloVaR 蒙特卡洛在险价值便捷入口，转为异步任务受理
func (h *RiskAnalyticsHandler) MonteCarloVaR(c *gin.Context) {
	var req application.VaRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.sim.Submit(c.Request.Context(), &application.SimulationRequest{
		PortfolioData:   req.PortfolioData,
		ConfidenceLevel: req.ConfidenceLevel,
		TimeHorizon:     req.TimeHorizon,
		NumSimulations:  req.NumSimulations,
		Seed:            req.Seed,
	})
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to submit simulation", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "monte carlo simulation accepted",
		"job_id":  dto.SimulationID,
	})
}

func (h *RiskAnalyticsHandler) calculateVaR(c *gin.Context, method string) {
	var req application.VaRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.CalculateVaR(c.Request.Context(), method, &req)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to calculate VaR", "method", method, "error", err)
		respondError(c, err)
		return
	}

	response.Success(c, dto)
}

// ExpectedShortfall 预期亏损
func (h *RiskAnalyticsHandler) ExpectedShortfall(c *gin.Context) {
	var req application.ExpectedShortfallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.ExpectedShortfall(c.Request.Context(), &req)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to calculate expected shortfall", "error", err)
		respondError(c, err)
		return
	}

	response.Success(c, dto)
}

// StressTest 压力测试
func (h *RiskAnalyticsHandler) StressTest(c *gin.Context) {
	var req application.StressTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.StressTest(c.Request.Context(), &req)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to run stress test", "error", err)
		respondError(c, err)
		return
	}

	response.Success(c, dto)
}

// ScenarioAnalysis 情景分析
func (h *RiskAnalyticsHandler) ScenarioAnalysis(c *gin.Context) {
	var req application.ScenarioAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.svc.ScenarioAnalysis(c.Request.Context(), &req)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to run scenario analysis", "error", err)
		respondError(c, err)
		return
	}

	response.Success(c, dto)
}

// GenerateReport 生成风险报告
func (h *RiskAnalyticsHandler) GenerateReport(c *gin.Context) {
	var req application.RiskReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	report, err := h.svc.GenerateRiskReport(c.Request.Context(), &req)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to generate risk report", "error", err)
		respondError(c, err)
		return
	}

	response.Success(c, report)
}

// LatestMetrics 查询组合最新风险指标
func (h *RiskAnalyticsHandler) LatestMetrics(c *gin.Context) {
	portfolioID := c.Param("portfolio_id")

	metrics, err := h.svc.LatestMetrics(c.Request.Context(), portfolioID)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get risk metrics", "portfolio_id", portfolioID, "error", err)
		respondError(c, err)
		return
	}

	response.Success(c, metrics)
}

// MetricsHistory 查询组合历史风险指标
func (h *RiskAnalyticsHandler) MetricsHistory(c *gin.Context) {
	portfolioID := c.Param("portfolio_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	list, err := h.svc.MetricsHistory(c.Request.Context(), portfolioID, limit)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to list risk metrics", "portfolio_id", portfolioID, "error", err)
		respondError(c, err)
		return
	}

	response.Success(c, list)
}

// SubmitSimulation 提交异步模拟任务，受理即返回任务号
func (h *RiskAnalyticsHandler) SubmitSimulation(c *gin.Context) {
	var req application.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	dto, err := h.sim.Submit(c.Request.Context(), &req)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to submit simulation", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto)
}

// SimulationStatus 查询模拟任务状态
func (h *RiskAnalyticsHandler) SimulationStatus(c *gin.Context) {
	simulationID := c.Param("simulation_id")

	dto, err := h.sim.Status(c.Request.Context(), simulationID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, dto)
}

// SimulationResults 获取模拟任务结果
func (h *RiskAnalyticsHandler) SimulationResults(c *gin.Context) {
	simulationID := c.Param("simulation_id")

	result, err := h.sim.Result(c.Request.Context(), simulationID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// CancelSimulation 取消模拟任务
func (h *RiskAnalyticsHandler) CancelSimulation(c *gin.Context) {
	simulationID := c.Param("simulation_id")

	if err := h.sim.Cancel(c.Request.Context(), simulationID); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"simulation_id": simulationID, "status": string(domain.JobCancelled)})
}
