package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
	"github.com/wyfcoding/energyrisk/pkg/metrics"
)

// breachLossRatio 压力情景损失超过组合市值该比例时发布预警事件
const breachLossRatio = 0.3

// RiskAnalyticsService 风险分析应用服务
// 编排 VaR 计算、压力测试与报告生成，并负责读模型与历史留痕
type RiskAnalyticsService struct {
	readRepo domain.MetricsReadRepository
	history  domain.MetricsHistoryRepository
	events   domain.EventPublisher
	stress   *domain.StressTestEngine
	metrics  *metrics.Metrics

	defaultSimulations int
}

func NewRiskAnalyticsService(
	readRepo domain.MetricsReadRepository,
	history domain.MetricsHistoryRepository,
	events domain.EventPublisher,
	stress *domain.StressTestEngine,
	m *metrics.Metrics,
	defaultSimulations int,
) *RiskAnalyticsService {
	if defaultSimulations <= 0 {
		defaultSimulations = domain.DefaultSimulations
	}
	return &RiskAnalyticsService{
		readRepo:           readRepo,
		history:            history,
		events:             events,
		stress:             stress,
		metrics:            m,
		defaultSimulations: defaultSimulations,
	}
}

// CalculateVaR 按指定方法计算在险价值
func (s *RiskAnalyticsService) CalculateVaR(ctx context.Context, methodName string, req *VaRRequest) (*VaRResponse, error) {
	method, err := domain.NewVaRMethod(methodName, s.numSimulations(req.NumSimulations), req.Seed)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	snapshot := req.PortfolioData.ToDomain()
	result, err := method.Calculate(snapshot, req.ConfidenceLevel, req.TimeHorizon)
	if err != nil {
		return nil, err
	}
	s.observeVaR(methodName, start, result.Degraded)

	logging.Info(ctx, "var calculated",
		"portfolio_id", snapshot.PortfolioID,
		"method", methodName,
		"confidence", req.ConfidenceLevel,
		"value", result.Value.String(),
		"degraded", result.Degraded)
	return varResponse(snapshot.PortfolioID, result), nil
}

// ExpectedShortfall 计算预期亏损，方法缺省为参数法
func (s *RiskAnalyticsService) ExpectedShortfall(ctx context.Context, req *ExpectedShortfallRequest) (*VaRResponse, error) {
	methodName := req.Method
	if methodName == "" {
		methodName = domain.MethodParametric
	}
	method, err := domain.NewVaRMethod(methodName, s.numSimulations(req.NumSimulations), req.Seed)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	snapshot := req.PortfolioData.ToDomain()
	result, err := method.Shortfall(snapshot, req.ConfidenceLevel, req.TimeHorizon)
	if err != nil {
		return nil, err
	}
	s.observeVaR(methodName, start, result.Degraded)

	logging.Info(ctx, "expected shortfall calculated",
		"portfolio_id", snapshot.PortfolioID,
		"method", methodName,
		"value", result.Value.String())
	return varResponse(snapshot.PortfolioID, result), nil
}

// StressTest 对组合执行用户给定的压力情景
func (s *RiskAnalyticsService) StressTest(ctx context.Context, req *StressTestRequest) (*StressTestResponse, error) {
	snapshot := req.PortfolioData.ToDomain()
	scenarios := make([]domain.StressScenario, 0, len(req.StressScenarios))
	for i := range req.StressScenarios {
		scenarios = append(scenarios, req.StressScenarios[i].toDomain())
	}

	results, err := s.stress.Run(snapshot, scenarios)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.StressTestsTotal.Inc()
	}
	s.publishBreaches(ctx, snapshot, results)

	resp := &StressTestResponse{
		PortfolioID: snapshot.PortfolioID,
		Results:     make(map[string]*StressImpactData, len(results)),
	}
	for name, impact := range results {
		resp.Results[name] = stressImpactData(impact)
	}
	return resp, nil
}

// ScenarioAnalysis 多情景分析，情景缺省时使用内置情景库
func (s *RiskAnalyticsService) ScenarioAnalysis(ctx context.Context, req *ScenarioAnalysisRequest) (*ScenarioAnalysisResponse, error) {
	snapshot := req.PortfolioData.ToDomain()
	var scenarios []domain.StressScenario
	for i := range req.Scenarios {
		scenarios = append(scenarios, req.Scenarios[i].toDomain())
	}

	analysis, err := s.stress.Analyze(snapshot, scenarios)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.StressTestsTotal.Inc()
	}
	s.publishBreaches(ctx, snapshot, analysis.Results)

	resp := &ScenarioAnalysisResponse{
		PortfolioID: snapshot.PortfolioID,
		Results:     make(map[string]*StressImpactData, len(analysis.Results)),
		WorstCase:   analysis.WorstCase,
		WorstPnL:    analysis.WorstPnL.String(),
	}
	for name, impact := range analysis.Results {
		resp.Results[name] = stressImpactData(impact)
	}
	return resp, nil
}

// GenerateRiskReport 生成聚合风险报告并落库、发布事件
func (s *RiskAnalyticsService) GenerateRiskReport(ctx context.Context, req *RiskReportRequest) (*domain.RiskReport, error) {
	snapshot := req.PortfolioData.ToDomain()
	reportType := req.ReportType
	if reportType == "" {
		reportType = domain.ReportTypeSummary
	}
	if reportType != domain.ReportTypeSummary && reportType != domain.ReportTypeDetailed {
		return nil, domain.NewInvalidParameterError("unknown report type %q", reportType)
	}

	riskMetrics, err := domain.BuildRiskMetrics(snapshot, s.defaultSimulations, req.Seed)
	if err != nil {
		return nil, err
	}

	report := &domain.RiskReport{
		ReportID:    fmt.Sprintf("RPT-%d", idgen.GenID()),
		PortfolioID: snapshot.PortfolioID,
		ReportType:  reportType,
		Metrics:     riskMetrics,
		GeneratedAt: time.Now(),
	}

	if reportType == domain.ReportTypeDetailed {
		report.VaRByMethod = make(map[string]*domain.VaRResult)
		for _, name := range []string{domain.MethodParametric, domain.MethodHistorical, domain.MethodMonteCarlo} {
			method, _ := domain.NewVaRMethod(name, s.defaultSimulations, req.Seed)
			if res, calcErr := method.Calculate(snapshot, 0.95, 1); calcErr == nil {
				report.VaRByMethod[name] = res
			} else {
				// 个别方法数据不足不阻塞整份报告
				logging.Warn(ctx, "report method skipped", "method", name, "error", calcErr)
			}
		}
		analysis, stressErr := s.stress.Analyze(snapshot, nil)
		if stressErr != nil {
			logging.Warn(ctx, "report stress analysis skipped", "error", stressErr)
		} else {
			report.StressTests = analysis
		}
	}

	// 读模型与历史留痕失败降级为日志，不影响报告返回
	if s.readRepo != nil {
		if err := s.readRepo.Save(ctx, riskMetrics); err != nil {
			logging.Error(ctx, "failed to cache risk metrics", "portfolio_id", snapshot.PortfolioID, "error", err)
		}
	}
	if s.history != nil {
		if err := s.history.Append(ctx, riskMetrics); err != nil {
			logging.Error(ctx, "failed to persist risk metrics", "portfolio_id", snapshot.PortfolioID, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.ReportsGeneratedTotal.Inc()
	}
	if s.events != nil {
		event := &domain.RiskReportGeneratedEvent{
			ReportID:          report.ReportID,
			PortfolioID:       snapshot.PortfolioID,
			VaR95:             riskMetrics.VaR95.String(),
			VaR99:             riskMetrics.VaR99.String(),
			ExpectedShortfall: riskMetrics.ExpectedShortfall.String(),
			Degraded:          riskMetrics.Degraded,
			OccurredOn:        time.Now(),
		}
		if err := s.events.PublishRiskReportGenerated(ctx, event); err != nil {
			logging.Error(ctx, "failed to publish report event", "report_id", report.ReportID, "error", err)
		}
	}

	logging.Info(ctx, "risk report generated",
		"report_id", report.ReportID,
		"portfolio_id", snapshot.PortfolioID,
		"type", reportType)
	return report, nil
}

// LatestMetrics 查询组合最新风险指标，先读缓存再回源历史库
func (s *RiskAnalyticsService) LatestMetrics(ctx context.Context, portfolioID string) (*domain.RiskMetrics, error) {
	if portfolioID == "" {
		return nil, domain.NewInvalidParameterError("portfolio_id is required")
	}
	if s.readRepo != nil {
		cached, err := s.readRepo.Get(ctx, portfolioID)
		if err != nil {
			logging.Warn(ctx, "metrics cache read failed", "portfolio_id", portfolioID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}
	if s.history != nil {
		latest, err := s.history.LatestByPortfolio(ctx, portfolioID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			return latest, nil
		}
	}
	return nil, domain.NewNotFoundError("no risk metrics for portfolio %s", portfolioID)
}

// MetricsHistory 查询组合历史风险指标
func (s *RiskAnalyticsService) MetricsHistory(ctx context.Context, portfolioID string, limit int) ([]*domain.RiskMetrics, error) {
	if portfolioID == "" {
		return nil, domain.NewInvalidParameterError("portfolio_id is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListByPortfolio(ctx, portfolioID, limit)
}

func (s *RiskAnalyticsService) numSimulations(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.defaultSimulations
}

func (s *RiskAnalyticsService) observeVaR(method string, start time.Time, degraded bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.VaRCalculationsTotal.WithLabelValues(method).Inc()
	s.metrics.VaRCalculationDuration.Observe(time.Since(start).Seconds())
	if degraded {
		s.metrics.DegradedCalculationsTotal.Inc()
	}
}

func (s *RiskAnalyticsService) publishBreaches(ctx context.Context, snapshot *domain.PortfolioSnapshot, results map[string]*domain.StressImpact) {
	if s.events == nil {
		return
	}
	for name, impact := range results {
		if impact.PreValue.IsZero() {
			continue
		}
		lossRatio := impact.PnL.Neg().Div(impact.PreValue)
		if lossRatio.InexactFloat64() < breachLossRatio {
			continue
		}
		event := &domain.StressTestBreachedEvent{
			PortfolioID: snapshot.PortfolioID,
			Scenario:    name,
			PnL:         impact.PnL.String(),
			LossRatio:   lossRatio.Round(6).String(),
			OccurredOn:  time.Now(),
		}
		if err := s.events.PublishStressTestBreached(ctx, event); err != nil {
			logging.Error(ctx, "failed to publish stress breach event", "scenario", name, "error", err)
		}
	}
}
