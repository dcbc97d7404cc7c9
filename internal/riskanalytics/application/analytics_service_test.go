package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
)

type fakeReadRepo struct {
	mu    sync.Mutex
	saved map[string]*domain.RiskMetrics
}

func newFakeReadRepo() *fakeReadRepo {
	return &fakeReadRepo{saved: make(map[string]*domain.RiskMetrics)}
}

func (f *fakeReadRepo) Save(_ context.Context, m *domain.RiskMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[m.PortfolioID] = m
	return nil
}

func (f *fakeReadRepo) Get(_ context.Context, portfolioID string) (*domain.RiskMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved[portfolioID], nil
}

func (f *fakeReadRepo) Delete(_ context.Context, portfolioID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, portfolioID)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	reports  []*domain.RiskReportGeneratedEvent
	breaches []*domain.StressTestBreachedEvent
}

func (f *fakePublisher) PublishRiskReportGenerated(_ context.Context, e *domain.RiskReportGeneratedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, e)
	return nil
}

func (f *fakePublisher) PublishSimulationCompleted(context.Context, *domain.SimulationCompletedEvent) error {
	return nil
}

func (f *fakePublisher) PublishSimulationFailed(context.Context, *domain.SimulationFailedEvent) error {
	return nil
}

func (f *fakePublisher) PublishStressTestBreached(_ context.Context, e *domain.StressTestBreachedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breaches = append(f.breaches, e)
	return nil
}

func testPortfolioData() PortfolioData {
	return PortfolioData{
		PortfolioID: "PF-SVC",
		TotalValue:  100000,
		Positions: []PositionData{
			{Commodity: "WTI", Quantity: 1000, Price: 100},
		},
		Volatility: 0.25,
	}
}

func newTestService(readRepo domain.MetricsReadRepository, pub domain.EventPublisher) *RiskAnalyticsService {
	return NewRiskAnalyticsService(readRepo, nil, pub, domain.NewStressTestEngine(500, 1), nil, 1000)
}

func TestCalculateVaRByMethod(t *testing.T) {
	svc := newTestService(nil, nil)
	req := &VaRRequest{PortfolioData: testPortfolioData(), ConfidenceLevel: 0.95, TimeHorizon: 1, Seed: 42}

	resp, err := svc.CalculateVaR(context.Background(), domain.MethodParametric, req)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodParametric, resp.Method)
	assert.Equal(t, "PF-SVC", resp.PortfolioID)

	_, err = svc.CalculateVaR(context.Background(), "bogus", req)
	require.Error(t, err)
	assert.Equal(t, domain.ErrInvalidParameter, domain.KindOf(err))
}

func TestExpectedShortfallDefaultsToParametric(t *testing.T) {
	svc := newTestService(nil, nil)
	req := &ExpectedShortfallRequest{PortfolioData: testPortfolioData(), ConfidenceLevel: 0.95, TimeHorizon: 1}

	resp, err := svc.ExpectedShortfall(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodParametric, resp.Method)
}

func TestStressTestPublishesBreach(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(nil, pub)
	req := &StressTestRequest{
		PortfolioData: testPortfolioData(),
		StressScenarios: []ScenarioData{
			{Name: "SEVERE", Type: "PRICE_SHOCK", ShockFactor: -0.4},
			{Name: "MILD", Type: "PRICE_SHOCK", ShockFactor: -0.05},
		},
	}

	resp, err := svc.StressTest(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	// 仅 40% 损失的情景触发预警
	require.Len(t, pub.breaches, 1)
	assert.Equal(t, "SEVERE", pub.breaches[0].Scenario)
	assert.Equal(t, "PF-SVC", pub.breaches[0].PortfolioID)
}

func TestGenerateRiskReportPersistsAndPublishes(t *testing.T) {
	readRepo := newFakeReadRepo()
	pub := &fakePublisher{}
	svc := newTestService(readRepo, pub)

	report, err := svc.GenerateRiskReport(context.Background(), &RiskReportRequest{
		PortfolioData: testPortfolioData(),
		ReportType:    domain.ReportTypeDetailed,
		Seed:          42,
	})
	require.NoError(t, err)
	assert.Contains(t, report.ReportID, "RPT-")
	assert.Equal(t, domain.ReportTypeDetailed, report.ReportType)
	require.NotNil(t, report.Metrics)
	assert.True(t, report.Metrics.VaR95.IsPositive())
	// 详细报告带各方法口径与压力情景，历史法因缺数据被跳过
	assert.Contains(t, report.VaRByMethod, domain.MethodParametric)
	assert.Contains(t, report.VaRByMethod, domain.MethodMonteCarlo)
	assert.NotContains(t, report.VaRByMethod, domain.MethodHistorical)
	require.NotNil(t, report.StressTests)

	cached, err := readRepo.Get(context.Background(), "PF-SVC")
	require.NoError(t, err)
	require.NotNil(t, cached)

	require.Len(t, pub.reports, 1)
	assert.Equal(t, report.ReportID, pub.reports[0].ReportID)
}

func TestLatestMetricsReadThrough(t *testing.T) {
	readRepo := newFakeReadRepo()
	svc := newTestService(readRepo, nil)

	_, err := svc.LatestMetrics(context.Background(), "PF-nope")
	require.Error(t, err)
	assert.Equal(t, domain.ErrNotFound, domain.KindOf(err))

	require.NoError(t, readRepo.Save(context.Background(), &domain.RiskMetrics{PortfolioID: "PF-SVC"}))
	got, err := svc.LatestMetrics(context.Background(), "PF-SVC")
	require.NoError(t, err)
	assert.Equal(t, "PF-SVC", got.PortfolioID)
}
