package application

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
	"github.com/wyfcoding/energyrisk/pkg/metrics"
)

const (
	defaultQueueCapacity = 4096
	defaultSweepInterval = time.Minute
)

// SimulationJobManager 异步蒙特卡洛模拟任务管理器
// 提交即返回任务号，固定大小的 worker 池消费队列，终态结果按 TTL 过期清理
type SimulationJobManager struct {
	jobs    domain.JobRepository
	events  domain.EventPublisher
	metrics *metrics.Metrics

	queue      chan string
	workers       int
	jobTimeout    time.Duration
	resultTTL     time.Duration
	sweepInterval time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewSimulationJobManager(
	jobs domain.JobRepository,
	events domain.EventPublisher,
	m *metrics.Metrics,
	workers int,
	jobTimeout, resultTTL time.Duration,
) *SimulationJobManager {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if jobTimeout <= 0 {
		jobTimeout = 60 * time.Second
	}
	if resultTTL <= 0 {
		resultTTL = time.Hour
	}
	return &SimulationJobManager{
		jobs:          jobs,
		events:        events,
		metrics:       m,
		queue:         make(chan string, defaultQueueCapacity),
		workers:       workers,
		jobTimeout:    jobTimeout,
		resultTTL:     resultTTL,
		sweepInterval: defaultSweepInterval,
		cancels:       make(map[string]context.CancelFunc),
	}
}

// SetSweepInterval 调整终态任务清扫周期，需在 Run 之前调用
func (m *SimulationJobManager) SetSweepInterval(d time.Duration) {
	if d > 0 {
		m.sweepInterval = d
	}
}

// Run 启动 worker 池与清扫协程，阻塞直到 ctx 结束
func (m *SimulationJobManager) Run(ctx context.Context) error {
	logging.Info(ctx, "simulation job manager starting",
		"workers", m.workers,
		"job_timeout", m.jobTimeout,
		"result_ttl", m.resultTTL)

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.workerLoop(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.janitorLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	logging.Info(context.Background(), "simulation job manager stopped")
	return nil
}

// Submit 受理模拟请求，校验通过后入队并立即返回任务号
func (m *SimulationJobManager) Submit(ctx context.Context, req *SimulationRequest) (*SubmitSimulationResponse, error) {
	confidence := req.ConfidenceLevel
	if confidence == 0 {
		confidence = 0.95
	}
	horizon := req.TimeHorizon
	if horizon == 0 {
		horizon = 1
	}
	seed := req.Seed
	if seed == 0 {
		// 未指定种子时派生一个并记录在任务参数上，保证结果可复现
		seed = int64(idgen.GenID())
	}
	params := domain.SimulationParams{
		Portfolio:    *req.PortfolioData.ToDomain(),
		Confidence:   confidence,
		Horizon:      horizon,
		Simulations:  req.NumSimulations,
		Seed:         seed,
		Correlations: req.Correlations,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	job := domain.NewSimulationJob(fmt.Sprintf("SIM-%d", idgen.GenID()), params)
	if err := m.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	select {
	case m.queue <- job.JobID:
	default:
		_ = m.jobs.Delete(ctx, job.JobID)
		return nil, domain.NewJobFailedError(job.JobID, "simulation queue is full")
	}

	if m.metrics != nil {
		m.metrics.SimulationsSubmittedTotal.Inc()
		m.metrics.SimulationJobsActive.Inc()
	}
	logging.Info(ctx, "simulation submitted",
		"job_id", job.JobID,
		"portfolio_id", params.Portfolio.PortfolioID,
		"simulations", params.Simulations)
	return &SubmitSimulationResponse{SimulationID: job.JobID, Status: string(domain.JobSubmitted)}, nil
}

// Status 查询任务状态
func (m *SimulationJobManager) Status(ctx context.Context, jobID string) (*SimulationStatusResponse, error) {
	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	resp := &SimulationStatusResponse{
		SimulationID: job.JobID,
		Status:       string(job.Status),
		Error:        job.Error,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
	}
	if !job.CompletedAt.IsZero() {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return resp, nil
}

// Result 获取已完成任务的结果
// 未完成返回 JOB_NOT_READY，失败或已取消返回 JOB_FAILED
func (m *SimulationJobManager) Result(ctx context.Context, jobID string) (*domain.RiskMetrics, error) {
	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case domain.JobCompleted:
		return job.Result, nil
	case domain.JobFailed:
		return nil, domain.NewJobFailedError(jobID, job.Error)
	case domain.JobCancelled:
		return nil, domain.NewJobFailedError(jobID, "job was cancelled")
	default:
		return nil, domain.NewJobNotReadyError(jobID, job.Status)
	}
}

// Cancel 取消排队或执行中的任务
func (m *SimulationJobManager) Cancel(ctx context.Context, jobID string) error {
	var cancelled bool
	job, err := m.jobs.Update(ctx, jobID, func(j *domain.SimulationJob) {
		cancelled = j.MarkCancelled()
	})
	if err != nil {
		return err
	}
	if !cancelled {
		if job.Status == domain.JobCancelled {
			// 重复取消视为幂等成功
			return nil
		}
		return &domain.RiskError{
			Kind:    domain.ErrJobNotReady,
			Message: fmt.Sprintf("job %s already %s, cannot cancel", jobID, job.Status),
		}
	}

	m.mu.Lock()
	if cancelFn, ok := m.cancels[jobID]; ok {
		cancelFn()
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SimulationsCancelledTotal.Inc()
	}
	logging.Info(ctx, "simulation cancelled", "job_id", jobID)
	return nil
}

func (m *SimulationJobManager) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-m.queue:
			m.process(ctx, jobID)
		}
	}
}

func (m *SimulationJobManager) process(ctx context.Context, jobID string) {
	defer func() {
		if m.metrics != nil {
			m.metrics.SimulationJobsActive.Dec()
		}
	}()

	var running bool
	job, err := m.jobs.Update(ctx, jobID, func(j *domain.SimulationJob) {
		running = j.MarkRunning()
	})
	if err != nil || !running {
		// 排队期间被取消或已清理
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, m.jobTimeout)
	m.mu.Lock()
	m.cancels[jobID] = cancel
	m.mu.Unlock()
	defer func() {
		cancel()
		m.mu.Lock()
		delete(m.cancels, jobID)
		m.mu.Unlock()
	}()

	start := time.Now()
	type outcome struct {
		result *domain.RiskMetrics
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, execErr := executeSimulation(&job.Params)
		done <- outcome{result: result, err: execErr}
	}()

	select {
	case <-jobCtx.Done():
		if jobCtx.Err() == context.DeadlineExceeded {
			m.failJob(ctx, job, domain.NewTimeoutError("simulation", m.jobTimeout).Message)
		}
		// 主动取消时状态已由 Cancel 落盘，这里只回收
		return
	case out := <-done:
		if out.err != nil {
			m.failJob(ctx, job, out.err.Error())
			return
		}
		var completed bool
		_, updateErr := m.jobs.Update(ctx, jobID, func(j *domain.SimulationJob) {
			completed = j.MarkCompleted(out.result)
		})
		if updateErr != nil || !completed {
			// 迟到结果直接丢弃
			return
		}
		elapsed := time.Since(start)
		if m.metrics != nil {
			m.metrics.SimulationsCompletedTotal.Inc()
			m.metrics.SimulationDuration.Observe(elapsed.Seconds())
		}
		if m.events != nil {
			event := &domain.SimulationCompletedEvent{
				JobID:       jobID,
				PortfolioID: job.Params.Portfolio.PortfolioID,
				VaR95:       out.result.VaR95.String(),
				VaR99:       out.result.VaR99.String(),
				DurationMs:  elapsed.Milliseconds(),
				OccurredOn:  time.Now(),
			}
			if pubErr := m.events.PublishSimulationCompleted(ctx, event); pubErr != nil {
				logging.Error(ctx, "failed to publish completion event", "job_id", jobID, "error", pubErr)
			}
		}
		logging.Info(ctx, "simulation completed",
			"job_id", jobID,
			"duration_ms", elapsed.Milliseconds(),
			"var_95", out.result.VaR95.String())
	}
}

func (m *SimulationJobManager) failJob(ctx context.Context, job *domain.SimulationJob, reason string) {
	var failed bool
	_, err := m.jobs.Update(ctx, job.JobID, func(j *domain.SimulationJob) {
		failed = j.MarkFailed(reason)
	})
	if err != nil || !failed {
		return
	}
	if m.metrics != nil {
		m.metrics.SimulationsFailedTotal.Inc()
	}
	if m.events != nil {
		event := &domain.SimulationFailedEvent{
			JobID:       job.JobID,
			PortfolioID: job.Params.Portfolio.PortfolioID,
			Reason:      reason,
			OccurredOn:  time.Now(),
		}
		if pubErr := m.events.PublishSimulationFailed(ctx, event); pubErr != nil {
			logging.Error(ctx, "failed to publish failure event", "job_id", job.JobID, "error", pubErr)
		}
	}
	logging.Warn(ctx, "simulation failed", "job_id", job.JobID, "reason", reason)
}

func (m *SimulationJobManager) janitorLoop(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := m.jobs.SweepExpired(ctx, time.Now(), m.resultTTL)
			if err != nil {
				logging.Error(ctx, "job sweep failed", "error", err)
				continue
			}
			if swept > 0 {
				logging.Info(ctx, "expired jobs swept", "count", swept)
			}
		}
	}
}

// executeSimulation 执行蒙特卡洛模拟并产出标准指标集
func executeSimulation(params *domain.SimulationParams) (*domain.RiskMetrics, error) {
	mc := &domain.MonteCarloVaR{
		Simulations:  params.Simulations,
		Seed:         params.Seed,
		Correlations: params.Correlations,
	}
	p := &params.Portfolio

	var95, err := mc.Calculate(p, 0.95, params.Horizon)
	if err != nil {
		return nil, err
	}
	var99, err := mc.Calculate(p, 0.99, params.Horizon)
	if err != nil {
		return nil, err
	}
	es, err := mc.Shortfall(p, params.Confidence, params.Horizon)
	if err != nil {
		return nil, err
	}

	result := &domain.RiskMetrics{
		PortfolioID:       p.PortfolioID,
		VaR95:             var95.Value,
		VaR99:             var99.Value,
		ExpectedShortfall: es.Value,
		Method:            domain.MethodMonteCarlo,
		Degraded:          var95.Degraded || var99.Degraded || es.Degraded,
		CalculatedAt:      time.Now(),
	}
	if vol, volErr := p.AnnualVolatility(); volErr == nil {
		result.Volatility = decimalFromFloat(vol)
	}
	if len(p.HistoricalReturns) >= 2 {
		result.SharpeRatio = decimalFromFloat(domain.SharpeRatio(p.HistoricalReturns, 0, domain.DefaultAnnualization))
		result.MaxDrawdown = decimalFromFloat(domain.MaxDrawdown(p.HistoricalReturns))
	}
	return result, nil
}
