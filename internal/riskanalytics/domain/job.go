package domain

import (
	"time"
)

// JobStatus 模拟任务状态
type JobStatus string

const (
	JobSubmitted JobStatus = "SUBMITTED"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// Terminal 终态任务不再接受状态转换
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// SimulationParams 异步蒙特卡洛模拟请求参数
type SimulationParams struct {
	Portfolio   PortfolioSnapshot `json:"portfolio"`
	Confidence  float64           `json:"confidence"`
	Horizon     float64           `json:"horizon"`
	Simulations int               `json:"simulations"`
	Seed        int64             `json:"seed"`
	// Correlations 可选的显式相关矩阵
	Correlations [][]float64 `json:"correlations,omitempty"`
}

// Validate 提交前的快速校验，重计算错误留给执行阶段
func (p *SimulationParams) Validate() error {
	if err := p.Portfolio.Validate(); err != nil {
		return err
	}
	if p.Confidence <= 0 || p.Confidence >= 1 {
		return NewInvalidParameterError("confidence must be in (0,1), got %v", p.Confidence)
	}
	if p.Horizon <= 0 {
		return NewInvalidParameterError("time horizon must be positive, got %v", p.Horizon)
	}
	if p.Simulations < 0 {
		return NewInvalidParameterError("simulations must not be negative, got %d", p.Simulations)
	}
	return nil
}

// SimulationJob 异步模拟任务
// 状态机：SUBMITTED -> RUNNING -> COMPLETED/FAILED，SUBMITTED/RUNNING 可被取消
type SimulationJob struct {
	JobID       string           `json:"job_id"`
	Status      JobStatus        `json:"status"`
	Params      SimulationParams `json:"params"`
	Result      *RiskMetrics     `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   time.Time        `json:"started_at,omitempty"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
}

func NewSimulationJob(jobID string, params SimulationParams) *SimulationJob {
	return &SimulationJob{
		JobID:     jobID,
		Status:    JobSubmitted,
		Params:    params,
		CreatedAt: time.Now(),
	}
}

// MarkRunning 仅允许从 SUBMITTED 进入 RUNNING
func (j *SimulationJob) MarkRunning() bool {
	if j.Status != JobSubmitted {
		return false
	}
	j.Status = JobRunning
	j.StartedAt = time.Now()
	return true
}

// MarkCompleted 终态优先：已取消或已失败的任务丢弃迟到结果
func (j *SimulationJob) MarkCompleted(result *RiskMetrics) bool {
	if j.Status != JobRunning {
		return false
	}
	j.Status = JobCompleted
	j.Result = result
	j.CompletedAt = time.Now()
	return true
}

func (j *SimulationJob) MarkFailed(reason string) bool {
	if j.Status.Terminal() {
		return false
	}
	j.Status = JobFailed
	j.Error = reason
	j.CompletedAt = time.Now()
	return true
}

// MarkCancelled 取消是幂等的：对终态任务返回 false 但不改变状态
func (j *SimulationJob) MarkCancelled() bool {
	if j.Status.Terminal() {
		return false
	}
	j.Status = JobCancelled
	j.CompletedAt = time.Now()
	return true
}

// Clone 返回副本，仓储读取时避免共享可变状态
func (j *SimulationJob) Clone() *SimulationJob {
	cp := *j
	return &cp
}
