// Package memory 提供模拟任务的内存登记表实现
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
)

// JobRepository 内存任务登记表，带读写锁保护
// 任务结果只存内存，服务重启即失效，审计留痕由 MySQL 负责
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.SimulationJob
}

func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]*domain.SimulationJob)}
}

func (r *JobRepository) Save(_ context.Context, job *domain.SimulationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.JobID] = job.Clone()
	return nil
}

func (r *JobRepository) Get(_ context.Context, jobID string) (*domain.SimulationJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.NewJobNotFoundError(jobID)
	}
	return job.Clone(), nil
}

// Update 在锁内执行 fn 保证状态转换原子，返回更新后的副本
func (r *JobRepository) Update(_ context.Context, jobID string, fn func(*domain.SimulationJob)) (*domain.SimulationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.NewJobNotFoundError(jobID)
	}
	fn(job)
	return job.Clone(), nil
}

func (r *JobRepository) Delete(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	return nil
}

// SweepExpired 清理完成时间早于 now-ttl 的终态任务
func (r *JobRepository) SweepExpired(_ context.Context, now time.Time, ttl time.Duration) (int, error) {
	cutoff := now.Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	swept := 0
	for id, job := range r.jobs {
		if job.Status.Terminal() && !job.CompletedAt.IsZero() && job.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			swept++
		}
	}
	return swept, nil
}
