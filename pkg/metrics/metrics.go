// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/pkg/logging"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// VaR 计算计数（按方法）
	VaRCalculationsTotal *prometheus.CounterVec
	// VaR 计算耗时
	VaRCalculationDuration prometheus.Histogram
	// 降级计算计数（相关矩阵修复失败等）
	DegradedCalculationsTotal prometheus.Counter

	// 压力测试计数
	StressTestsTotal prometheus.Counter

	// 模拟任务指标
	SimulationsSubmittedTotal prometheus.Counter
	SimulationsCompletedTotal prometheus.Counter
	SimulationsFailedTotal    prometheus.Counter
	SimulationsCancelledTotal prometheus.Counter
	SimulationJobsActive      prometheus.Gauge
	SimulationDuration        prometheus.Histogram

	// 风险报告计数
	ReportsGeneratedTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		VaRCalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "var_calculations_total",
			Help:      "Total VaR calculations by method",
		}, []string{"method"}),
		VaRCalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "var_calculation_duration_seconds",
			Help:      "VaR calculation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DegradedCalculationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "degraded_calculations_total",
			Help:      "Calculations that fell back to independent sampling",
		}),

		StressTestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "stress_tests_total",
			Help:      "Total stress test runs",
		}),

		SimulationsSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "simulations_submitted_total",
			Help:      "Total simulation jobs submitted",
		}),
		SimulationsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "simulations_completed_total",
			Help:      "Total simulation jobs completed",
		}),
		SimulationsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "simulations_failed_total",
			Help:      "Total simulation jobs failed",
		}),
		SimulationsCancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "simulations_cancelled_total",
			Help:      "Total simulation jobs cancelled",
		}),
		SimulationJobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "simulation_jobs_active",
			Help:      "Simulation jobs currently queued or running",
		}),
		SimulationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "simulation_duration_seconds",
			Help:      "Simulation job execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		ReportsGeneratedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "energyrisk",
			Subsystem: serviceName,
			Name:      "reports_generated_total",
			Help:      "Total risk reports generated",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	metrics := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.VaRCalculationsTotal,
		m.VaRCalculationDuration,
		m.DegradedCalculationsTotal,
		m.StressTestsTotal,
		m.SimulationsSubmittedTotal,
		m.SimulationsCompletedTotal,
		m.SimulationsFailedTotal,
		m.SimulationsCancelledTotal,
		m.SimulationJobsActive,
		m.SimulationDuration,
		m.ReportsGeneratedTotal,
	}

	for _, metric := range metrics {
		if err := prometheus.DefaultRegisterer.Register(metric); err != nil {
			logging.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logging.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logging.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logging.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
