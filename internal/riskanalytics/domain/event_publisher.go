package domain

import "context"

// EventPublisher 领域事件发布端口，由 infrastructure 层实现
type EventPublisher interface {
	PublishRiskReportGenerated(ctx context.Context, event *RiskReportGeneratedEvent) error
	PublishSimulationCompleted(ctx context.Context, event *SimulationCompletedEvent) error
	PublishSimulationFailed(ctx context.Context, event *SimulationFailedEvent) error
	PublishStressTestBreached(ctx context.Context, event *StressTestBreachedEvent) error
}
