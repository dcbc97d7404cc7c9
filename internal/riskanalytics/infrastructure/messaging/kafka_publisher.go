// Package messaging 实现基于 Kafka 的领域事件发布
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/energyrisk/internal/riskanalytics/domain"
)

// 事件主题
const (
	TopicRiskReport = "risk.report"
	TopicSimulation = "risk.simulation"
	TopicStress     = "risk.stress"
)

// KafkaEventPublisher 领域事件的 Kafka 发布器
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher 创建发布器，等待全部副本确认
func NewKafkaEventPublisher(brokers []string) *KafkaEventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
	logging.Info(context.Background(), "kafka event publisher created", "brokers", brokers)
	return &KafkaEventPublisher{writer: writer}
}

func (p *KafkaEventPublisher) PublishRiskReportGenerated(ctx context.Context, event *domain.RiskReportGeneratedEvent) error {
	return p.publish(ctx, TopicRiskReport, event.PortfolioID, event)
}

func (p *KafkaEventPublisher) PublishSimulationCompleted(ctx context.Context, event *domain.SimulationCompletedEvent) error {
	return p.publish(ctx, TopicSimulation, event.JobID, event)
}

func (p *KafkaEventPublisher) PublishSimulationFailed(ctx context.Context, event *domain.SimulationFailedEvent) error {
	return p.publish(ctx, TopicSimulation, event.JobID, event)
}

func (p *KafkaEventPublisher) PublishStressTestBreached(ctx context.Context, event *domain.StressTestBreachedEvent) error {
	return p.publish(ctx, TopicStress, event.PortfolioID, event)
}

func (p *KafkaEventPublisher) publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logging.Error(ctx, "failed to publish event", "topic", topic, "key", key, "error", err)
		return err
	}
	logging.Debug(ctx, "event published", "topic", topic, "key", key)
	return nil
}

// Close 关闭底层 writer
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
