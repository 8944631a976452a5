package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// IntakeEvent is published for every successful intake. Consumers downstream
// (analytics, compliance) read these off the audit topic.
type IntakeEvent struct {
	RecordID    int64     `json:"recordId"`
	DocumentCID string    `json:"documentCID"`
	UserDID     string    `json:"userDID"`
	RecordType  string    `json:"recordType"`
	ProviderID  string    `json:"providerId"`
	Score       int       `json:"score"`
	Simulated   bool      `json:"simulated"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher emits intake events. Publishing is best effort: failures are
// logged and never block the intake flow.
type Publisher interface {
	PublishIntake(ctx context.Context, event IntakeEvent)
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) Publisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: 5 * time.Second,
		},
		logger: logger.With(zap.String("component", "audit_publisher")),
	}
}

func (p *kafkaPublisher) PublishIntake(ctx context.Context, event IntakeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("encoding intake event failed", zap.Error(err))
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DocumentCID),
		Value: payload,
	})
	if err != nil {
		p.logger.Warn("publishing intake event failed",
			zap.Int64("record_id", event.RecordID),
			zap.Error(err))
		return
	}
	p.logger.Debug("intake event published", zap.Int64("record_id", event.RecordID))
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) PublishIntake(context.Context, IntakeEvent) {}

func (noopPublisher) Close() error { return nil }
