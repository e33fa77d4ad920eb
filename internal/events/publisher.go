// Package events publishes domain events to Kafka for downstream consumers
// (notification fan-in, analytics). Publishing is fire-and-forget: a broker
// failure is logged and never fails the originating operation.
package events

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

type Sink interface {
	Publish(ctx context.Context, evtType string, payload any)
	Close() error
}

type KafkaSink struct {
	writer *kafkago.Writer
	logger *zap.SugaredLogger
}

func NewKafkaSink(brokers []string, topic string, logger *zap.SugaredLogger) *KafkaSink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
	}
	return &KafkaSink{writer: w, logger: logger}
}

func (s *KafkaSink) Publish(ctx context.Context, evtType string, payload any) {
	b, err := json.Marshal(Event{Type: evtType, At: time.Now().UTC(), Payload: payload})
	if err != nil {
		s.logger.Warnw("event marshal", "type", evtType, "err", err)
		return
	}
	msg := kafkago.Message{
		Key:   []byte(evtType),
		Value: b,
		Time:  time.Now(),
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Warnw("kafka publish", "type", evtType, "err", err)
	}
}

func (s *KafkaSink) Close() error { return s.writer.Close() }

// NopSink drops all events. Used in tests and when Kafka is not configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, any) {}
func (NopSink) Close() error                         { return nil }
