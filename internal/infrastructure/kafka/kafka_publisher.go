package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/config"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type DefaultKafkaPublisher struct {
	writer      messageWriter
	eventsTopic string
}

func NewDefaultKafkaPublisher(cfg config.KafkaService) (*DefaultKafkaPublisher, error) {
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &DefaultKafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			Transport:              transport,
			AllowAutoTopicCreation: true,
		},
		eventsTopic: cfg.EventsTopic,
	}, nil
}

// Publish writes msgs to topic. The current trace context travels in the
// message headers.
func (k *DefaultKafkaPublisher) Publish(ctx context.Context, topic string, msgs ...domain.Message) error {
	km := make([]kafka.Message, 0, len(msgs))
	now := time.Now()
	for _, m := range msgs {
		km = append(km, kafka.Message{
			Topic:   topic,
			Key:     m.Key,
			Value:   m.Value,
			Headers: InjectHeaders(ctx, m.Headers),
			Time:    now,
		})
	}
	if err := k.writer.WriteMessages(ctx, km...); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishPaymentEvent is keyed by payment request id so that events of one
// request stay ordered within a partition.
func (k *DefaultKafkaPublisher) PublishPaymentEvent(ctx context.Context, event domain.PaymentEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return k.Publish(ctx, k.eventsTopic, domain.Message{
		Key:   []byte(event.PaymentRequestID),
		Value: v,
		Headers: map[string]string{
			"event_type": event.Checkpoint,
		},
	})
}

func (k *DefaultKafkaPublisher) Close() error {
	return k.writer.Close()
}

// InjectHeaders merges extra with the propagated trace context.
func InjectHeaders(ctx context.Context, extra map[string]string) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range extra {
		carrier[k] = v
	}

	headers := make([]kafka.Header, 0, len(carrier))
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// ExtractContext restores the trace context carried by message headers.
func ExtractContext(ctx context.Context, headers map[string]string) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
}
