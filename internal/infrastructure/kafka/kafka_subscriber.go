package publisher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/LavaJover/shvark-payment-service/internal/config"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

type DefaultKafkaSubscriber struct {
	brokers []string
	dialer  *kafka.Dialer
	log     *slog.Logger
}

func NewDefaultKafkaSubscriber(cfg config.KafkaService, log *slog.Logger) (*DefaultKafkaSubscriber, error) {
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}
	return &DefaultKafkaSubscriber{brokers: cfg.Brokers, dialer: dialer, log: log}, nil
}

// Subscribe streams messages of topic until ctx is done. The channel is
// closed when the reader stops.
func (k *DefaultKafkaSubscriber) Subscribe(ctx context.Context, topic, groupID string) (<-chan domain.Message, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: groupID,
		Dialer:  k.dialer,
	})
	out := make(chan domain.Message)
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					k.log.Error("kafka read failed", "topic", topic, "error", err)
				}
				return
			}
			select {
			case out <- toDomainMessage(m):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func toDomainMessage(m kafka.Message) domain.Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.Message{Key: m.Key, Value: m.Value, Headers: headers}
}
