package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/dto/payment/request"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	publisher "github.com/LavaJover/shvark-payment-service/internal/infrastructure/kafka"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	usecase "github.com/LavaJover/shvark-payment-service/internal/usecase/payment"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 8

// PaymentRequestConsumer feeds new payment request rows from the bus into
// the engine. Requests for the same id are serialised by the engine lock, so
// messages are processed concurrently up to the worker limit.
type PaymentRequestConsumer struct {
	subscriber domain.SubscriberPort
	paymentUc  usecase.PaymentUsecase
	topic      string
	groupID    string
	workers    int
	log        *slog.Logger
	tracer     trace.Tracer
}

func NewPaymentRequestConsumer(subscriber domain.SubscriberPort, paymentUc usecase.PaymentUsecase, topic, groupID string, workers int, log *slog.Logger) *PaymentRequestConsumer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &PaymentRequestConsumer{
		subscriber: subscriber,
		paymentUc:  paymentUc,
		topic:      topic,
		groupID:    groupID,
		workers:    workers,
		log:        log,
		tracer:     otel.Tracer("payment-kafka"),
	}
}

// Run blocks until ctx is cancelled or the subscription ends, then waits for
// in-flight messages.
func (c *PaymentRequestConsumer) Run(ctx context.Context) error {
	msgs, err := c.subscriber.Subscribe(ctx, c.topic, c.groupID)
	if err != nil {
		return err
	}
	c.log.Info("consuming payment requests", "topic", c.topic, "group", c.groupID, "workers", c.workers)

	g := new(errgroup.Group)
	g.SetLimit(c.workers)
	for msg := range msgs {
		g.Go(func() error {
			c.handle(ctx, msg)
			return nil
		})
	}
	return g.Wait()
}

// handle never fails the pool: failures are logged and left to the
// operator or the next redelivery.
func (c *PaymentRequestConsumer) handle(ctx context.Context, msg domain.Message) {
	ctx = publisher.ExtractContext(ctx, msg.Headers)
	ctx, span := c.tracer.Start(ctx, "ConsumePaymentRequest")
	defer span.End()

	input, err := DecodeNewRequest(msg.Value)
	if err != nil {
		c.log.Error("dropping malformed payment request", "key", string(msg.Key), "error", err)
		return
	}

	result, err := c.paymentUc.ProcessNewRequest(ctx, input)
	if err != nil {
		c.log.Error("payment request failed", "payment_request_id", input.ID, "error", err)
		return
	}
	c.log.Info("payment request processed",
		"payment_request_id", result.PaymentRequestID,
		"status", result.Status,
		"noop", result.NoOp,
	)
}

// DecodeNewRequest accepts both the event trigger envelope and a bare row.
func DecodeNewRequest(value []byte) (*paymentdto.NewRequestInput, error) {
	var envelope request.ProcessRequest
	if err := json.Unmarshal(value, &envelope); err != nil {
		return nil, err
	}
	row := envelope.Event.Data.New
	if row.ID == "" {
		if err := json.Unmarshal(value, &row); err != nil {
			return nil, err
		}
	}
	return &paymentdto.NewRequestInput{
		ID:                 row.ID,
		OrganizationID:     row.OrganizationID,
		Amount:             row.Amount,
		Currency:           row.Currency,
		TransferGroup:      row.TransferGroup,
		PaymentMethodToken: row.PaymentMethodToken,
		CustomerGatewayID:  row.CustomerGatewayID,
		SettlementModel:    domain.SettlementModel(row.SettlementModel),
	}, nil
}
