package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultBaseURL = stripego.APIURL

var tracer = otel.Tracer("payment-service/gateway")

var _ domain.Gateway = (*Client)(nil)

// Client implements domain.Gateway on top of stripe-go.
type Client struct {
	api *client.API
	log *slog.Logger
}

type options struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	retries    int64
}

type Option func(*options)

func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMaxNetworkRetries overrides the stripe-go retry count.
func WithMaxNetworkRetries(n int64) Option {
	return func(o *options) { o.retries = n }
}

func NewClient(secretKey string, opts ...Option) *Client {
	o := options{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        slog.Default(),
		retries:    2,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.baseURL == "" {
		o.baseURL = DefaultBaseURL
	}

	backend := stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
		URL:               stripego.String(o.baseURL),
		HTTPClient:        o.httpClient,
		MaxNetworkRetries: stripego.Int64(o.retries),
		LeveledLogger:     leveledLogger{log: o.log},
		EnableTelemetry:   stripego.Bool(false),
	})

	return &Client{
		api: client.New(secretKey, &stripego.Backends{API: backend, Connect: backend, Uploads: backend}),
		log: o.log,
	}
}

// params prepares the shared request parameters of one call.
func params(ctx context.Context, p *stripego.Params, account, idempotencyKey string) {
	p.Context = ctx
	if account != "" {
		p.SetStripeAccount(account)
	}
	if idempotencyKey != "" {
		p.SetIdempotencyKey(idempotencyKey)
	}
}

func (c *Client) span(ctx context.Context, op, account string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "stripe."+op)
	span.SetAttributes(
		attribute.String("stripe.op", op),
		attribute.Bool("stripe.connected_account", account != ""),
	)
	return ctx, span
}

// fail converts a stripe-go error into *domain.GatewayError carrying the
// error object as payload.
func (c *Client) fail(span trace.Span, op string, err error) error {
	span.SetStatus(codes.Error, err.Error())

	var stripeErr *stripego.Error
	if !errors.As(err, &stripeErr) {
		return &domain.GatewayError{Op: op, Err: err}
	}

	payload, _ := json.Marshal(map[string]any{"error": stripeErr})
	c.log.Warn("stripe request failed",
		"op", op,
		"status", stripeErr.HTTPStatusCode,
		"code", stripeErr.Code,
		"request_id", stripeErr.RequestID,
	)
	return &domain.GatewayError{Op: op, Err: err, Payload: payload}
}

// rawJSON is the object exactly as Stripe returned it.
func rawJSON(resp *stripego.APIResponse, v any) json.RawMessage {
	if resp != nil && len(resp.RawJSON) > 0 {
		return json.RawMessage(resp.RawJSON)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// leveledLogger routes stripe-go logs into slog.
type leveledLogger struct {
	log *slog.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l leveledLogger) Infof(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l leveledLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l leveledLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
