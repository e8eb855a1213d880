package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	graphqlclient "github.com/machinebox/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

const AdminSecretHeader = "x-hasura-admin-secret"

var tracer = otel.Tracer("payment-service/graphql")

// Client speaks GraphQL over HTTP. It implements domain.RemoteStore.
type Client struct {
	gql    *graphqlclient.Client
	secret string
}

type options struct {
	httpClient *http.Client
}

type Option func(*options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func NewClient(url, secret string, opts ...Option) *Client {
	o := options{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		gql:    graphqlclient.NewClient(url, graphqlclient.WithHTTPClient(o.httpClient)),
		secret: secret,
	}
}

func (c *Client) Fetch(ctx context.Context, q domain.Query, args domain.Args) (domain.Record, error) {
	return c.do(ctx, q, args)
}

func (c *Client) Mutate(ctx context.Context, q domain.Query, args domain.Args) (domain.Record, error) {
	return c.do(ctx, q, args)
}

func (c *Client) do(ctx context.Context, q domain.Query, args domain.Args) (domain.Record, error) {
	ctx, span := tracer.Start(ctx, "graphql."+q.Name)
	defer span.End()
	span.SetAttributes(attribute.String("graphql.operation", q.Name))

	req := graphqlclient.NewRequest(q.Document)
	for k, v := range args {
		req.Var(k, v)
	}
	if c.secret != "" {
		req.Header.Set(AdminSecretHeader, c.secret)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	var out domain.Record
	if err := c.gql.Run(ctx, req, &out); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	return out, nil
}

// Decode unmarshals the field of rec into v. A missing or null field yields
// domain.ErrNotFound.
func Decode(rec domain.Record, field string, v any) error {
	raw, ok := rec[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", field, err)
	}
	return nil
}
