package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/lock"
	"github.com/stretchr/testify/mock"
)

// memLedger keeps the same append-only and forward-only rules as the
// postgres repository.
type memLedger struct {
	mu       sync.Mutex
	orgs     map[string]*domain.Organization
	requests map[string]*domain.PaymentRequest
	contacts map[string]*domain.CustomerContact
	backlog  map[string]*domain.PendingOrderSync

	failCheckpoint error
}

func newMemLedger() *memLedger {
	return &memLedger{
		orgs:     make(map[string]*domain.Organization),
		requests: make(map[string]*domain.PaymentRequest),
		contacts: make(map[string]*domain.CustomerContact),
		backlog:  make(map[string]*domain.PendingOrderSync),
	}
}

func cloneRequest(r *domain.PaymentRequest) *domain.PaymentRequest {
	c := *r
	c.StatusHistory = append([]domain.HistoryEntry(nil), r.StatusHistory...)
	return &c
}

func (m *memLedger) GetOrganization(_ context.Context, id string) (*domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *org
	return &c, nil
}

func (m *memLedger) GetOrganizationByGatewayAccount(_ context.Context, account string) (*domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, org := range m.orgs {
		if org.GatewayAccountID == account {
			c := *org
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) CreatePaymentRequest(_ context.Context, req *domain.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[req.ID]; ok {
		return errors.New("duplicate payment request")
	}
	m.requests[req.ID] = cloneRequest(req)
	return nil
}

func (m *memLedger) GetPaymentRequest(_ context.Context, id string) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (m *memLedger) FindPaymentRequest(_ context.Context, orgID, transferGroup string) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.OrganizationID == orgID && req.TransferGroup == transferGroup {
			return cloneRequest(req), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) FindPaymentRequestByGatewayID(_ context.Context, gatewayID string) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.GatewayChargeID == gatewayID || req.GatewayInvoiceID == gatewayID {
			return cloneRequest(req), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) RecordCheckpoint(_ context.Context, id string, cp domain.Checkpoint) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCheckpoint != nil {
		return nil, m.failCheckpoint
	}
	req, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	entry := domain.HistoryEntry{
		Seq:        int64(len(req.StatusHistory) + 1),
		Status:     cp.Status,
		Source:     cp.Name,
		Payload:    cp.Payload,
		RecordedAt: time.Now(),
	}
	req.StatusHistory = append([]domain.HistoryEntry{entry}, req.StatusHistory...)

	if !cp.Moves(req.Status) {
		cp.Status = ""
	}
	req.Apply(cp)
	return cloneRequest(req), nil
}

func (m *memLedger) Reattempt(_ context.Context, id, token string) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	req.RetryAttempt++
	req.PaymentMethodToken = token
	req.Status = domain.StatusPending
	req.StatusHistory = append([]domain.HistoryEntry{{
		Seq:    int64(len(req.StatusHistory) + 1),
		Status: domain.StatusPending,
		Source: "reattempt",
	}}, req.StatusHistory...)
	return cloneRequest(req), nil
}

func (m *memLedger) GetCustomerContact(_ context.Context, token string) (*domain.CustomerContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *memLedger) AddPendingOrderSync(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.backlog[id]
	if !ok {
		m.backlog[id] = &domain.PendingOrderSync{PaymentRequestID: id, Reason: reason, Attempts: 1}
		return nil
	}
	p.Reason = reason
	p.Attempts++
	return nil
}

func (m *memLedger) ListPendingOrderSyncs(_ context.Context, limit int) ([]domain.PendingOrderSync, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PendingOrderSync, 0, len(m.backlog))
	for _, p := range m.backlog {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentRequestID < out[j].PaymentRequestID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLedger) ResolvePendingOrderSync(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.backlog, id)
	return nil
}

func (m *memLedger) request(t *testing.T, id string) *domain.PaymentRequest {
	t.Helper()
	req, err := m.GetPaymentRequest(context.Background(), id)
	if err != nil {
		t.Fatalf("payment request %s: %v", id, err)
	}
	return req
}

type memOrders struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	fail    error
	updates int
	urls    []string
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]*domain.Order)}
}

func (m *memOrders) factory(baseURL, _ string) domain.OrderStore {
	m.mu.Lock()
	m.urls = append(m.urls, baseURL)
	m.mu.Unlock()
	return m
}

func (m *memOrders) GetOrder(_ context.Context, cartID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[cartID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (m *memOrders) LinkPayment(_ context.Context, cartID, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	o := m.order(cartID)
	o.PaymentID = paymentID
	return nil
}

func (m *memOrders) UpdatePayment(_ context.Context, u domain.OrderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.updates++
	o := m.order(u.CartID)
	o.PaymentID = u.PaymentID
	o.PaymentStatus = u.PaymentStatus
	o.GatewayChargeID = u.GatewayChargeID
	o.GatewayInvoiceID = u.GatewayInvoiceID
	o.PaymentHistory = u.History
	o.PaymentUpdatedAt = u.UpdatedAt
	return nil
}

func (m *memOrders) order(cartID string) *domain.Order {
	o, ok := m.orders[cartID]
	if !ok {
		o = &domain.Order{CartID: cartID}
		m.orders[cartID] = o
	}
	return o
}

func (m *memOrders) setFail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

type mockGateway struct {
	mock.Mock
}

func chargeResult(args mock.Arguments) (*domain.Charge, error) {
	c, _ := args.Get(0).(*domain.Charge)
	return c, args.Error(1)
}

func invoiceResult(args mock.Arguments) (*domain.Invoice, error) {
	inv, _ := args.Get(0).(*domain.Invoice)
	return inv, args.Error(1)
}

func (g *mockGateway) CreateCharge(ctx context.Context, params domain.ChargeParams) (*domain.Charge, error) {
	return chargeResult(g.Called(ctx, params))
}

func (g *mockGateway) CreateInvoice(ctx context.Context, params domain.InvoiceParams) (*domain.Invoice, error) {
	return invoiceResult(g.Called(ctx, params))
}

func (g *mockGateway) FinalizeInvoice(ctx context.Context, account, invoiceID string) (*domain.Invoice, error) {
	return invoiceResult(g.Called(ctx, account, invoiceID))
}

func (g *mockGateway) PayInvoice(ctx context.Context, account, invoiceID, paymentMethod string) (*domain.Invoice, error) {
	return invoiceResult(g.Called(ctx, account, invoiceID, paymentMethod))
}

func (g *mockGateway) RetrieveCharge(ctx context.Context, account, chargeID string) (*domain.Charge, error) {
	return chargeResult(g.Called(ctx, account, chargeID))
}

func (g *mockGateway) RetrieveInvoice(ctx context.Context, account, invoiceID string) (*domain.Invoice, error) {
	return invoiceResult(g.Called(ctx, account, invoiceID))
}

func (g *mockGateway) CancelCharge(ctx context.Context, account, chargeID string) (*domain.Charge, error) {
	return chargeResult(g.Called(ctx, account, chargeID))
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	fail error
}

func (n *recordingNotifier) Send(_ context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, msg)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.PaymentEvent
}

func (p *recordingPublisher) PublishPaymentEvent(_ context.Context, e domain.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDedup) Seen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[id] {
		return true, nil
	}
	d.seen[id] = true
	return false, nil
}

func (d *memDedup) Forget(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	return nil
}

type harness struct {
	uc        *DefaultPaymentUsecase
	ledger    *memLedger
	orders    *memOrders
	gateway   *mockGateway
	notifier  *recordingNotifier
	publisher *recordingPublisher
	dedup     *memDedup
}

func newHarness(orgs ...*domain.Organization) *harness {
	h := &harness{
		ledger:    newMemLedger(),
		orders:    newMemOrders(),
		gateway:   &mockGateway{},
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		dedup:     &memDedup{},
	}
	for _, org := range orgs {
		h.ledger.orgs[org.ID] = org
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.uc = NewDefaultPaymentUsecase(
		h.ledger,
		h.ledger,
		h.orders.factory,
		h.gateway,
		h.notifier,
		h.publisher,
		h.dedup,
		lock.NewKeyed(),
		nil,
		nil,
		Options{
			Timeouts: Timeouts{Gateway: time.Second, Store: time.Second, Notification: time.Second, Lock: time.Second},
			Logger:   logger,
		},
	)
	return h
}
