package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// --- In-memory repositories ---

type memOrders struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	getErr error
}

func newMemOrders(orders ...domain.Order) *memOrders {
	m := &memOrders{orders: map[string]domain.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrders) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = *order
	return nil
}

func (m *memOrders) Get(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memOrders) TransitionStatus(_ context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	m.orders[id] = o
	return true, nil
}

func (m *memOrders) status(id string) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

type memAttempts struct {
	mu        sync.Mutex
	attempts  map[string]domain.PaymentAttempt
	createErr error
}

func newMemAttempts() *memAttempts {
	return &memAttempts{attempts: map[string]domain.PaymentAttempt{}}
}

func (m *memAttempts) ReferenceExists(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.attempts[ref]
	return ok, nil
}

func (m *memAttempts) Create(_ context.Context, a *domain.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.attempts[a.Reference]; ok {
		return domain.ErrDuplicateReference
	}
	for ref, other := range m.attempts {
		if other.OrderID == a.OrderID && other.Status == domain.AttemptStatusOpen {
			other.Status = domain.AttemptStatusSuperseded
			m.attempts[ref] = other
		}
	}
	m.attempts[a.Reference] = *a
	return nil
}

func (m *memAttempts) SetCheckoutURL(_ context.Context, ref, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[ref]
	if ok && a.CheckoutURL == "" {
		a.CheckoutURL = url
		m.attempts[ref] = a
	}
	return nil
}

func (m *memAttempts) FindByReference(_ context.Context, ref string) (*domain.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[ref]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return &a, nil
}

func (m *memAttempts) MarkSettled(_ context.Context, ref string, status domain.AttemptStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[ref]
	if !ok || a.Status != domain.AttemptStatusOpen {
		return false, nil
	}
	a.Status = status
	m.attempts[ref] = a
	return true, nil
}

func (m *memAttempts) get(ref string) (domain.PaymentAttempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[ref]
	return a, ok
}

func (m *memAttempts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

type memEvents struct {
	mu     sync.Mutex
	events []domain.WebhookEvent
}

func (m *memEvents) Append(_ context.Context, e *domain.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memEvents) all() []domain.WebhookEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.WebhookEvent(nil), m.events...)
}

type memAudit struct {
	mu      sync.Mutex
	entries []domain.GatewayCallLog
}

func (m *memAudit) Record(_ context.Context, e *domain.GatewayCallLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

type memContracts struct {
	mu        sync.Mutex
	byOrder   map[string]domain.ServiceContract
	numbers   map[string]bool
	createErr error
}

func newMemContracts() *memContracts {
	return &memContracts{byOrder: map[string]domain.ServiceContract{}, numbers: map[string]bool{}}
}

func (m *memContracts) Create(_ context.Context, c *domain.ServiceContract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.numbers[c.ContractNumber] {
		return domain.ErrDuplicateContractNumber
	}
	if _, ok := m.byOrder[c.OrderID]; ok {
		return domain.ErrContractExists
	}
	m.numbers[c.ContractNumber] = true
	m.byOrder[c.OrderID] = *c
	return nil
}

func (m *memContracts) FindByOrderID(_ context.Context, orderID string) (*domain.ServiceContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memContracts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byOrder)
}

// seqNumbers hands out <prefix>-<year>-<n> from a counter. Numbers listed in
// replay are returned first, to simulate a concurrent allocation.
type seqNumbers struct {
	mu     sync.Mutex
	n      int
	replay []string
}

func (s *seqNumbers) Next(_ context.Context, prefix string, year int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replay) > 0 {
		next := s.replay[0]
		s.replay = s.replay[1:]
		return next, nil
	}
	s.n++
	return fmt.Sprintf("%s-%d-%06d", prefix, year, s.n), nil
}

// --- Mocks ---

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreateCheckout(ctx context.Context, req domain.SignedGatewayRequest) (*domain.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewayResponse), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) NotifyContractProvisioned(ctx context.Context, n domain.ContractNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockPaymentProvider struct{ mock.Mock }

func (m *MockPaymentProvider) VerifyNotification(signatureHeader, requestID, dataID string) bool {
	args := m.Called(signatureHeader, requestID, dataID)
	return args.Bool(0)
}

func (m *MockPaymentProvider) LookupPayment(ctx context.Context, paymentID string) (*domain.ProviderPayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderPayment), args.Error(1)
}

// --- Fixtures ---

func pendingOrder(id string, totalMinor int64) domain.Order {
	return domain.Order{
		ID:         id,
		UserID:     "U1",
		Items:      []domain.OrderItem{{ServiceRef: "svc-basic", ServiceName: "Basic Plan", Quantity: 1, UnitPriceMinor: totalMinor}},
		TotalMinor: totalMinor,
		Currency:   "ZAR",
		Status:     domain.OrderStatusPending,
	}
}

func fixedRefs(refs ...string) ReferenceFunc {
	var mu sync.Mutex
	i := 0
	return func(orderID string) string {
		mu.Lock()
		defer mu.Unlock()
		ref := refs[i%len(refs)]
		i++
		return strings.ReplaceAll(ref, "{order}", orderID)
	}
}
