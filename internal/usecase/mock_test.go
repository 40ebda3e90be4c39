//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"razorpay-subscription-service/internal/domain"
	"razorpay-subscription-service/internal/domain/model"
	"razorpay-subscription-service/internal/domain/ports/adapter"
	"razorpay-subscription-service/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Repositories
// =============================

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*model.Payment

	SaveFunc           func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc       func(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error)
	UpdateStatusIfFunc func(ctx context.Context, tx repository.Tx, orderID string, status model.PaymentStatus, paymentID string, allowed ...model.PaymentStatus) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{payments: map[string]*model.Payment{}}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, orderID string, status model.PaymentStatus, paymentID string, allowed ...model.PaymentStatus) (bool, error) {
	if m.UpdateStatusIfFunc != nil {
		return m.UpdateStatusIfFunc(ctx, tx, orderID, status, paymentID, allowed...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return false, nil
	}
	for _, a := range allowed {
		if p.Status == a {
			p.Status = status
			if paymentID != "" {
				p.PaymentID = paymentID
			}
			p.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPaymentRepo) ListByStatusOlderThan(ctx context.Context, tx repository.Tx, status model.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.payments {
		if p.Status == status && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Get returns the stored record for assertions.
func (m *MockPaymentRepo) Get(orderID string) *model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[orderID]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription

	// counts successful UpdateStatus applications for concurrency assertions
	StatusUpdates int

	SaveFunc         func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error)
	UpdateStatusFunc func(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus, expiresAt *time.Time, paymentID string) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{subs: map[string]*model.Subscription{}}
}

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus, expiresAt *time.Time, paymentID string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, expiresAt, paymentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	if expiresAt != nil {
		s.ExpiresAt = expiresAt
	}
	if paymentID != "" {
		s.PaymentID = paymentID
	}
	m.StatusUpdates++
	return nil
}

func (m *MockSubscriptionRepo) Get(id string) *model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[id]; ok {
		cp := *s
		return &cp
	}
	return nil
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	LinkCalls int

	SaveFunc             func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByUsernameFunc   func(ctx context.Context, tx repository.Tx, username string) (*model.User, error)
	LinkSubscriptionFunc func(ctx context.Context, tx repository.Tx, userID, subscriptionID string) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: map[string]*model.User{}}
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, tx, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) FindByCustomerID(ctx context.Context, tx repository.Tx, customerID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.CustomerID != nil && *u.CustomerID == customerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) SetCustomerIDIfEmpty(ctx context.Context, tx repository.Tx, userID, customerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if u.CustomerID != nil && *u.CustomerID != "" {
		return false, nil
	}
	cid := customerID
	u.CustomerID = &cid
	return true, nil
}

func (m *MockUserRepo) LinkSubscription(ctx context.Context, tx repository.Tx, userID, subscriptionID string) error {
	if m.LinkSubscriptionFunc != nil {
		return m.LinkSubscriptionFunc(ctx, tx, userID, subscriptionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	sid := subscriptionID
	u.SubscriptionID = &sid
	m.LinkCalls++
	return nil
}

func (m *MockUserRepo) Get(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

// ---- Mock WebhookEventRepository ----

type MockWebhookEventRepo struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

var _ repository.WebhookEventRepository = (*MockWebhookEventRepo)(nil)

func NewMockWebhookEventRepo() *MockWebhookEventRepo {
	return &MockWebhookEventRepo{seen: map[string]struct{}{}}
}

func (m *MockWebhookEventRepo) InsertIfNew(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[ev.EventID]; ok {
		return false, nil
	}
	m.seen[ev.EventID] = struct{}{}
	return true, nil
}

// =============================
// Transaction manager / locker
// =============================

// MockTxManager serializes callbacks under one mutex, standing in for the
// row-level locking of the real store.
type MockTxManager struct {
	mu sync.Mutex

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

// MockLocker is an in-process stand-in for the redis lock.
type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	Locks int
}

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	for i := 0; i < 100; i++ {
		l.mu.Lock()
		if _, busy := l.held[key]; !busy {
			l.held[key] = "tok"
			l.Locks++
			l.mu.Unlock()
			return "tok", nil
		}
		l.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	return "", domain.ErrLockNotAcquired
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// =============================
// Gateway
// =============================

type MockPaymentGateway struct {
	mu sync.Mutex

	CustomerCalls int

	CreateOrderFunc        func(ctx context.Context, amount int64, currency, receipt string) (*adapter.GatewayOrder, error)
	CreateCustomerFunc     func(ctx context.Context, name, email string) (string, error)
	CreateSubscriptionFunc func(ctx context.Context, planID, customerID string, startAt time.Time, totalCount int) (*adapter.GatewaySubscription, error)
	FetchPlanFunc          func(ctx context.Context, planID string) (*adapter.GatewayPlan, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*adapter.GatewayOrder, error) {
	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, amount, currency, receipt)
	}
	return &adapter.GatewayOrder{ID: "order_mock1", Amount: amount, Currency: currency, Status: "created"}, nil
}

func (g *MockPaymentGateway) CreateCustomer(ctx context.Context, name, email string) (string, error) {
	g.mu.Lock()
	g.CustomerCalls++
	g.mu.Unlock()
	if g.CreateCustomerFunc != nil {
		return g.CreateCustomerFunc(ctx, name, email)
	}
	return "cust_mock1", nil
}

func (g *MockPaymentGateway) CreateSubscription(ctx context.Context, planID, customerID string, startAt time.Time, totalCount int) (*adapter.GatewaySubscription, error) {
	if g.CreateSubscriptionFunc != nil {
		return g.CreateSubscriptionFunc(ctx, planID, customerID, startAt, totalCount)
	}
	raw := json.RawMessage(`{"id":"sub_mock1","status":"created"}`)
	return &adapter.GatewaySubscription{ID: "sub_mock1", Status: "created", Raw: raw}, nil
}

func (g *MockPaymentGateway) FetchSubscription(ctx context.Context, subscriptionID string) (*adapter.GatewaySubscription, error) {
	raw := json.RawMessage(`{"id":"` + subscriptionID + `","status":"active"}`)
	return &adapter.GatewaySubscription{ID: subscriptionID, Status: "active", Raw: raw}, nil
}

func (g *MockPaymentGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return nil
}

func (g *MockPaymentGateway) CreatePlan(ctx context.Context, name, description string, amount int64, period string, interval int) (json.RawMessage, error) {
	return json.RawMessage(`{"id":"plan_mock1"}`), nil
}

func (g *MockPaymentGateway) FetchPlan(ctx context.Context, planID string) (*adapter.GatewayPlan, error) {
	if g.FetchPlanFunc != nil {
		return g.FetchPlanFunc(ctx, planID)
	}
	return &adapter.GatewayPlan{ID: planID, Name: "Monthly", Amount: 50000, Currency: "INR", Period: "monthly", Interval: 1}, nil
}

func (g *MockPaymentGateway) ListPlans(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"count":1,"items":[{"id":"plan_mock1"}]}`), nil
}
