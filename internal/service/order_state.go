package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/cloud-wave-best-zizon/storefront/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrMutationInFlight      = errors.New("another cart change is still in progress")
	ErrNoActiveOrder         = errors.New("no active order")
	ErrClosed                = errors.New("order state manager is closed")
	ErrOrderNumberRequired   = errors.New("order number is required")
	ErrUnknownMutationPolicy = errors.New("unknown mutation policy")
)

// OrderAPI is the remote order service as seen by the state manager.
type OrderAPI interface {
	CreateOrder(ctx context.Context, productID int64, quantity int) (domain.Order, error)
	GetOrder(ctx context.Context, number string) (domain.Order, error)
	CreateLine(ctx context.Context, orderID, productID int64, quantity int) (domain.LineItem, error)
	UpdateLine(ctx context.Context, line domain.LineItem, quantity int) (domain.LineItem, error)
	DeleteLine(ctx context.Context, lineID int64) error
	CompleteOrder(ctx context.Context, number string) error
}

type CatalogFilter interface {
	Filter(ctx context.Context, criteria string) ([]domain.Product, error)
}

// MutationPolicy decides what happens to a mutation issued while another one
// is still outstanding.
type MutationPolicy int

const (
	RejectConcurrent MutationPolicy = iota
	QueueConcurrent
)

func ParsePolicy(s string) (MutationPolicy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return RejectConcurrent, nil
	case "queue":
		return QueueConcurrent, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMutationPolicy, s)
	}
}

type Option func(*OrderStateManager)

func WithPolicy(p MutationPolicy) Option {
	return func(m *OrderStateManager) { m.policy = p }
}

// OrderStateManager owns the active order. Every mutation holds a single-flight
// lock for its whole remote exchange, so at most one request against the order is
// outstanding and each response is merged into the snapshot it was issued from.
type OrderStateManager struct {
	api     OrderAPI
	catalog CatalogFilter
	store   repository.Store
	logger  *zap.Logger
	policy  MutationPolicy

	inflight *semaphore.Weighted

	mu       sync.RWMutex
	order    domain.Order
	products []domain.Product
	subs     map[int]Subscriber
	nextSub  int
	closed   bool
}

func NewOrderStateManager(api OrderAPI, catalog CatalogFilter, store repository.Store, logger *zap.Logger, opts ...Option) *OrderStateManager {
	m := &OrderStateManager{
		api:      api,
		catalog:  catalog,
		store:    store,
		logger:   logger,
		inflight: semaphore.NewWeighted(1),
		subs:     make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers sub for change notifications and returns a function that
// removes it. Subscribers are called synchronously and must not dispatch intents
// from inside a notification.
func (m *OrderStateManager) Subscribe(sub Subscriber) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = sub
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Close tears the manager down. Responses that arrive afterwards are dropped.
func (m *OrderStateManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[int]Subscriber)
}

// Snapshot returns a copy of the active order; the zero Order when none is active.
func (m *OrderStateManager) Snapshot() domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.order.Clone()
}

func (m *OrderStateManager) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newView(m.order, m.products)
}

// AddProductToCart creates an order seeded with product when none is active,
// bumps the existing line for product, or appends a new line at quantity 1.
func (m *OrderStateManager) AddProductToCart(ctx context.Context, product domain.Product) (domain.Order, error) {
	release, err := m.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	current := m.current()
	if !current.Active() {
		order, err := m.api.CreateOrder(ctx, product.ID, 1)
		if err != nil {
			m.logger.Error("Failed to create order",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
			return domain.Order{}, err
		}
		if !order.Active() {
			return domain.Order{}, malformed("create order", "response carried no order id")
		}
		if err := m.commit(ctx, IntentAddProduct, order); err != nil {
			return domain.Order{}, err
		}
		m.remember(ctx, order.Number)

		m.logger.Info("Order created",
			zap.String("order_number", order.Number),
			zap.Int64("product_id", product.ID))
		return order.Clone(), nil
	}

	if line, ok := current.LineForProduct(product.ID); ok {
		return m.setLineQuantity(ctx, IntentAddProduct, line.ID, line.Quantity+1)
	}

	line, err := m.api.CreateLine(ctx, current.ID, product.ID, 1)
	if err != nil {
		m.logger.Error("Failed to add line",
			zap.String("order_number", current.Number),
			zap.Int64("product_id", product.ID),
			zap.Error(err))
		return domain.Order{}, err
	}

	next := current.WithLine(line)
	if err := m.commit(ctx, IntentAddProduct, next); err != nil {
		return domain.Order{}, err
	}

	m.logger.Info("Line added",
		zap.String("order_number", next.Number),
		zap.Int64("line_id", line.ID),
		zap.Int64("product_id", product.ID))
	return next.Clone(), nil
}

func (m *OrderStateManager) IncrementLine(ctx context.Context, item domain.LineItem) (domain.Order, error) {
	release, err := m.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	line, err := m.resolve(item.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return m.setLineQuantity(ctx, IntentIncrement, line.ID, line.Quantity+1)
}

// DecrementLine lowers the line's quantity by one, removing the line when it
// would reach zero.
func (m *OrderStateManager) DecrementLine(ctx context.Context, item domain.LineItem) (domain.Order, error) {
	release, err := m.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	line, err := m.resolve(item.ID)
	if err != nil {
		return domain.Order{}, err
	}
	if line.Quantity-1 <= 0 {
		return m.removeLine(ctx, IntentDecrement, line.ID)
	}
	return m.setLineQuantity(ctx, IntentDecrement, line.ID, line.Quantity-1)
}

// SetLineQuantity sets an explicit quantity. Non-positive quantities remove the line.
func (m *OrderStateManager) SetLineQuantity(ctx context.Context, item domain.LineItem, quantity int) (domain.Order, error) {
	release, err := m.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	return m.setLineQuantity(ctx, IntentSetQuantity, item.ID, quantity)
}

func (m *OrderStateManager) RemoveLine(ctx context.Context, item domain.LineItem) (domain.Order, error) {
	release, err := m.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	return m.removeLine(ctx, IntentRemove, item.ID)
}

// LoadOrder replaces the active order with the one stored under number.
func (m *OrderStateManager) LoadOrder(ctx context.Context, number string) (domain.Order, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return domain.Order{}, ErrOrderNumberRequired
	}

	release, err := m.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	order, err := m.fetch(ctx, number)
	if err != nil {
		m.logger.Error("Failed to load order",
			zap.String("order_number", number),
			zap.Error(err))
		return domain.Order{}, err
	}
	if err := m.commit(ctx, IntentLoad, order); err != nil {
		return domain.Order{}, err
	}
	m.remember(ctx, order.Number)

	m.logger.Info("Order loaded",
		zap.String("order_number", order.Number),
		zap.Int("lines", len(order.Lines)))
	return order.Clone(), nil
}

// SubmitOrder completes the active order and resets local state. It returns the
// order as it was when completed.
func (m *OrderStateManager) SubmitOrder(ctx context.Context) (domain.Order, error) {
	release, err := m.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	current := m.current()
	if !current.Active() {
		return domain.Order{}, ErrNoActiveOrder
	}

	if err := m.api.CompleteOrder(ctx, current.Number); err != nil {
		m.logger.Error("Failed to complete order",
			zap.String("order_number", current.Number),
			zap.Error(err))
		return domain.Order{}, err
	}
	if err := m.commit(ctx, IntentSubmit, domain.Order{}); err != nil {
		return domain.Order{}, err
	}
	m.forget(ctx)

	m.logger.Info("Order completed",
		zap.String("order_number", current.Number),
		zap.String("total", current.Total().String()))

	completed := current.Clone()
	completed.Completed = true
	return completed, nil
}

// Restore reloads the order remembered by the persistence store, if any. A
// remembered order that no longer exists or is no longer open is forgotten.
func (m *OrderStateManager) Restore(ctx context.Context) (domain.Order, error) {
	release, err := m.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	number, ok, err := m.store.Load(ctx, repository.OrderNumberKey)
	if err != nil {
		m.logger.Warn("Failed to read remembered order", zap.Error(err))
		return m.current(), nil
	}
	if !ok || number == "" {
		return m.current(), nil
	}

	order, err := m.fetch(ctx, number)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrRejected):
		m.logger.Info("Remembered order is gone, forgetting it",
			zap.String("order_number", number),
			zap.Error(err))
		m.forget(ctx)
		return m.current(), nil
	case err != nil:
		m.logger.Error("Failed to restore order",
			zap.String("order_number", number),
			zap.Error(err))
		return domain.Order{}, err
	}

	if err := m.commit(ctx, IntentRestore, order); err != nil {
		return domain.Order{}, err
	}
	m.logger.Info("Order restored", zap.String("order_number", order.Number))
	return order.Clone(), nil
}

// FilterCatalog refreshes the product listing. It does not touch the order and
// does not take the mutation lock.
func (m *OrderStateManager) FilterCatalog(ctx context.Context, criteria string) ([]domain.Product, error) {
	products, err := m.catalog.Filter(ctx, criteria)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.products = domain.CloneProducts(products)
	subs := m.subscribers()
	m.mu.Unlock()

	for _, sub := range subs {
		sub.CatalogChanged(ctx, domain.CloneProducts(products))
	}
	return domain.CloneProducts(products), nil
}

// Product looks up a product in the current listing.
func (m *OrderStateManager) Product(id int64) (domain.Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return domain.Product{}, false
}

// setLineQuantity requires the mutation lock.
func (m *OrderStateManager) setLineQuantity(ctx context.Context, intent Intent, lineID int64, quantity int) (domain.Order, error) {
	if quantity <= 0 {
		return m.removeLine(ctx, intent, lineID)
	}

	line, err := m.resolve(lineID)
	if err != nil {
		return domain.Order{}, err
	}

	updated, err := m.api.UpdateLine(ctx, line, quantity)
	if err != nil {
		m.logger.Error("Failed to update line",
			zap.Int64("line_id", lineID),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return domain.Order{}, err
	}

	next, ok := m.current().ReplaceLine(updated)
	if !ok {
		return domain.Order{}, malformed("update line", fmt.Sprintf("response line %d does not match line %d", updated.ID, lineID))
	}
	if err := m.commit(ctx, intent, next); err != nil {
		return domain.Order{}, err
	}

	m.logger.Info("Line quantity updated",
		zap.String("order_number", next.Number),
		zap.Int64("line_id", lineID),
		zap.Int("quantity", updated.Quantity))
	return next.Clone(), nil
}

// removeLine requires the mutation lock.
func (m *OrderStateManager) removeLine(ctx context.Context, intent Intent, lineID int64) (domain.Order, error) {
	if _, err := m.resolve(lineID); err != nil {
		return domain.Order{}, err
	}

	if err := m.api.DeleteLine(ctx, lineID); err != nil {
		m.logger.Error("Failed to remove line",
			zap.Int64("line_id", lineID),
			zap.Error(err))
		return domain.Order{}, err
	}

	current := m.current()
	next, _ := current.WithoutLine(lineID)
	if err := m.commit(ctx, intent, next); err != nil {
		return domain.Order{}, err
	}
	if !next.Active() {
		// The service deletes an order together with its last line.
		m.forget(ctx)
	}

	m.logger.Info("Line removed",
		zap.String("order_number", current.Number),
		zap.Int64("line_id", lineID),
		zap.Bool("order_closed", !next.Active()))
	return next.Clone(), nil
}

func (m *OrderStateManager) fetch(ctx context.Context, number string) (domain.Order, error) {
	order, err := m.api.GetOrder(ctx, number)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Active() {
		return domain.Order{}, malformed("fetch order", "response carried no order id")
	}
	if order.Completed {
		return domain.Order{}, &domain.RequestError{Op: "fetch order", Detail: "order " + number + " is already completed", Kind: domain.ErrRejected}
	}
	return order, nil
}

// resolve finds a line of the active order by identifier.
func (m *OrderStateManager) resolve(lineID int64) (domain.LineItem, error) {
	current := m.current()
	if !current.Active() {
		return domain.LineItem{}, ErrNoActiveOrder
	}
	idx := current.IndexOfLine(lineID)
	if idx < 0 || !current.Lines[idx].Visible() {
		return domain.LineItem{}, fmt.Errorf("line %d: %w", lineID, domain.ErrNotFound)
	}
	return current.Lines[idx], nil
}

func (m *OrderStateManager) acquire(ctx context.Context) (func(), error) {
	if m.isClosed() {
		return nil, ErrClosed
	}

	switch m.policy {
	case QueueConcurrent:
		if err := m.inflight.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("waiting for in-flight change: %w", err)
		}
	default:
		if !m.inflight.TryAcquire(1) {
			return nil, ErrMutationInFlight
		}
	}

	if m.isClosed() {
		m.inflight.Release(1)
		return nil, ErrClosed
	}
	return func() { m.inflight.Release(1) }, nil
}

// commit installs next as the active order and notifies subscribers. It fails
// without applying anything once the manager is closed.
func (m *OrderStateManager) commit(ctx context.Context, intent Intent, next domain.Order) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("Dropping response after close", zap.String("intent", string(intent)))
		return ErrClosed
	}
	previous := m.order
	m.order = next.Clone()
	subs := m.subscribers()
	m.mu.Unlock()

	for _, sub := range subs {
		sub.OrderChanged(ctx, OrderChange{
			Intent:   intent,
			Order:    next.Clone(),
			Previous: previous.Clone(),
		})
	}
	return nil
}

// subscribers requires m.mu.
func (m *OrderStateManager) subscribers() []Subscriber {
	subs := make([]Subscriber, 0, len(m.subs))
	for id := 0; id < m.nextSub; id++ {
		if sub, ok := m.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	return subs
}

func (m *OrderStateManager) current() domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.order
}

func (m *OrderStateManager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// remember and forget log persistence failures without failing the intent: the
// remote change has already happened.
func (m *OrderStateManager) remember(ctx context.Context, number string) {
	if err := m.store.Save(ctx, repository.OrderNumberKey, number); err != nil {
		m.logger.Warn("Failed to remember order number",
			zap.String("order_number", number),
			zap.Error(err))
	}
}

func (m *OrderStateManager) forget(ctx context.Context) {
	if err := m.store.Clear(ctx, repository.OrderNumberKey); err != nil {
		m.logger.Warn("Failed to forget order number", zap.Error(err))
	}
}

func malformed(op, detail string) error {
	return &domain.RequestError{Op: op, Detail: detail, Kind: domain.ErrTransportFailure}
}
