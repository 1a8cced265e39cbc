// Package orderstub is an in-memory emulator of the remote order service. It
// implements the same JSON contract the storefront client speaks and is used for
// local development and tests.
package orderstub

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrLineNotFound      = errors.New("order item not found")
	ErrWidgetNotFound    = errors.New("widget does not exist")
	ErrOrderCompleted    = errors.New("order is already completed")
	ErrInsufficientStock = errors.New("not enough supply to satisfy order")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
)

type order struct {
	id        int64
	number    string
	lineIDs   []int64
	completed bool
}

type line struct {
	id       int64
	orderID  int64
	widgetID int64
	quantity int
}

// Stub holds the emulated service state.
type Stub struct {
	mu       sync.Mutex
	widgets  map[int64]domain.Product
	orders   map[string]*order
	byID     map[int64]*order
	lines    map[int64]*line
	nextID   int64
	nextLine int64
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Stub {
	return &Stub{
		widgets: make(map[int64]domain.Product),
		orders:  make(map[string]*order),
		byID:    make(map[int64]*order),
		lines:   make(map[int64]*line),
		logger:  logger,
	}
}

// AddWidget registers or replaces a catalog entry.
func (s *Stub) AddWidget(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets[p.ID] = p.Clone()
}

func (s *Stub) Widget(id int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.widgets[id]
	if !ok {
		return domain.Product{}, ErrWidgetNotFound
	}
	return w.Clone(), nil
}

// Widgets lists the catalog ordered by category name. A widget matches when any
// of its features contains any of the given terms.
func (s *Stub) Widgets(features []string, category string) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Product, 0, len(s.widgets))
	for _, w := range s.widgets {
		if category != "" && w.Category != category {
			continue
		}
		if len(features) > 0 && !matchesAny(w.Features, features) {
			continue
		}
		out = append(out, w.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func matchesAny(have, terms []string) bool {
	for _, f := range have {
		lf := strings.ToLower(f)
		for _, t := range terms {
			if strings.Contains(lf, strings.ToLower(t)) {
				return true
			}
		}
	}
	return false
}

func (s *Stub) CreateOrder(widgetID int64, quantity int) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSupply(widgetID, quantity); err != nil {
		return domain.Order{}, err
	}

	s.nextID++
	o := &order{id: s.nextID, number: newOrderNumber()}
	s.orders[o.number] = o
	s.byID[o.id] = o
	s.appendLine(o, widgetID, quantity)

	s.logger.Info("Order created",
		zap.Int64("order_id", o.id),
		zap.String("order_number", o.number))
	return s.render(o), nil
}

func (s *Stub) GetOrder(number string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[number]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	if o.completed {
		return domain.Order{}, ErrOrderCompleted
	}
	return s.render(o), nil
}

func (s *Stub) DeleteOrder(number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[number]
	if !ok {
		return ErrOrderNotFound
	}
	s.dropOrder(o)
	return nil
}

// CompleteOrder marks the order completed and deducts finite stock. Nothing is
// deducted unless every line can be satisfied.
func (s *Stub) CompleteOrder(number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[number]
	if !ok {
		return ErrOrderNotFound
	}
	if o.completed {
		return ErrOrderCompleted
	}

	for _, id := range o.lineIDs {
		l := s.lines[id]
		w := s.widgets[l.widgetID]
		if w.Stock != nil && *w.Stock < l.quantity {
			return ErrInsufficientStock
		}
	}
	for _, id := range o.lineIDs {
		l := s.lines[id]
		w := s.widgets[l.widgetID]
		if w.Stock != nil {
			left := *w.Stock - l.quantity
			w.Stock = &left
			s.widgets[w.ID] = w
		}
	}
	o.completed = true

	s.logger.Info("Order completed", zap.String("order_number", number))
	return nil
}

func (s *Stub) CreateLine(orderID, widgetID int64, quantity int) (domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byID[orderID]
	if !ok {
		return domain.LineItem{}, ErrOrderNotFound
	}
	if o.completed {
		return domain.LineItem{}, ErrOrderCompleted
	}
	if err := s.checkSupply(widgetID, quantity); err != nil {
		return domain.LineItem{}, err
	}
	l := s.appendLine(o, widgetID, quantity)
	return s.renderLine(l), nil
}

func (s *Stub) Line(lineID int64) (domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[lineID]
	if !ok {
		return domain.LineItem{}, ErrLineNotFound
	}
	return s.renderLine(l), nil
}

func (s *Stub) UpdateLine(lineID, orderID, widgetID int64, quantity int) (domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[lineID]
	if !ok {
		return domain.LineItem{}, ErrLineNotFound
	}
	o, ok := s.byID[orderID]
	if !ok || o.id != l.orderID {
		return domain.LineItem{}, ErrOrderNotFound
	}
	if o.completed {
		return domain.LineItem{}, ErrOrderCompleted
	}
	if err := s.checkSupply(widgetID, quantity); err != nil {
		return domain.LineItem{}, err
	}
	l.widgetID = widgetID
	l.quantity = quantity
	return s.renderLine(l), nil
}

// DeleteLine removes a line. Removing an order's last line deletes the order.
func (s *Stub) DeleteLine(lineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[lineID]
	if !ok {
		return ErrLineNotFound
	}
	delete(s.lines, lineID)

	o := s.byID[l.orderID]
	for i, id := range o.lineIDs {
		if id == lineID {
			o.lineIDs = append(o.lineIDs[:i], o.lineIDs[i+1:]...)
			break
		}
	}
	if len(o.lineIDs) == 0 {
		s.dropOrder(o)
	}
	return nil
}

// OrderCount reports how many orders exist, completed or not.
func (s *Stub) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Stub) checkSupply(widgetID int64, quantity int) error {
	w, ok := s.widgets[widgetID]
	if !ok {
		return ErrWidgetNotFound
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if w.Stock != nil && *w.Stock < quantity {
		return ErrInsufficientStock
	}
	return nil
}

func (s *Stub) appendLine(o *order, widgetID int64, quantity int) *line {
	s.nextLine++
	l := &line{id: s.nextLine, orderID: o.id, widgetID: widgetID, quantity: quantity}
	s.lines[l.id] = l
	o.lineIDs = append(o.lineIDs, l.id)
	return l
}

func (s *Stub) dropOrder(o *order) {
	for _, id := range o.lineIDs {
		delete(s.lines, id)
	}
	delete(s.orders, o.number)
	delete(s.byID, o.id)
}

func (s *Stub) render(o *order) domain.Order {
	out := domain.Order{
		ID:        o.id,
		Number:    o.number,
		Lines:     make([]domain.LineItem, 0, len(o.lineIDs)),
		Completed: o.completed,
	}
	for _, id := range o.lineIDs {
		out.Lines = append(out.Lines, s.renderLine(s.lines[id]))
	}
	return out
}

func (s *Stub) renderLine(l *line) domain.LineItem {
	w := s.widgets[l.widgetID].Clone()
	subtotal := w.Price.Times(l.quantity)
	return domain.LineItem{
		ID:       l.id,
		OrderID:  l.orderID,
		Product:  w,
		Quantity: l.quantity,
		Price:    &subtotal,
	}
}

func newOrderNumber() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
}
