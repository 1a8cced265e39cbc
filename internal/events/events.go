package events

import (
	"time"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/cloud-wave-best-zizon/storefront/internal/service"
	"github.com/google/uuid"
)

type LineSnapshot struct {
	LineID    int64  `json:"line_id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderSnapshotEvent is published after every accepted cart change.
type OrderSnapshotEvent struct {
	EventID     string         `json:"event_id"`
	Intent      string         `json:"intent"`
	OrderID     int64          `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	Active      bool           `json:"active"`
	Lines       []LineSnapshot `json:"lines"`
	TotalAmount string         `json:"total_amount"`
	Timestamp   time.Time      `json:"timestamp"`
}

type OrderCompletedEvent struct {
	EventID     string         `json:"event_id"`
	OrderID     int64          `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	Items       []LineSnapshot `json:"items"`
	TotalAmount string         `json:"total_amount"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewSnapshotEvent describes change. When the change closed the order, the event
// names the order that was closed and carries no lines.
func NewSnapshotEvent(change service.OrderChange, now time.Time) OrderSnapshotEvent {
	subject := change.Order
	if !subject.Active() {
		subject = change.Previous
	}
	return OrderSnapshotEvent{
		EventID:     uuid.New().String(),
		Intent:      string(change.Intent),
		OrderID:     subject.ID,
		OrderNumber: subject.Number,
		Active:      change.Order.Active(),
		Lines:       lineSnapshots(change.Order),
		TotalAmount: change.Order.Total().String(),
		Timestamp:   now.UTC(),
	}
}

// NewCompletedEvent reports false unless change is a successful submission.
func NewCompletedEvent(change service.OrderChange, now time.Time) (OrderCompletedEvent, bool) {
	if change.Intent != service.IntentSubmit || !change.Previous.Active() {
		return OrderCompletedEvent{}, false
	}
	return OrderCompletedEvent{
		EventID:     uuid.New().String(),
		OrderID:     change.Previous.ID,
		OrderNumber: change.Previous.Number,
		Items:       lineSnapshots(change.Previous),
		TotalAmount: change.Previous.Total().String(),
		Timestamp:   now.UTC(),
	}, true
}

func orderKey(number string) []byte {
	return []byte("ORDER#" + number)
}

func lineSnapshots(o domain.Order) []LineSnapshot {
	lines := make([]LineSnapshot, 0, len(o.Lines))
	for _, l := range o.VisibleLines() {
		lines = append(lines, LineSnapshot{
			LineID:    l.ID,
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price.String(),
		})
	}
	return lines
}
