package service

import (
	"context"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
)

// Intent names the user action that produced a change.
type Intent string

const (
	IntentAddProduct  Intent = "add_product"
	IntentIncrement   Intent = "increment_line"
	IntentDecrement   Intent = "decrement_line"
	IntentSetQuantity Intent = "set_quantity"
	IntentRemove      Intent = "remove_line"
	IntentLoad        Intent = "load_order"
	IntentSubmit      Intent = "submit_order"
	IntentRestore     Intent = "restore_order"
)

// OrderChange is delivered after every successful mutation. Order and Previous
// are private copies owned by the receiver.
type OrderChange struct {
	Intent   Intent
	Order    domain.Order
	Previous domain.Order
}

// Subscriber consumes published state. Renderers and event sinks implement it.
type Subscriber interface {
	OrderChanged(ctx context.Context, change OrderChange)
	CatalogChanged(ctx context.Context, products []domain.Product)
}

// View is everything a renderer needs to draw the storefront.
type View struct {
	CatalogCategories []string          `json:"catalogCategories"`
	Products          []domain.Product  `json:"products"`
	Order             domain.Order      `json:"order"`
	Lines             []domain.LineItem `json:"lines"`
	Total             string            `json:"total"`
}

func newView(order domain.Order, products []domain.Product) View {
	listing := domain.CloneProducts(products)
	if listing == nil {
		listing = []domain.Product{}
	}
	visible := order.Clone()
	if visible.Lines != nil {
		visible.Lines = visible.VisibleLines()
	}
	return View{
		CatalogCategories: domain.Categories(listing),
		Products:          listing,
		Order:             visible,
		Lines:             visible.VisibleLines(),
		Total:             order.Total().String(),
	}
}
