package domain

import "fmt"

// Product is a catalog entry. The order service calls it a widget.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       Money    `json:"price"`
	Category    string   `json:"category"`
	Features    []string `json:"features"`
	Stock       *int     `json:"quantity"` // nil means unlimited
}

// StockHint is the availability banner shown next to a product.
func (p Product) StockHint() string {
	switch {
	case p.Stock == nil:
		return ""
	case *p.Stock > 0:
		return fmt.Sprintf("Only %d left!", *p.Stock)
	default:
		return "Sold Out!"
	}
}

func (p Product) Clone() Product {
	c := p
	if p.Features != nil {
		c.Features = append([]string(nil), p.Features...)
	}
	if p.Stock != nil {
		stock := *p.Stock
		c.Stock = &stock
	}
	return c
}

// Categories returns the distinct category labels of products in listing order.
func Categories(products []Product) []string {
	seen := make(map[string]struct{}, len(products))
	categories := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories
}

func CloneProducts(products []Product) []Product {
	if products == nil {
		return nil
	}
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}
