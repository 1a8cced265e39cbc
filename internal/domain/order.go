package domain

// Order is the client-held snapshot of a server-owned order.
// The zero value is the empty order: no order is active.
type Order struct {
	ID        int64      `json:"id"`
	Number    string     `json:"number"`
	Lines     []LineItem `json:"items"`
	Completed bool       `json:"completed"`
}

// LineItem pairs a product snapshot with a quantity. Product is captured when the
// line was created or last updated and is never re-derived from the catalog.
type LineItem struct {
	ID       int64   `json:"id"`
	OrderID  int64   `json:"order"`
	Product  Product `json:"widget"`
	Quantity int     `json:"quantity"`
	Price    *Money  `json:"price,omitempty"` // line subtotal as reported by the service
}

// Active reports whether o is a real order rather than the empty order.
func (o Order) Active() bool {
	return o.ID != 0
}

// Visible reports whether the line should be rendered and summed.
func (l LineItem) Visible() bool {
	return l.Quantity > 0
}

// RowPrice is the price shown in the cart row: the service subtotal when present,
// otherwise the captured unit price.
func (l LineItem) RowPrice() Money {
	if l.Price != nil {
		return *l.Price
	}
	return l.Product.Price
}

func (l LineItem) Clone() LineItem {
	c := l
	c.Product = l.Product.Clone()
	if l.Price != nil {
		p := *l.Price
		c.Price = &p
	}
	return c
}

func (o Order) VisibleLines() []LineItem {
	lines := make([]LineItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		if l.Visible() {
			lines = append(lines, l)
		}
	}
	return lines
}

// Total is the running total over visible lines: unit price times quantity.
func (o Order) Total() Money {
	total := Zero
	for _, l := range o.Lines {
		if !l.Visible() {
			continue
		}
		total = total.Plus(l.Product.Price.Times(l.Quantity))
	}
	return total
}

// IndexOfLine locates a line by its server-assigned identifier, or -1.
func (o Order) IndexOfLine(lineID int64) int {
	for i, l := range o.Lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

// LineForProduct returns the first visible line referencing productID.
func (o Order) LineForProduct(productID int64) (LineItem, bool) {
	for _, l := range o.Lines {
		if l.Product.ID == productID && l.Visible() {
			return l, true
		}
	}
	return LineItem{}, false
}

func (o Order) Clone() Order {
	c := o
	if o.Lines != nil {
		c.Lines = make([]LineItem, len(o.Lines))
		for i, l := range o.Lines {
			c.Lines[i] = l.Clone()
		}
	}
	return c
}

// WithLine returns a new snapshot with line appended.
func (o Order) WithLine(line LineItem) Order {
	c := o.Clone()
	c.Lines = append(c.Lines, line.Clone())
	return c
}

// ReplaceLine returns a new snapshot in which the line sharing line.ID is replaced
// in place. It reports false when no such line exists.
func (o Order) ReplaceLine(line LineItem) (Order, bool) {
	idx := o.IndexOfLine(line.ID)
	if idx < 0 {
		return o, false
	}
	c := o.Clone()
	c.Lines[idx] = line.Clone()
	return c, true
}

// WithoutLine returns a new snapshot with the line excised. Removing the last
// line collapses the order to the empty order; hidden lines keep it alive, as
// they do on the server.
func (o Order) WithoutLine(lineID int64) (Order, bool) {
	idx := o.IndexOfLine(lineID)
	if idx < 0 {
		return o, false
	}
	c := o.Clone()
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	if len(c.Lines) == 0 {
		return Order{}, true
	}
	return c, true
}

type CreateOrderRequest struct {
	Widget   int64 `json:"widget"`
	Quantity int   `json:"quantity"`
}

type LineRequest struct {
	Order    int64 `json:"order"`
	Widget   int64 `json:"widget"`
	Quantity int   `json:"quantity"`
}
