package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, price string) Product {
	return Product{ID: id, Name: "widget", Price: MustMoney(price), Category: "prime", Features: []string{"tiny"}}
}

func TestEmptyOrderIsDistinctFromOrderWithoutLines(t *testing.T) {
	assert.False(t, Order{}.Active())
	assert.True(t, Order{ID: 7, Number: "abcdef0123"}.Active())
	assert.Equal(t, "0.00", Order{}.Total().String())
}

func TestTotalSkipsNonPositiveQuantities(t *testing.T) {
	o := Order{ID: 1, Lines: []LineItem{
		{ID: 1, Product: product(1, "10.00"), Quantity: 2},
		{ID: 2, Product: product(2, "20.00"), Quantity: 0},
		{ID: 3, Product: product(3, "30.00"), Quantity: -1},
		{ID: 4, Product: product(4, "0.50"), Quantity: 3},
	}}

	assert.Equal(t, "21.50", o.Total().String())
	assert.Len(t, o.VisibleLines(), 2)
}

func TestReplaceLineByIdentifier(t *testing.T) {
	o := Order{ID: 1, Lines: []LineItem{
		{ID: 10, Product: product(1, "10.00"), Quantity: 1},
		{ID: 20, Product: product(2, "20.00"), Quantity: 1},
	}}

	updated, ok := o.ReplaceLine(LineItem{ID: 20, Product: product(2, "20.00"), Quantity: 5})
	require.True(t, ok)

	assert.Equal(t, 5, updated.Lines[1].Quantity)
	assert.Equal(t, 1, o.Lines[1].Quantity, "previous snapshot must not change")
	assert.Equal(t, int64(10), updated.Lines[0].ID)

	_, ok = o.ReplaceLine(LineItem{ID: 99})
	assert.False(t, ok)
}

func TestWithoutLine(t *testing.T) {
	o := Order{ID: 1, Number: "n", Lines: []LineItem{
		{ID: 10, Product: product(1, "10.00"), Quantity: 1},
		{ID: 20, Product: product(2, "20.00"), Quantity: 1},
		{ID: 30, Product: product(3, "30.00"), Quantity: 1},
	}}

	trimmed, ok := o.WithoutLine(20)
	require.True(t, ok)
	require.Len(t, trimmed.Lines, 2)
	assert.Equal(t, int64(10), trimmed.Lines[0].ID)
	assert.Equal(t, int64(30), trimmed.Lines[1].ID)
	assert.Len(t, o.Lines, 3)

	single := Order{ID: 1, Lines: []LineItem{{ID: 10, Quantity: 1}}}
	emptied, ok := single.WithoutLine(10)
	require.True(t, ok)
	assert.False(t, emptied.Active())
}

func TestCloneIsDeep(t *testing.T) {
	stock := 3
	price := MustMoney("20.00")
	o := Order{ID: 1, Lines: []LineItem{{ID: 1, Product: Product{ID: 1, Features: []string{"red"}, Stock: &stock}, Quantity: 2, Price: &price}}}

	c := o.Clone()
	c.Lines[0].Product.Features[0] = "blue"
	*c.Lines[0].Product.Stock = 0
	c.Lines[0].Quantity = 9

	assert.Equal(t, "red", o.Lines[0].Product.Features[0])
	assert.Equal(t, 3, *o.Lines[0].Product.Stock)
	assert.Equal(t, 2, o.Lines[0].Quantity)
}

func TestDecodeServiceOrder(t *testing.T) {
	body := `{
		"id": 1, "number": "fg94nas2a1", "completed": false,
		"items": [
			{"id": 4, "order": 1, "quantity": 5,
			 "widget": {"id": 1, "name": "widget1", "description": "first widget", "category": "cat1",
			            "price": "10.00", "features": ["Small", "Red"], "quantity": null}},
			{"id": 5, "order": 1, "quantity": 2, "price": "60.00",
			 "widget": {"id": 3, "name": "widget3", "description": null, "category": "cat2",
			            "price": "30.00", "features": ["Big"], "quantity": 4}}
		]
	}`

	var o Order
	require.NoError(t, json.Unmarshal([]byte(body), &o))

	assert.Equal(t, "fg94nas2a1", o.Number)
	require.Len(t, o.Lines, 2)
	assert.Nil(t, o.Lines[0].Product.Stock)
	assert.Equal(t, "10.00", o.Lines[0].RowPrice().String())
	assert.Equal(t, "60.00", o.Lines[1].RowPrice().String())
	assert.Equal(t, "Only 4 left!", o.Lines[1].Product.StockHint())
	assert.Equal(t, "110.00", o.Total().String())

	out, err := json.Marshal(o.Lines[0].Product)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"price":"10.00"`)
}

func TestStockHint(t *testing.T) {
	zero, two := 0, 2
	assert.Equal(t, "", Product{}.StockHint())
	assert.Equal(t, "Sold Out!", Product{Stock: &zero}.StockHint())
	assert.Equal(t, "Only 2 left!", Product{Stock: &two}.StockHint())
}

func TestCategories(t *testing.T) {
	products := []Product{{Category: "prime"}, {Category: "extreme"}, {Category: "prime"}}
	assert.Equal(t, []string{"prime", "extreme"}, Categories(products))
	assert.Equal(t, []string{}, Categories(nil))
}

func TestWithoutLineKeepsOrderWithHiddenLines(t *testing.T) {
	o := Order{ID: 1, Lines: []LineItem{{ID: 10, Quantity: 0}, {ID: 20, Quantity: 2}}}

	trimmed, ok := o.WithoutLine(20)
	require.True(t, ok)
	assert.True(t, trimmed.Active())
	require.Len(t, trimmed.Lines, 1)
	assert.Empty(t, trimmed.VisibleLines())
	assert.Equal(t, "0.00", trimmed.Total().String())
}
