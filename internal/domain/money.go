package domain

import (
	"github.com/shopspring/decimal"
)

// Money is a two-place currency amount. It marshals as a fixed-point string ("10.00").
type Money struct {
	decimal.Decimal
}

var Zero = Money{decimal.Zero}

func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Times(quantity int) Money {
	return Money{m.Mul(decimal.NewFromInt(int64(quantity)))}
}

func (m Money) Plus(other Money) Money {
	return Money{m.Add(other.Decimal)}
}

func (m Money) String() string {
	return m.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}
