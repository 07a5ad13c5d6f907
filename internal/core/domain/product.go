package domain

import "github.com/govalues/decimal"

type Product struct {
	ID     uint64
	Name   string
	Price  decimal.Decimal
	Stock  int
	Active bool
}
