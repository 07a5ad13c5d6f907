package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/govalues/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Address struct {
	Street  string
	City    string
	Zipcode string
	Country string
}

// Complete reports whether every field of the address is filled in.
func (a *Address) Complete() bool {
	if a == nil {
		return false
	}
	for _, f := range []string{a.Street, a.City, a.Zipcode, a.Country} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

type OrderItem struct {
	ProductID uint64
	Quantity  int
	Price     decimal.Decimal
	Tax       decimal.Decimal
	Discount  decimal.Decimal
}

// Subtotal is the line's contribution to the order total. Tax is already
// part of the gross price, so it is reported but not added again.
func (i OrderItem) Subtotal() (decimal.Decimal, error) {
	gross, err := i.Price.Mul(decimal.MustNew(int64(i.Quantity), 0))
	if err != nil {
		return decimal.Zero, fmt.Errorf("math error:%w", err)
	}
	sub, err := gross.Sub(i.Discount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("math error:%w", err)
	}
	return sub, nil
}

type Order struct {
	ID              uint64
	Code            string
	UserID          uint64
	UserEmail       string
	Items           []OrderItem
	Payments        []Payment
	Status          OrderStatus
	TotalPrice      decimal.Decimal
	ShippingAddress Address
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
}

// AddPayment attaches p to the order, replacing an entry with the same ID.
func (o *Order) AddPayment(p Payment) {
	p.OrderID = o.ID
	for i := range o.Payments {
		if p.ID != 0 && o.Payments[i].ID == p.ID {
			o.Payments[i] = p
			return
		}
	}
	o.Payments = append(o.Payments, p)
}

func (o *Order) RemovePayment(paymentID uint64) {
	for i := range o.Payments {
		if o.Payments[i].ID == paymentID {
			o.Payments = append(o.Payments[:i], o.Payments[i+1:]...)
			return
		}
	}
}

// IsPaid reports whether any payment of the order reached COMPLETED.
func (o *Order) IsPaid() bool {
	for _, p := range o.Payments {
		if p.Status == PaymentStatusCompleted {
			return true
		}
	}
	return false
}

func (o *Order) CalculateTotal() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range o.Items {
		sub, err := item.Subtotal()
		if err != nil {
			return decimal.Zero, err
		}
		total, err = total.Add(sub)
		if err != nil {
			return decimal.Zero, fmt.Errorf("math error:%w", err)
		}
	}
	return total, nil
}

func (o *Order) TotalTax() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range o.Items {
		var err error
		total, err = total.Add(item.Tax)
		if err != nil {
			return decimal.Zero, fmt.Errorf("math error:%w", err)
		}
	}
	return total, nil
}

type OrderItemRequest struct {
	ProductID uint64
	Quantity  int
}

type OrderRequest struct {
	UserID          uint64
	ShippingAddress *Address
	Items           []OrderItemRequest
}

// OrderFilter narrows order listings. Nil fields are not applied.
type OrderFilter struct {
	Status   *OrderStatus
	OrderID  *uint64
	UserID   *uint64
	DateFrom *time.Time
	DateTo   *time.Time
	PageRequest
}
