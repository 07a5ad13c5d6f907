package http

import (
	"time"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/govalues/decimal"
)

type errorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type addressBody struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Country string `json:"country"`
}

func (a *addressBody) toDomain() *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		Street:  a.Street,
		City:    a.City,
		Zipcode: a.Zipcode,
		Country: a.Country,
	}
}

func newAddressBody(a domain.Address) addressBody {
	return addressBody{
		Street:  a.Street,
		City:    a.City,
		Zipcode: a.Zipcode,
		Country: a.Country,
	}
}

type orderItemResponse struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Tax       string `json:"tax"`
	Discount  string `json:"discount"`
	Subtotal  string `json:"subtotal"`
}

type orderResponse struct {
	ID              uint64              `json:"id"`
	Code            string              `json:"code"`
	UserID          uint64              `json:"user_id"`
	UserEmail       string              `json:"user_email,omitempty"`
	Status          string              `json:"status"`
	TotalPrice      string              `json:"total_price"`
	TotalTax        string              `json:"total_tax"`
	ShippingAddress addressBody         `json:"shipping_address"`
	Items           []orderItemResponse `json:"items"`
	Payments        []paymentResponse   `json:"payments"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func money(d decimal.Decimal) string {
	return d.Pad(2).String()
}

func newOrderResponse(o *domain.Order) orderResponse {
	r := orderResponse{
		ID:              o.ID,
		Code:            o.Code,
		UserID:          o.UserID,
		UserEmail:       o.UserEmail,
		Status:          string(o.Status),
		TotalPrice:      money(o.TotalPrice),
		TotalTax:        money(decimal.Zero),
		ShippingAddress: newAddressBody(o.ShippingAddress),
		Items:           make([]orderItemResponse, 0, len(o.Items)),
		Payments:        make([]paymentResponse, 0, len(o.Payments)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if tax, err := o.TotalTax(); err == nil {
		r.TotalTax = money(tax)
	}

	for _, i := range o.Items {
		item := orderItemResponse{
			ProductID: i.ProductID,
			Quantity:  i.Quantity,
			Price:     money(i.Price),
			Tax:       money(i.Tax),
			Discount:  money(i.Discount),
		}
		if sub, err := i.Subtotal(); err == nil {
			item.Subtotal = money(sub)
		}
		r.Items = append(r.Items, item)
	}
	for i := range o.Payments {
		r.Payments = append(r.Payments, newPaymentResponse(&o.Payments[i]))
	}
	return r
}

type paymentResponse struct {
	ID            uint64    `json:"id"`
	OrderID       uint64    `json:"order_id"`
	Method        string    `json:"payment_method"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	CardBrand     string    `json:"card_brand"`
	CardLastFour  *string   `json:"card_last_four,omitempty"`
	TransactionID string    `json:"transaction_id"`
	PaymentToken  string    `json:"payment_token"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Method:        string(p.Method),
		Status:        string(p.Status),
		Amount:        money(p.Amount),
		CardBrand:     p.CardBrand,
		CardLastFour:  p.CardLastFour,
		TransactionID: p.TransactionID,
		PaymentToken:  p.PaymentToken,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

func newPageResponse[S, T any](p *domain.Page[S], conv func(S) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, i := range p.Items {
		items = append(items, conv(i))
	}
	return pageResponse[T]{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages(),
	}
}
