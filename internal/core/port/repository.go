package port

import (
	"context"

	"github.com/MikeRez0/webstore/internal/core/domain"
)

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock

// Repository is the storage collaborator. Methods taking a callback run it
// inside a single unit of work: the rows they read are locked until the
// callback returns, and nothing is written unless it returns nil.
type Repository interface {
	// User
	GetUserByID(ctx context.Context, userID uint64) (*domain.User, error)

	// Order
	PlaceOrder(ctx context.Context, order *domain.Order, productIDs []uint64, placeFn PlaceOrderFn) (*domain.Order, error)
	ReadOrder(ctx context.Context, orderID uint64) (*domain.Order, error)
	ReadOrderByCode(ctx context.Context, code string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, orderID uint64, updateFn UpdateOrderFn) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) (*domain.Page[*domain.Order], error)

	// Payment
	AddPayment(ctx context.Context, orderID uint64, addFn AddPaymentFn) (*domain.Payment, error)
	UpdatePaymentByToken(ctx context.Context, token string,
		updateFn UpdatePaymentFn) (*domain.Payment, *domain.Order, error)
	ReadPayment(ctx context.Context, paymentID uint64) (*domain.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID uint64) ([]*domain.Payment, error)
	ListPayments(ctx context.Context, page domain.PageRequest) (*domain.Page[*domain.Payment], error)
}

// PlaceOrderFn fills order from the locked products. Products missing from
// the store are absent from the map. Stock changes made to the products are
// persisted together with the order.
type PlaceOrderFn func(order *domain.Order, products map[uint64]*domain.Product) error

type UpdateOrderFn func(order *domain.Order) error

// AddPaymentFn builds the payment to insert for the locked order.
type AddPaymentFn func(order *domain.Order) (*domain.Payment, error)

type UpdatePaymentFn func(payment *domain.Payment, order *domain.Order) error
