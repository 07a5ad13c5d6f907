package port

import (
	"context"

	"github.com/MikeRez0/webstore/internal/core/domain"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uint64, principal *domain.Principal) (*domain.Order, error)
	GetOrderByCode(ctx context.Context, code string, principal *domain.Principal) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint64, status domain.OrderStatus) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter,
		principal *domain.Principal) (*domain.Page[*domain.Order], error)
}

type PaymentService interface {
	CreatePayment(ctx context.Context, req domain.PaymentRequest, principal *domain.Principal) (*domain.Payment, error)
	ConfirmPayment(ctx context.Context, token string, principal *domain.Principal) (*domain.Payment, error)
	GetPayment(ctx context.Context, paymentID uint64, principal *domain.Principal) (*domain.Payment, error)
	GetPaymentsForOrder(ctx context.Context, orderID uint64, principal *domain.Principal) ([]*domain.Payment, error)
	ListPayments(ctx context.Context, page domain.PageRequest,
		principal *domain.Principal) (*domain.Page[*domain.Payment], error)
}
