package service

import (
	"context"
	"strings"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService struct {
	repo     port.Repository
	notifier port.Notifier
	logger   *zap.Logger
}

var _ port.PaymentService = (*PaymentService)(nil)

func NewPaymentService(repo port.Repository, notifier port.Notifier, logger *zap.Logger) (*PaymentService, error) {
	return &PaymentService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// CreatePayment opens a PENDING payment for the whole order total. The order
// stays locked while it is checked so two payments cannot race past the
// already-paid check.
func (s *PaymentService) CreatePayment(ctx context.Context, req domain.PaymentRequest,
	principal *domain.Principal) (*domain.Payment, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.NotAuthorized("Order", "You are not allowed to access this order")
	}

	payment, err := s.repo.AddPayment(ctx, req.OrderID, func(order *domain.Order) (*domain.Payment, error) {
		if !domain.CanAccess(order, principal) {
			return nil, domain.NotAuthorized("Order", "You are not allowed to access this order")
		}
		if order.Status == domain.OrderStatusCancelled {
			return nil, domain.InvalidArgument("OrderStatus", "Cannot create payment for a cancelled order")
		}
		if order.IsPaid() {
			return nil, domain.InvalidArgument("Payment", "Order %d is already fully paid", order.ID)
		}
		if !order.TotalPrice.IsPos() {
			return nil, domain.InvalidArgument("Amount", "Order total must be positive to create a payment")
		}
		if req.Method == "" {
			return nil, domain.InvalidArgument("PaymentMethod", "Payment method is required")
		}
		if !req.Method.Valid() {
			return nil, domain.InvalidArgument("PaymentMethod", "Unknown payment method %s", req.Method)
		}

		p := &domain.Payment{
			OrderID:       order.ID,
			Method:        req.Method,
			Status:        domain.PaymentStatusPending,
			Amount:        order.TotalPrice,
			CardBrand:     domain.CardBrandNone,
			TransactionID: uuid.NewString(),
			PaymentToken:  uuid.NewString(),
		}

		if req.Method == domain.PaymentMethodCreditCard {
			number := domain.NormalizeCardNumber(req.CardNumber)
			if number == "" {
				return nil, domain.InvalidArgument("CardNumber", "Card number is required for credit card payments")
			}
			if !domain.IsSandboxCard(number) {
				return nil, domain.InvalidArgument("CardNumber",
					"Real cards are not accepted. Use a test card like 6666 0000 0000 0000.")
			}
			last := number[len(number)-4:]
			p.CardBrand = domain.CardBrandTest
			p.CardLastFour = &last
		}
		return p, nil
	})
	if err != nil {
		if err == domain.ErrDataNotFound {
			return nil, domain.NotFound("Order", "Order with id %d not found", req.OrderID)
		}
		return nil, failure(s.logger, "Add payment", err)
	}

	s.logger.Info("Payment created",
		zap.Uint64("id", payment.ID),
		zap.Uint64("order", payment.OrderID),
		zap.String("status", string(payment.Status)),
		zap.String("method", string(payment.Method)))
	return payment, nil
}

// ConfirmPayment completes the PENDING payment identified by token and then
// asks the notifier to confirm the order to the customer. Notification
// failures are logged only.
func (s *PaymentService) ConfirmPayment(ctx context.Context, token string,
	principal *domain.Principal) (*domain.Payment, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.NotAuthorized("Order", "You are not allowed to access this order")
	}
	if strings.TrimSpace(token) == "" {
		return nil, domain.InvalidArgument("Payment", "Payment token is required")
	}

	payment, order, err := s.repo.UpdatePaymentByToken(ctx, token,
		func(p *domain.Payment, o *domain.Order) error {
			if !domain.CanAccess(o, principal) {
				return domain.NotAuthorized("Order", "You are not allowed to access this order")
			}
			switch p.Status {
			case domain.PaymentStatusCompleted:
				return domain.InvalidArgument("Payment", "Payment is already completed")
			case domain.PaymentStatusFailed:
				return domain.InvalidArgument("Payment", "Cannot confirm a failed payment")
			}
			if o.IsPaid() {
				return domain.InvalidArgument("Payment", "Order %d is already fully paid", o.ID)
			}
			p.Status = domain.PaymentStatusCompleted
			return nil
		})
	if err != nil {
		if err == domain.ErrDataNotFound {
			return nil, domain.NotFound("Payment", "Payment with token %s not found", token)
		}
		return nil, failure(s.logger, "Confirm payment", err)
	}

	s.logger.Info("Payment confirmed",
		zap.Uint64("id", payment.ID), zap.Uint64("order", payment.OrderID))

	if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
		s.logger.Warn("Order confirmation not sent",
			zap.Uint64("order", order.ID), zap.Error(err))
	}

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, paymentID uint64,
	principal *domain.Principal) (*domain.Payment, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.NotAuthorized("Payment", "You are not allowed to access this payment")
	}

	payment, err := s.repo.ReadPayment(ctx, paymentID)
	if err != nil {
		if err == domain.ErrDataNotFound {
			return nil, domain.NotFound("Payment", "Payment with id %d not found", paymentID)
		}
		return nil, failure(s.logger, "Read payment", err)
	}

	if _, err := s.accessibleOrder(ctx, payment.OrderID, principal); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) GetPaymentsForOrder(ctx context.Context, orderID uint64,
	principal *domain.Principal) ([]*domain.Payment, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.NotAuthorized("Order", "You are not allowed to access this order")
	}
	if _, err := s.accessibleOrder(ctx, orderID, principal); err != nil {
		return nil, err
	}

	list, err := s.repo.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, failure(s.logger, "List order payments", err)
	}
	return list, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, page domain.PageRequest,
	principal *domain.Principal) (*domain.Page[*domain.Payment], error) {
	if !principal.IsAdmin() {
		return nil, domain.NotAuthorized("Payment", "Only administrators may list all payments")
	}

	result, err := s.repo.ListPayments(ctx, page.Normalize())
	if err != nil {
		return nil, failure(s.logger, "List payments", err)
	}
	return result, nil
}

func (s *PaymentService) accessibleOrder(ctx context.Context, orderID uint64,
	principal *domain.Principal) (*domain.Order, error) {
	order, err := s.repo.ReadOrder(ctx, orderID)
	if err != nil {
		if err == domain.ErrDataNotFound {
			return nil, domain.NotFound("Order", "Order with id %d not found", orderID)
		}
		return nil, failure(s.logger, "Read order", err)
	}
	if !domain.CanAccess(order, principal) {
		return nil, domain.NotAuthorized("Order", "You are not allowed to access this order")
	}
	return order, nil
}
