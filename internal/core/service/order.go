package service

import (
	"context"
	"fmt"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/MikeRez0/webstore/internal/core/pricing"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

// codeAttempts bounds retries when a generated order code is already taken.
const codeAttempts = 3

type OrderService struct {
	repo   port.Repository
	logger *zap.Logger
	code   func() string
}

var _ port.OrderService = (*OrderService)(nil)

func NewOrderService(repo port.Repository, logger *zap.Logger) (*OrderService, error) {
	return &OrderService{
		repo:   repo,
		logger: logger,
		code:   newOrderCode,
	}, nil
}

func (s *OrderService) CreateOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, domain.InvalidArgument("Order", "Order must contain at least one item")
	}
	if !req.ShippingAddress.Complete() {
		return nil, domain.InvalidArgument("Address", "Shipping address is required")
	}

	user, err := s.repo.GetUserByID(ctx, req.UserID)
	if err != nil {
		if err == domain.ErrDataNotFound {
			return nil, domain.NotFound("User", "User with id %d not found", req.UserID)
		}
		return nil, failure(s.logger, "Get user", err)
	}

	productIDs := make([]uint64, 0, len(req.Items))
	seen := make(map[uint64]struct{}, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, domain.InvalidArgument("Quantity",
				"Quantity for product %d must be at least 1", item.ProductID)
		}
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			productIDs = append(productIDs, item.ProductID)
		}
	}

	for attempt := 1; ; attempt++ {
		draft := &domain.Order{
			Code:            s.code(),
			UserID:          user.ID,
			UserEmail:       user.Email,
			ShippingAddress: *req.ShippingAddress,
		}

		order, err := s.repo.PlaceOrder(ctx, draft, productIDs,
			func(o *domain.Order, products map[uint64]*domain.Product) error {
				return fillOrder(o, req.Items, products)
			})
		if err == domain.ErrConflictingData && attempt < codeAttempts {
			s.logger.Debug("order code taken, retrying", zap.String("code", draft.Code))
			continue
		}
		if err != nil {
			return nil, failure(s.logger, "Place order", err)
		}

		s.logger.Info("Order created",
			zap.Uint64("id", order.ID),
			zap.String("code", order.Code),
			zap.Uint64("user", order.UserID),
			zap.String("total", order.TotalPrice.String()))
		return order, nil
	}
}

// fillOrder prices every requested line against the locked products and
// takes the stock. Any failure leaves the products to be discarded.
func fillOrder(o *domain.Order, items []domain.OrderItemRequest, products map[uint64]*domain.Product) error {
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return domain.NotFound("Product", "Product with id %d not found", item.ProductID)
		}
		if !product.Active {
			return domain.InvalidArgument("Product", "Product with id %d is inactive", product.ID)
		}
		if product.Stock < item.Quantity {
			return domain.InvalidArgument("Stock", "Insufficient stock for product %d", product.ID)
		}

		line, err := pricing.ComputeLine(product.Price, item.Quantity)
		if err != nil {
			return fmt.Errorf("price product %d: %w", product.ID, err)
		}

		o.AddItem(domain.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
			Tax:       line.Tax,
			Discount:  decimal.Zero,
		})
		product.Stock -= item.Quantity
	}

	total, err := o.CalculateTotal()
	if err != nil {
		return err
	}
	o.Status = domain.OrderStatusPending
	o.TotalPrice = total
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uint64,
	principal *domain.Principal) (*domain.Order, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.NotAuthorized("Order", "You are not allowed to access this order")
	}

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

func (s *OrderService) GetOrderByCode(ctx context.Context, code string,
	principal *domain.Principal) (*domain.Order, error) {
	if !principal.IsAuthenticated() {
		return nil, domain.NotAuthorized("Order", "You are not allowed to access this order")
	}

	order, err := s.repo.ReadOrderByCode(ctx, code)
	if err != nil {
		if err == domain.ErrDataNotFound {
			return nil, domain.NotFound("Order", "Order with code %s not found", code)
		}
		return nil, failure(s.logger, "Read order by code", err)
	}

	if !domain.CanAccess(order, principal) {
		return nil, domain.NotAuthorized("Order", "You are not allowed to access this order")
	}
	return order, nil
}

// UpdateOrderStatus overwrites the status. Any known status may follow any other.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint64,
	status domain.OrderStatus) (*domain.Order, error) {
	if status == "" {
		return nil, domain.InvalidArgument("OrderStatus", "Order status is required")
	}
	if !status.Valid() {
		return nil, domain.InvalidArgument("OrderStatus", "Unknown order status %s", status)
	}

	order, err := s.repo.UpdateOrder(ctx, orderID, func(o *domain.Order) error {
		o.Status = status
		return nil
	})
	if err != nil {
		if err == domain.ErrDataNotFound {
			return nil, domain.NotFound("Order", "Order with id %d not found", orderID)
		}
		return nil, failure(s.logger, "Update order", err)
	}

	s.logger.Info("Order status updated",
		zap.Uint64("id", order.ID), zap.String("status", string(order.Status)))
	return order, nil
}

// ListOrders returns one page of orders matching filter. Principals without
// the admin role only ever see their own orders.
func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter,
	principal *domain.Principal) (*domain.Page[*domain.Order], error) {
	if !principal.IsAuthenticated() {
		return nil, domain.NotAuthorized("Order", "You are not allowed to access these orders")
	}
	if !principal.IsAdmin() {
		userID := principal.UserID
		filter.UserID = &userID
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.InvalidArgument("OrderStatus", "Unknown order status %s", *filter.Status)
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, domain.InvalidArgument("Date", "Date from must not be after date to")
	}
	filter.PageRequest = filter.PageRequest.Normalize()

	page, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, failure(s.logger, "List orders", err)
	}
	return page, nil
}
