package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	Handler
	orders   port.OrderService
	payments port.PaymentService
}

func NewOrderHandler(orders port.OrderService, payments port.PaymentService,
	logger *zap.Logger) (*OrderHandler, error) {
	return &OrderHandler{
		Handler:  *NewHandler(logger),
		orders:   orders,
		payments: payments,
	}, nil
}

type orderItemRequest struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	// UserID lets an admin place an order on behalf of another user.
	UserID          *uint64            `json:"user_id"`
	ShippingAddress *addressBody       `json:"shipping_address"`
	Items           []orderItemRequest `json:"items"`
}

func (oh *OrderHandler) CreateOrder(ctx *gin.Context) {
	req := createOrderRequest{}
	err := ctx.ShouldBindJSON(&req)
	if err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	principal := getPrincipal(ctx)
	userID := principal.UserID
	if req.UserID != nil && *req.UserID != userID {
		if !principal.IsAdmin() {
			oh.handleError(ctx, domain.NotAuthorized("Order", "You are not allowed to place orders for another user"))
			return
		}
		userID = *req.UserID
	}

	items := make([]domain.OrderItemRequest, 0, len(req.Items))
	for _, i := range req.Items {
		items = append(items, domain.OrderItemRequest{ProductID: i.ProductID, Quantity: i.Quantity})
	}

	order, err := oh.orders.CreateOrder(ctx, domain.OrderRequest{
		UserID:          userID,
		ShippingAddress: req.ShippingAddress.toDomain(),
		Items:           items,
	})
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccessWithStatus(ctx, newOrderResponse(order), http.StatusCreated)
}

type listOrdersQuery struct {
	Page   int    `form:"page"`
	Size   int    `form:"size"`
	Status string `form:"status"`
}

func (oh *OrderHandler) ListOrders(ctx *gin.Context) {
	q := listOrdersQuery{}
	err := ctx.ShouldBindQuery(&q)
	if err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	filter := domain.OrderFilter{PageRequest: domain.PageRequest{Page: q.Page, Size: q.Size}}
	if q.Status != "" {
		status := domain.OrderStatus(q.Status)
		filter.Status = &status
	}
	oh.listOrders(ctx, filter)
}

type searchOrdersRequest struct {
	Status   *string    `json:"status"`
	OrderID  *uint64    `json:"order_id"`
	UserID   *uint64    `json:"user_id"`
	DateFrom *time.Time `json:"date_from"`
	DateTo   *time.Time `json:"date_to"`
	Page     int        `json:"page"`
	Size     int        `json:"size"`
}

func (oh *OrderHandler) SearchOrders(ctx *gin.Context) {
	req := searchOrdersRequest{}
	err := ctx.ShouldBindJSON(&req)
	if err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	filter := domain.OrderFilter{
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		PageRequest: domain.PageRequest{Page: req.Page, Size: req.Size},
	}
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		filter.Status = &status
	}
	oh.listOrders(ctx, filter)
}

func (oh *OrderHandler) listOrders(ctx *gin.Context, filter domain.OrderFilter) {
	page, err := oh.orders.ListOrders(ctx, filter, getPrincipal(ctx))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}
	oh.handleSuccess(ctx, newPageResponse(page, newOrderResponse))
}

func (oh *OrderHandler) GetOrder(ctx *gin.Context) {
	orderID, err := idParam(ctx)
	if err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	order, err := oh.orders.GetOrder(ctx, orderID, getPrincipal(ctx))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}
	oh.handleSuccess(ctx, newOrderResponse(order))
}

func (oh *OrderHandler) GetOrderByCode(ctx *gin.Context) {
	order, err := oh.orders.GetOrderByCode(ctx, ctx.Param("code"), getPrincipal(ctx))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}
	oh.handleSuccess(ctx, newOrderResponse(order))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (oh *OrderHandler) UpdateOrderStatus(ctx *gin.Context) {
	orderID, err := idParam(ctx)
	if err != nil {
		oh.handleValidationError(ctx, err)
		return
	}
	req := updateStatusRequest{}
	err = ctx.ShouldBindJSON(&req)
	if err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	order, err := oh.orders.UpdateOrderStatus(ctx, orderID, domain.OrderStatus(req.Status))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}
	oh.handleSuccess(ctx, newOrderResponse(order))
}

func (oh *OrderHandler) ListOrderPayments(ctx *gin.Context) {
	orderID, err := idParam(ctx)
	if err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	list, err := oh.payments.GetPaymentsForOrder(ctx, orderID, getPrincipal(ctx))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	result := make([]paymentResponse, 0, len(list))
	for _, p := range list {
		result = append(result, newPaymentResponse(p))
	}
	oh.handleSuccess(ctx, result)
}

func idParam(ctx *gin.Context) (uint64, error) {
	return strconv.ParseUint(ctx.Param("id"), 10, 64)
}
