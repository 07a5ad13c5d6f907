package http

import (
	"net/http"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	Handler
	service port.PaymentService
}

func NewPaymentHandler(service port.PaymentService, logger *zap.Logger) (*PaymentHandler, error) {
	return &PaymentHandler{
		Handler: Handler{logger: logger},
		service: service,
	}, nil
}

type createPaymentRequest struct {
	OrderID    uint64 `json:"order_id" binding:"required"`
	Method     string `json:"payment_method"`
	CardNumber string `json:"card_number"`
}

func (ph *PaymentHandler) CreatePayment(ctx *gin.Context) {
	req := createPaymentRequest{}
	err := ctx.ShouldBindJSON(&req)
	if err != nil {
		ph.handleValidationError(ctx, err)
		return
	}

	payment, err := ph.service.CreatePayment(ctx, domain.PaymentRequest{
		OrderID:    req.OrderID,
		Method:     domain.PaymentMethod(req.Method),
		CardNumber: req.CardNumber,
	}, getPrincipal(ctx))
	if err != nil {
		ph.handleError(ctx, err)
		return
	}

	ph.handleSuccessWithStatus(ctx, newPaymentResponse(payment), http.StatusCreated)
}

type confirmPaymentRequest struct {
	PaymentToken string `json:"payment_token"`
}

func (ph *PaymentHandler) ConfirmPayment(ctx *gin.Context) {
	req := confirmPaymentRequest{}
	err := ctx.ShouldBindJSON(&req)
	if err != nil {
		ph.handleValidationError(ctx, err)
		return
	}

	payment, err := ph.service.ConfirmPayment(ctx, req.PaymentToken, getPrincipal(ctx))
	if err != nil {
		ph.handleError(ctx, err)
		return
	}
	ph.handleSuccess(ctx, newPaymentResponse(payment))
}

func (ph *PaymentHandler) GetPayment(ctx *gin.Context) {
	paymentID, err := idParam(ctx)
	if err != nil {
		ph.handleValidationError(ctx, err)
		return
	}

	payment, err := ph.service.GetPayment(ctx, paymentID, getPrincipal(ctx))
	if err != nil {
		ph.handleError(ctx, err)
		return
	}
	ph.handleSuccess(ctx, newPaymentResponse(payment))
}

type pageQuery struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

func (ph *PaymentHandler) ListPayments(ctx *gin.Context) {
	q := pageQuery{}
	err := ctx.ShouldBindQuery(&q)
	if err != nil {
		ph.handleValidationError(ctx, err)
		return
	}

	page, err := ph.service.ListPayments(ctx, domain.PageRequest{Page: q.Page, Size: q.Size}, getPrincipal(ctx))
	if err != nil {
		ph.handleError(ctx, err)
		return
	}
	ph.handleSuccess(ctx, newPageResponse(page, newPaymentResponse))
}
