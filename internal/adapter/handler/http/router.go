package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Router struct {
	*gin.Engine
	logger *zap.Logger
}

func NewRouter(
	tokenService port.TokenService,
	orderHandler *OrderHandler,
	paymentHandler *PaymentHandler,
	logger *zap.Logger) (*Router, error) {

	router := gin.New()
	router.ContextWithFallback = true
	router.Use(gin.Recovery(), requestLogger(logger))

	// Swagger
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h := NewHandler(logger)

	api := router.Group("/api")
	api.Use(authCheck(h, tokenService))
	{
		orders := api.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.POST("/search", orderHandler.SearchOrders)
			orders.GET("/code/:code", orderHandler.GetOrderByCode)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/payments", orderHandler.ListOrderPayments)
			orders.PUT("/:id/status", adminOnly(h), orderHandler.UpdateOrderStatus)
		}

		payments := api.Group("/payments")
		{
			payments.POST("", paymentHandler.CreatePayment)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
			payments.GET("", paymentHandler.ListPayments)
			payments.GET("/:id", paymentHandler.GetPayment)
		}
	}

	return &Router{Engine: router, logger: logger}, nil
}

// Serve starts the HTTP server and shuts it down when ctx is done.
func (r *Router) Serve(ctx context.Context, listenAddr string) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           otelhttp.NewHandler(r.Engine, "webstore"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", zap.String("address", listenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
