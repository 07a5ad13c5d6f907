package e2etest

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/MikeRez0/webstore/internal/adapter/config"
	"github.com/MikeRez0/webstore/internal/adapter/logger"
	"github.com/MikeRez0/webstore/internal/adapter/storage"
	"github.com/MikeRez0/webstore/internal/adapter/storage/repository"
	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port/mock"
	"github.com/MikeRez0/webstore/internal/core/service"
	"github.com/MikeRez0/webstore/internal/e2etest/testdb"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbtest *testdb.TestDBInstance

func setup() {
	var err error
	dbtest, err = testdb.NewTestDBInstance()
	if err != nil {
		log.Printf("postgres tests skipped: %s", err)
	}
}

func shutdown() {
	if dbtest != nil {
		dbtest.Down()
	}
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	shutdown()
	os.Exit(code)
}

type deps struct {
	repo     *repository.Repository
	orders   *service.OrderService
	payments *service.PaymentService
	notifier *mock.MockNotifier
	user     *domain.User
	admin    *domain.Principal
	owner    *domain.Principal
}

func getDeps(t *testing.T) *deps {
	t.Helper()
	if dbtest == nil {
		t.Skip("docker is not available")
	}
	ctx := context.Background()

	db, err := storage.NewDBStorage(ctx, &config.Database{DSN: dbtest.DSN})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.RunMigrations())

	repo, err := repository.NewRepository(db)
	require.NoError(t, err)

	user, err := repo.CreateUser(ctx, &domain.User{
		Email: uuid.NewString() + "@example.com",
		Role:  domain.RoleUser,
	})
	require.NoError(t, err)

	l := logger.NewLogger(&config.App{LogLevel: "debug"})
	require.NotNil(t, l)

	notifier := mock.NewMockNotifier(gomock.NewController(t))
	orders, err := service.NewOrderService(repo, l)
	require.NoError(t, err)
	payments, err := service.NewPaymentService(repo, notifier, l)
	require.NoError(t, err)

	return &deps{
		repo:     repo,
		orders:   orders,
		payments: payments,
		notifier: notifier,
		user:     user,
		owner:    &domain.Principal{UserID: user.ID, Role: domain.RoleUser, Authenticated: true},
		admin:    &domain.Principal{UserID: 0, Role: domain.RoleAdmin, Authenticated: true},
	}
}

func (d *deps) product(t *testing.T, price string, stock int) *domain.Product {
	t.Helper()
	p, err := d.repo.CreateProduct(context.Background(), &domain.Product{
		Name:   "Product " + uuid.NewString()[:6],
		Price:  decimal.MustParse(price),
		Stock:  stock,
		Active: true,
	})
	require.NoError(t, err)
	return p
}

func (d *deps) stock(t *testing.T, productID uint64) int {
	t.Helper()
	p, err := d.repo.ReadProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func address() *domain.Address {
	return &domain.Address{Street: "Main 1", City: "Athens", Zipcode: "10431", Country: "GR"}
}

func TestServiceDB_CreateOrder(t *testing.T) {
	d := getDeps(t)
	ctx := context.Background()
	kettle := d.product(t, "50.00", 10)
	toaster := d.product(t, "30.00", 2)

	type createOrderTest struct {
		name      string
		items     []domain.OrderItemRequest
		expError  error
		expTotal  string
		expStocks map[uint64]int
	}

	tests := []createOrderTest{
		{
			name:      "Create good order",
			items:     []domain.OrderItemRequest{{ProductID: kettle.ID, Quantity: 2}},
			expTotal:  "100.00",
			expStocks: map[uint64]int{kettle.ID: 8, toaster.ID: 2},
		},
		{
			name: "Insufficient stock rolls back",
			items: []domain.OrderItemRequest{
				{ProductID: kettle.ID, Quantity: 1},
				{ProductID: toaster.ID, Quantity: 3},
			},
			expError:  domain.ErrInvalidArgument,
			expStocks: map[uint64]int{kettle.ID: 8, toaster.ID: 2},
		},
		{
			name:      "Unknown product",
			items:     []domain.OrderItemRequest{{ProductID: toaster.ID + 1000, Quantity: 1}},
			expError:  domain.ErrDataNotFound,
			expStocks: map[uint64]int{kettle.ID: 8, toaster.ID: 2},
		},
		{
			name: "Two products",
			items: []domain.OrderItemRequest{
				{ProductID: toaster.ID, Quantity: 2},
				{ProductID: kettle.ID, Quantity: 1},
			},
			expTotal:  "110.00",
			expStocks: map[uint64]int{kettle.ID: 7, toaster.ID: 0},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			order, err := d.orders.CreateOrder(ctx, domain.OrderRequest{
				UserID:          d.user.ID,
				ShippingAddress: address(),
				Items:           test.items,
			})
			if test.expError != nil {
				assert.ErrorIs(t, err, test.expError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, test.expTotal, order.TotalPrice.String())
				assert.Equal(t, d.user.Email, order.UserEmail)
				assert.Len(t, order.Items, len(test.items))

				byCode, err := d.orders.GetOrderByCode(ctx, order.Code, d.owner)
				require.NoError(t, err)
				assert.Equal(t, order.ID, byCode.ID)
			}
			for id, exp := range test.expStocks {
				assert.Equal(t, exp, d.stock(t, id), fmt.Sprintf("product %d", id))
			}
		})
	}
}

func TestServiceDB_PaymentFlow(t *testing.T) {
	d := getDeps(t)
	ctx := context.Background()
	kettle := d.product(t, "50.00", 10)

	order, err := d.orders.CreateOrder(ctx, domain.OrderRequest{
		UserID:          d.user.ID,
		ShippingAddress: address(),
		Items:           []domain.OrderItemRequest{{ProductID: kettle.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = d.payments.CreatePayment(ctx, domain.PaymentRequest{
		OrderID:    order.ID,
		Method:     domain.PaymentMethodCreditCard,
		CardNumber: "4111111111111111",
	}, d.owner)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	payment, err := d.payments.CreatePayment(ctx, domain.PaymentRequest{
		OrderID:    order.ID,
		Method:     domain.PaymentMethodCreditCard,
		CardNumber: "6666-0000-0000-0001",
	}, d.owner)
	require.NoError(t, err)
	assert.Equal(t, domain.CardBrandTest, payment.CardBrand)
	require.NotNil(t, payment.CardLastFour)
	assert.Equal(t, "0001", *payment.CardLastFour)
	assert.Equal(t, "100.00", payment.Amount.String())

	stranger := &domain.Principal{UserID: d.user.ID + 1000, Role: domain.RoleUser, Authenticated: true}
	_, err = d.payments.ConfirmPayment(ctx, payment.PaymentToken, stranger)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	d.notifier.EXPECT().SendOrderConfirmation(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, o *domain.Order) error {
			assert.Equal(t, order.Code, o.Code)
			assert.True(t, o.IsPaid())
			return nil
		}).Times(1)

	confirmed, err := d.payments.ConfirmPayment(ctx, payment.PaymentToken, d.owner)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, confirmed.Status)

	_, err = d.payments.ConfirmPayment(ctx, payment.PaymentToken, d.owner)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	list, err := d.payments.GetPaymentsForOrder(ctx, order.ID, d.owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.PaymentStatusCompleted, list[0].Status)

	page, err := d.payments.ListPayments(ctx, domain.PageRequest{Size: 5}, d.admin)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, page.TotalItems, int64(1))
}

func TestServiceDB_StockIsConserved(t *testing.T) {
	d := getDeps(t)
	toaster := d.product(t, "30.00", 3)

	const buyers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.orders.CreateOrder(context.Background(), domain.OrderRequest{
				UserID:          d.user.ID,
				ShippingAddress: address(),
				Items:           []domain.OrderItemRequest{{ProductID: toaster.ID, Quantity: 1}},
			})
			if err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, placed)
	assert.Equal(t, 0, d.stock(t, toaster.ID))
}

func TestServiceDB_OneCompletedPayment(t *testing.T) {
	d := getDeps(t)
	ctx := context.Background()
	kettle := d.product(t, "50.00", 10)

	order, err := d.orders.CreateOrder(ctx, domain.OrderRequest{
		UserID:          d.user.ID,
		ShippingAddress: address(),
		Items:           []domain.OrderItemRequest{{ProductID: kettle.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	tokens := make([]string, 0, 4)
	for range 4 {
		p, err := d.payments.CreatePayment(ctx, domain.PaymentRequest{
			OrderID: order.ID,
			Method:  domain.PaymentMethodBankTransfer,
		}, d.owner)
		require.NoError(t, err)
		tokens = append(tokens, p.PaymentToken)
	}

	d.notifier.EXPECT().SendOrderConfirmation(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			_, _ = d.payments.ConfirmPayment(ctx, token, d.owner)
		}(token)
	}
	wg.Wait()

	list, err := d.payments.GetPaymentsForOrder(ctx, order.ID, d.owner)
	require.NoError(t, err)
	completed := 0
	for _, p := range list {
		if p.Status == domain.PaymentStatusCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestServiceDB_ListOrders(t *testing.T) {
	d := getDeps(t)
	ctx := context.Background()
	kettle := d.product(t, "10.00", 10)

	for range 3 {
		_, err := d.orders.CreateOrder(ctx, domain.OrderRequest{
			UserID:          d.user.ID,
			ShippingAddress: address(),
			Items:           []domain.OrderItemRequest{{ProductID: kettle.ID, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	page, err := d.orders.ListOrders(ctx, domain.OrderFilter{PageRequest: domain.PageRequest{Size: 2}}, d.owner)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	require.Len(t, page.Items, 2)
	assert.Less(t, page.Items[0].ID, page.Items[1].ID)

	shipped := domain.OrderStatusShipped
	_, err = d.orders.UpdateOrderStatus(ctx, page.Items[0].ID, shipped)
	require.NoError(t, err)

	userID := d.user.ID
	page, err = d.orders.ListOrders(ctx, domain.OrderFilter{Status: &shipped, UserID: &userID}, d.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalItems)
}
