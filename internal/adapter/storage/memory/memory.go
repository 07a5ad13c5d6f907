// Package memory keeps users, products, orders and payments in process
// memory. Every callback runs under one mutex against copies of the stored
// rows; copies are written back only when the callback succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
)

type Repository struct {
	mu       sync.Mutex
	users    map[uint64]domain.User
	products map[uint64]domain.Product
	orders   map[uint64]domain.Order
	payments map[uint64]domain.Payment

	nextUserID    uint64
	nextProductID uint64
	nextOrderID   uint64
	nextPaymentID uint64

	now func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		users:    make(map[uint64]domain.User),
		products: make(map[uint64]domain.Product),
		orders:   make(map[uint64]domain.Order),
		payments: make(map[uint64]domain.Payment),
		now:      time.Now,
	}
}

var _ port.Repository = (*Repository)(nil)

// CreateUser stores u, assigning an ID when it has none.
func (r *Repository) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ex := range r.users {
		if ex.Email == u.Email {
			return nil, domain.ErrConflictingData
		}
	}
	if u.ID == 0 {
		r.nextUserID++
		u.ID = r.nextUserID
	} else if u.ID > r.nextUserID {
		r.nextUserID = u.ID
	}
	r.users[u.ID] = *u
	res := *u
	return &res, nil
}

// CreateProduct stores p, assigning an ID when it has none.
func (r *Repository) CreateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == 0 {
		r.nextProductID++
		p.ID = r.nextProductID
	} else if p.ID > r.nextProductID {
		r.nextProductID = p.ID
	}
	r.products[p.ID] = *p
	res := *p
	return &res, nil
}

func (r *Repository) ReadProduct(_ context.Context, productID uint64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	return &p, nil
}

func (r *Repository) GetUserByID(_ context.Context, userID uint64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	return &u, nil
}

func (r *Repository) PlaceOrder(_ context.Context, order *domain.Order, productIDs []uint64,
	placeFn port.PlaceOrderFn) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	products := make(map[uint64]*domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := r.products[id]; ok {
			products[id] = &p
		}
	}

	draft := cloneOrder(*order)
	if err := placeFn(&draft, products); err != nil {
		return nil, err
	}

	for _, ex := range r.orders {
		if ex.Code == draft.Code {
			return nil, domain.ErrConflictingData
		}
	}

	for id, p := range products {
		r.products[id] = *p
	}

	r.nextOrderID++
	now := r.now()
	draft.ID = r.nextOrderID
	draft.Payments = nil
	draft.CreatedAt = now
	draft.UpdatedAt = now
	r.orders[draft.ID] = cloneOrder(draft)

	return r.hydrate(draft), nil
}

func (r *Repository) ReadOrder(_ context.Context, orderID uint64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	return r.hydrate(o), nil
}

func (r *Repository) ReadOrderByCode(_ context.Context, code string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.Code == code {
			return r.hydrate(o), nil
		}
	}
	return nil, domain.ErrDataNotFound
}

func (r *Repository) UpdateOrder(_ context.Context, orderID uint64,
	updateFn port.UpdateOrderFn) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}

	draft := r.hydrate(o)
	if err := updateFn(draft); err != nil {
		return nil, err
	}

	// only the order row itself is writable here
	o.Status = draft.Status
	o.ShippingAddress = draft.ShippingAddress
	o.UpdatedAt = r.now()
	r.orders[orderID] = o

	return r.hydrate(o), nil
}

func (r *Repository) ListOrders(_ context.Context, filter domain.OrderFilter) (*domain.Page[*domain.Order], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]domain.Order, 0)
	for _, o := range r.orders {
		if matchOrder(o, filter) {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := filter.PageRequest.Normalize()
	result := &domain.Page[*domain.Order]{
		Items:      make([]*domain.Order, 0, page.Size),
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: int64(len(matched)),
	}
	for _, o := range paginate(matched, page) {
		result.Items = append(result.Items, r.hydrate(o))
	}
	return result, nil
}

func (r *Repository) AddPayment(_ context.Context, orderID uint64,
	addFn port.AddPaymentFn) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}

	p, err := addFn(r.hydrate(o))
	if err != nil {
		return nil, err
	}

	for _, ex := range r.payments {
		if ex.TransactionID == p.TransactionID || ex.PaymentToken == p.PaymentToken {
			return nil, domain.ErrConflictingData
		}
	}

	r.nextPaymentID++
	now := r.now()
	stored := clonePayment(*p)
	stored.ID = r.nextPaymentID
	stored.OrderID = orderID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.payments[stored.ID] = stored

	res := clonePayment(stored)
	return &res, nil
}

func (r *Repository) UpdatePaymentByToken(_ context.Context, token string,
	updateFn port.UpdatePaymentFn) (*domain.Payment, *domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *domain.Payment
	for _, p := range r.payments {
		if p.PaymentToken == token {
			p := clonePayment(p)
			found = &p
			break
		}
	}
	if found == nil {
		return nil, nil, domain.ErrDataNotFound
	}

	o, ok := r.orders[found.OrderID]
	if !ok {
		return nil, nil, domain.ErrDataNotFound
	}

	if err := updateFn(found, r.hydrate(o)); err != nil {
		return nil, nil, err
	}

	found.UpdatedAt = r.now()
	r.payments[found.ID] = clonePayment(*found)

	res := clonePayment(*found)
	return &res, r.hydrate(o), nil
}

func (r *Repository) ReadPayment(_ context.Context, paymentID uint64) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[paymentID]
	if !ok {
		return nil, domain.ErrDataNotFound
	}
	res := clonePayment(p)
	return &res, nil
}

func (r *Repository) ListPaymentsByOrder(_ context.Context, orderID uint64) ([]*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*domain.Payment, 0)
	for _, p := range r.orderPayments(orderID) {
		p := p
		list = append(list, &p)
	}
	return list, nil
}

func (r *Repository) ListPayments(_ context.Context, page domain.PageRequest) (*domain.Page[*domain.Payment], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]domain.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		all = append(all, clonePayment(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	page = page.Normalize()
	result := &domain.Page[*domain.Payment]{
		Items:      make([]*domain.Payment, 0, page.Size),
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: int64(len(all)),
	}
	for _, p := range paginate(all, page) {
		p := p
		result.Items = append(result.Items, &p)
	}
	return result, nil
}

// hydrate returns a copy of o with the owner email and payments attached.
// Callers must hold r.mu.
func (r *Repository) hydrate(o domain.Order) *domain.Order {
	res := cloneOrder(o)
	res.UserEmail = r.users[o.UserID].Email
	res.Payments = nil
	for _, p := range r.orderPayments(o.ID) {
		res.AddPayment(p)
	}
	return &res
}

func (r *Repository) orderPayments(orderID uint64) []domain.Payment {
	list := make([]domain.Payment, 0)
	for _, p := range r.payments {
		if p.OrderID == orderID {
			list = append(list, clonePayment(p))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func matchOrder(o domain.Order, f domain.OrderFilter) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.OrderID != nil && o.ID != *f.OrderID {
		return false
	}
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func paginate[T any](list []T, page domain.PageRequest) []T {
	from := int(page.Offset())
	if from >= len(list) {
		return nil
	}
	to := from + page.Size
	if to > len(list) {
		to = len(list)
	}
	return list[from:to]
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	payments := o.Payments
	o.Payments = make([]domain.Payment, 0, len(payments))
	for _, p := range payments {
		o.Payments = append(o.Payments, clonePayment(p))
	}
	return o
}

func clonePayment(p domain.Payment) domain.Payment {
	if p.CardLastFour != nil {
		last := *p.CardLastFour
		p.CardLastFour = &last
	}
	return p
}
