package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/webstore/internal/adapter/storage"
	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct {
	db *storage.DB
}

var _ port.Repository = (*Repository)(nil)

func NewRepository(db *storage.DB) (*Repository, error) {
	return &Repository{db: db}, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

var orderColumns = []string{
	"o.id", "o.code", "o.user_id", "u.email", "o.status", "o.total_price",
	"o.street", "o.city", "o.zipcode", "o.country", "o.created_at", "o.updated_at",
}

var paymentColumns = []string{
	"id", "order_id", "method", "status", "amount", "card_brand", "card_last_four",
	"transaction_id", "payment_token", "created_at", "updated_at",
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return domain.ErrConflictingData
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrDataNotFound
	}
	return err
}

// User

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	statement := r.db.QueryBuilder.
		Insert("users").
		Columns("email", "role").
		Values(user.Email, string(user.Role)).
		Suffix("RETURNING id")

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&user.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID uint64) (*domain.User, error) {
	statement := r.db.QueryBuilder.
		Select("id", "email", "role").
		From("users").
		Where(sq.Eq{"id": userID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	user := domain.User{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.Email, &user.Role)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// Product

func (r *Repository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	statement := r.db.QueryBuilder.
		Insert("products").
		Columns("name", "price", "stock", "active").
		Values(product.Name, product.Price, product.Stock, product.Active).
		Suffix("RETURNING id")

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&product.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return product, nil
}

func (r *Repository) ReadProduct(ctx context.Context, productID uint64) (*domain.Product, error) {
	statement := r.db.QueryBuilder.
		Select("id", "name", "price", "stock", "active").
		From("products").
		Where(sq.Eq{"id": productID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	product, err := scanProduct(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return product, nil
}

func scanProduct(row scanner) (*domain.Product, error) {
	p := domain.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Active)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// lockProducts reads the given products FOR UPDATE in id order.
func (r *Repository) lockProducts(ctx context.Context, tx pgx.Tx,
	productIDs []uint64) (map[uint64]*domain.Product, error) {
	products := make(map[uint64]*domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return products, nil
	}

	statement := r.db.QueryBuilder.
		Select("id", "name", "price", "stock", "active").
		From("products").
		Where(sq.Eq{"id": productIDs}).
		OrderBy("id").
		Suffix("FOR UPDATE")

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

// Order

func (r *Repository) PlaceOrder(ctx context.Context, order *domain.Order, productIDs []uint64,
	placeFn port.PlaceOrderFn) (*domain.Order, error) {
	var orderID uint64

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		products, err := r.lockProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}
		stockBefore := make(map[uint64]int, len(products))
		for id, p := range products {
			stockBefore[id] = p.Stock
		}

		if err := placeFn(order, products); err != nil {
			return err
		}

		for _, id := range productIDs {
			p, ok := products[id]
			if !ok || p.Stock == stockBefore[id] {
				continue
			}
			if err := r.updateStock(ctx, tx, p); err != nil {
				return err
			}
		}

		orderSt := r.db.QueryBuilder.
			Insert("orders").
			Columns("code", "user_id", "status", "total_price", "street", "city", "zipcode", "country").
			Values(order.Code, order.UserID, string(order.Status), order.TotalPrice,
				order.ShippingAddress.Street, order.ShippingAddress.City,
				order.ShippingAddress.Zipcode, order.ShippingAddress.Country).
			Suffix("RETURNING id")

		sql, args, err := orderSt.ToSql()
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&orderID); err != nil {
			return err
		}

		if len(order.Items) == 0 {
			return nil
		}

		itemsSt := r.db.QueryBuilder.
			Insert("order_items").
			Columns("order_id", "product_id", "quantity", "price", "tax", "discount")
		for _, item := range order.Items {
			itemsSt = itemsSt.Values(orderID, item.ProductID, item.Quantity, item.Price, item.Tax, item.Discount)
		}

		sql, args, err = itemsSt.ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}

	return r.ReadOrder(ctx, orderID)
}

func (r *Repository) updateStock(ctx context.Context, tx pgx.Tx, p *domain.Product) error {
	statement := r.db.QueryBuilder.
		Update("products").
		Set("stock", p.Stock).
		Where(sq.Eq{"id": p.ID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

func (r *Repository) selectOrders() sq.SelectBuilder {
	return r.db.QueryBuilder.
		Select(orderColumns...).
		From("orders o").
		Join("users u ON u.id = o.user_id")
}

func scanOrder(row scanner) (*domain.Order, error) {
	o := domain.Order{}
	err := row.Scan(
		&o.ID,
		&o.Code,
		&o.UserID,
		&o.UserEmail,
		&o.Status,
		&o.TotalPrice,
		&o.ShippingAddress.Street,
		&o.ShippingAddress.City,
		&o.ShippingAddress.Zipcode,
		&o.ShippingAddress.Country,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// readOrder loads one order with its items and payments. With lock set the
// order row stays locked until the surrounding transaction ends.
func (r *Repository) readOrder(ctx context.Context, q querier, where sq.Sqlizer, lock bool) (*domain.Order, error) {
	statement := r.selectOrders().Where(where)
	if lock {
		statement = statement.Suffix("FOR UPDATE OF o")
	}

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	order, err := scanOrder(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}

	if err := r.loadChildren(ctx, q, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// loadChildren attaches items and payments to orders with one query each.
func (r *Repository) loadChildren(ctx context.Context, q querier, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(orders))
	byID := make(map[uint64]*domain.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	itemsSt := r.db.QueryBuilder.
		Select("order_id", "product_id", "quantity", "price", "tax", "discount").
		From("order_items").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("id")

	sql, args, err := itemsSt.ToSql()
	if err != nil {
		return err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var orderID uint64
		item := domain.OrderItem{}
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity,
			&item.Price, &item.Tax, &item.Discount); err != nil {
			rows.Close()
			return err
		}
		byID[orderID].AddItem(item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	paymentsSt := r.db.QueryBuilder.
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("id")

	sql, args, err = paymentsSt.ToSql()
	if err != nil {
		return err
	}
	rows, err = q.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return err
		}
		byID[p.OrderID].AddPayment(*p)
	}
	return rows.Err()
}

func (r *Repository) ReadOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	return r.readOrder(ctx, r.db, sq.Eq{"o.id": orderID}, false)
}

func (r *Repository) ReadOrderByCode(ctx context.Context, code string) (*domain.Order, error) {
	return r.readOrder(ctx, r.db, sq.Eq{"o.code": code}, false)
}

func (r *Repository) UpdateOrder(ctx context.Context, orderID uint64,
	updateFn port.UpdateOrderFn) (*domain.Order, error) {
	var result *domain.Order

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := r.readOrder(ctx, tx, sq.Eq{"o.id": orderID}, true)
		if err != nil {
			return err
		}

		if err := updateFn(order); err != nil {
			return err
		}

		statement := r.db.QueryBuilder.
			Update("orders").
			Set("status", string(order.Status)).
			Set("street", order.ShippingAddress.Street).
			Set("city", order.ShippingAddress.City).
			Set("zipcode", order.ShippingAddress.Zipcode).
			Set("country", order.ShippingAddress.Country).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": orderID})

		sql, args, err := statement.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return err
		}

		result, err = r.readOrder(ctx, tx, sq.Eq{"o.id": orderID}, false)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (r *Repository) orderFilter(f domain.OrderFilter) sq.And {
	where := sq.And{}
	if f.Status != nil {
		where = append(where, sq.Eq{"o.status": string(*f.Status)})
	}
	if f.OrderID != nil {
		where = append(where, sq.Eq{"o.id": *f.OrderID})
	}
	if f.UserID != nil {
		where = append(where, sq.Eq{"o.user_id": *f.UserID})
	}
	if f.DateFrom != nil {
		where = append(where, sq.GtOrEq{"o.created_at": *f.DateFrom})
	}
	if f.DateTo != nil {
		where = append(where, sq.LtOrEq{"o.created_at": *f.DateTo})
	}
	return where
}

func (r *Repository) ListOrders(ctx context.Context, filter domain.OrderFilter) (*domain.Page[*domain.Order], error) {
	where := r.orderFilter(filter)
	page := filter.PageRequest.Normalize()

	total, err := r.count(ctx, r.db.QueryBuilder.Select("count(*)").From("orders o").Where(where))
	if err != nil {
		return nil, err
	}

	statement := r.selectOrders().
		Where(where).
		OrderBy("o.id").
		Limit(uint64(page.Size)).
		Offset(page.Offset())

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	list := make([]*domain.Order, 0, page.Size)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, r.db, list); err != nil {
		return nil, err
	}

	return &domain.Page[*domain.Order]{
		Items:      list,
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: total,
	}, nil
}

func (r *Repository) count(ctx context.Context, statement sq.SelectBuilder) (int64, error) {
	sql, args, err := statement.ToSql()
	if err != nil {
		return 0, err
	}
	var total int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return total, nil
}

// Payment

func scanPayment(row scanner) (*domain.Payment, error) {
	p := domain.Payment{}
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Method,
		&p.Status,
		&p.Amount,
		&p.CardBrand,
		&p.CardLastFour,
		&p.TransactionID,
		&p.PaymentToken,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) AddPayment(ctx context.Context, orderID uint64,
	addFn port.AddPaymentFn) (*domain.Payment, error) {
	var payment *domain.Payment

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := r.readOrder(ctx, tx, sq.Eq{"o.id": orderID}, true)
		if err != nil {
			return err
		}

		payment, err = addFn(order)
		if err != nil {
			return err
		}
		payment.OrderID = orderID

		statement := r.db.QueryBuilder.
			Insert("payments").
			Columns("order_id", "method", "status", "amount", "card_brand", "card_last_four",
				"transaction_id", "payment_token").
			Values(orderID, string(payment.Method), string(payment.Status), payment.Amount,
				payment.CardBrand, payment.CardLastFour, payment.TransactionID, payment.PaymentToken).
			Suffix("RETURNING id, created_at, updated_at")

		sql, args, err := statement.ToSql()
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx, sql, args...).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

// UpdatePaymentByToken locks the owning order before the payment so that
// confirmations of sibling payments are serialized.
func (r *Repository) UpdatePaymentByToken(ctx context.Context, token string,
	updateFn port.UpdatePaymentFn) (*domain.Payment, *domain.Order, error) {
	var (
		payment *domain.Payment
		order   *domain.Order
	)

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		lookup := r.db.QueryBuilder.
			Select("order_id").
			From("payments").
			Where(sq.Eq{"payment_token": token})

		sql, args, err := lookup.ToSql()
		if err != nil {
			return err
		}
		var orderID uint64
		if err := tx.QueryRow(ctx, sql, args...).Scan(&orderID); err != nil {
			return err
		}

		order, err = r.readOrder(ctx, tx, sq.Eq{"o.id": orderID}, true)
		if err != nil {
			return err
		}

		paymentSt := r.db.QueryBuilder.
			Select(paymentColumns...).
			From("payments").
			Where(sq.Eq{"payment_token": token}).
			Suffix("FOR UPDATE")

		sql, args, err = paymentSt.ToSql()
		if err != nil {
			return err
		}
		payment, err = scanPayment(tx.QueryRow(ctx, sql, args...))
		if err != nil {
			return err
		}

		if err := updateFn(payment, order); err != nil {
			return err
		}

		update := r.db.QueryBuilder.
			Update("payments").
			Set("status", string(payment.Status)).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": payment.ID}).
			Suffix("RETURNING updated_at")

		sql, args, err = update.ToSql()
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&payment.UpdatedAt); err != nil {
			return err
		}

		order, err = r.readOrder(ctx, tx, sq.Eq{"o.id": orderID}, false)
		return err
	})
	if err != nil {
		return nil, nil, mapError(err)
	}
	return payment, order, nil
}

func (r *Repository) ReadPayment(ctx context.Context, paymentID uint64) (*domain.Payment, error) {
	statement := r.db.QueryBuilder.
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"id": paymentID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	payment, err := scanPayment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

func (r *Repository) listPayments(ctx context.Context, statement sq.SelectBuilder) ([]*domain.Payment, error) {
	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *Repository) ListPaymentsByOrder(ctx context.Context, orderID uint64) ([]*domain.Payment, error) {
	return r.listPayments(ctx, r.db.QueryBuilder.
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id"))
}

func (r *Repository) ListPayments(ctx context.Context, page domain.PageRequest) (*domain.Page[*domain.Payment], error) {
	page = page.Normalize()

	total, err := r.count(ctx, r.db.QueryBuilder.Select("count(*)").From("payments"))
	if err != nil {
		return nil, err
	}

	list, err := r.listPayments(ctx, r.db.QueryBuilder.
		Select(paymentColumns...).
		From("payments").
		OrderBy("id DESC").
		Limit(uint64(page.Size)).
		Offset(page.Offset()))
	if err != nil {
		return nil, err
	}

	return &domain.Page[*domain.Payment]{
		Items:      list,
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: total,
	}, nil
}
