// Package cache puts a redis read-through cache in front of order lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrStaleRead = errors.New("order changed while it was read")
)

const maxJitter = time.Minute

// OrderCache wraps a repository. Reads by order id go through redis; every
// write that can change an order bumps its version and drops its entry after
// the write commits.
type OrderCache struct {
	port.Repository
	client  *redis.Client
	baseTTL time.Duration
	sfg     singleflight.Group
	logger  *zap.Logger
}

var _ port.Repository = (*OrderCache)(nil)

func NewOrderCache(repo port.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *OrderCache {
	return &OrderCache{
		Repository: repo,
		client:     client,
		baseTTL:    ttl,
		logger:     logger,
	}
}

func cacheKey(orderID uint64) string {
	return fmt.Sprintf("order:%d", orderID)
}

// versionKey counts the writes of an order. A read that started before a
// write must not store what it loaded.
func versionKey(orderID uint64) string {
	return fmt.Sprintf("order:%d:version", orderID)
}

func (c *OrderCache) get(ctx context.Context, orderID uint64) (*domain.Order, error) {
	data, err := c.client.Get(ctx, cacheKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", err)
	}
	return &order, nil
}

func (c *OrderCache) version(ctx context.Context, orderID uint64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(orderID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

// set stores order only while its version is still seen. It returns
// ErrStaleRead when a write happened after the version was read.
func (c *OrderCache) set(ctx context.Context, order *domain.Order, seen int64) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}

	vkey := versionKey(order.ID)
	ttl := c.baseTTL + time.Duration(rand.Int63n(int64(maxJitter)))
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != seen {
			return ErrStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(order.ID), data, ttl)
			return nil
		})
		return err
	}, vkey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStaleRead
	}
	if err != nil && !errors.Is(err, ErrStaleRead) {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return err
}

// invalidate bumps the version and drops the entry in one transaction.
// The version outlives any entry stored before the bump.
func (c *OrderCache) invalidate(ctx context.Context, orderID uint64) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(orderID))
		pipe.Expire(ctx, versionKey(orderID), c.baseTTL+2*maxJitter)
		pipe.Del(ctx, cacheKey(orderID))
		return nil
	})
	if err != nil {
		c.logger.Warn("cache invalidate failed", zap.Uint64("order", orderID), zap.Error(err))
	}
}

func (c *OrderCache) load(ctx context.Context, orderID uint64) (*domain.Order, error) {
	order, err := c.get(ctx, orderID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("cache get failed", zap.Uint64("order", orderID), zap.Error(err))
	}

	seen, verr := c.version(ctx, orderID)

	order, err = c.Repository.ReadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if verr != nil {
		c.logger.Warn("cache version failed", zap.Uint64("order", orderID), zap.Error(verr))
		return order, nil
	}
	err = c.set(ctx, order, seen)
	switch {
	case errors.Is(err, ErrStaleRead):
		c.logger.Debug("order changed during read, not cached", zap.Uint64("order", orderID))
	case err != nil:
		c.logger.Warn("cache set failed", zap.Uint64("order", orderID), zap.Error(err))
	}
	return order, nil
}

// ReadOrder serves from redis when possible. Concurrent misses for the same
// order share one repository read, which is detached from the cancellation of
// the caller that started it. Redis failures fall back to the repository.
func (c *OrderCache) ReadOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan(cacheKey(orderID), func() (interface{}, error) {
		return c.load(shared, orderID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// callers sharing a flight must not share the pointer
	order := *res.Val.(*domain.Order)
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	order.Payments = append([]domain.Payment(nil), order.Payments...)
	return &order, nil
}

func (c *OrderCache) UpdateOrder(ctx context.Context, orderID uint64,
	updateFn port.UpdateOrderFn) (*domain.Order, error) {
	order, err := c.Repository.UpdateOrder(ctx, orderID, updateFn)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, orderID)
	return order, nil
}

func (c *OrderCache) AddPayment(ctx context.Context, orderID uint64,
	addFn port.AddPaymentFn) (*domain.Payment, error) {
	payment, err := c.Repository.AddPayment(ctx, orderID, addFn)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, orderID)
	return payment, nil
}

func (c *OrderCache) UpdatePaymentByToken(ctx context.Context, token string,
	updateFn port.UpdatePaymentFn) (*domain.Payment, *domain.Order, error) {
	payment, order, err := c.Repository.UpdatePaymentByToken(ctx, token, updateFn)
	if err != nil {
		return nil, nil, err
	}
	c.invalidate(ctx, payment.OrderID)
	return payment, order, nil
}
