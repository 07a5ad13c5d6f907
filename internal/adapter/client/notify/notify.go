// Package notify delivers order confirmations to customers through a
// message broker. Sending only enqueues; workers publish in the background.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MikeRez0/webstore/internal/adapter/config"
	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/MikeRez0/webstore/internal/core/port"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const eventOrderConfirmed = "order_confirmed"

var ErrQueueFull = errors.New("notification queue is full")

// MessageWriter is the part of *kafka.Writer the dispatcher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type job struct {
	msg     kafka.Message
	attempt int
}

type Dispatcher struct {
	logger     *zap.Logger
	writer     MessageWriter
	breaker    *gobreaker.CircuitBreaker[struct{}]
	queue      chan job
	retries    int
	retryDelay time.Duration
}

var _ port.Notifier = (*Dispatcher)(nil)

func NewDispatcher(cfg *config.Notify, writer MessageWriter, log *zap.Logger) (*Dispatcher, error) {
	if cfg.QueueSize < 1 {
		return nil, fmt.Errorf("notify queue size must be positive, got %d", cfg.QueueSize)
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notify",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Dispatcher{
		logger:     log,
		writer:     writer,
		breaker:    breaker,
		queue:      make(chan job, cfg.QueueSize),
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// SendOrderConfirmation queues a confirmation for order. It never blocks;
// a full queue is reported as ErrQueueFull.
func (d *Dispatcher) SendOrderConfirmation(_ context.Context, order *domain.Order) error {
	msg, err := newConfirmation(order)
	if err != nil {
		return err
	}

	select {
	case d.queue <- job{msg: msg}:
		d.logger.Debug("confirmation queued", zap.String("order", order.Code))
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts workers that publish queued confirmations until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, workers int) {
	for range workers {
		go func() {
			for {
				select {
				case j := <-d.queue:
					d.deliver(ctx, j)
				case <-ctx.Done():
					d.logger.Debug("Finished worker")
					return
				}
			}
		}()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	_, err := d.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, d.writer.WriteMessages(ctx, j.msg)
	})
	if err == nil {
		d.logger.Info("confirmation published", zap.ByteString("order", j.msg.Key))
		return
	}

	if j.attempt >= d.retries {
		d.logger.Error("confirmation dropped",
			zap.ByteString("order", j.msg.Key),
			zap.Int("attempts", j.attempt+1),
			zap.Error(err))
		return
	}

	d.logger.Warn("confirmation publish failed, will retry",
		zap.ByteString("order", j.msg.Key), zap.Error(err))
	j.attempt++
	go d.retry(ctx, j)
}

func (d *Dispatcher) retry(ctx context.Context, j job) {
	r := time.NewTimer(d.retryDelay)
	defer r.Stop()

	select {
	case <-r.C:
		select {
		case d.queue <- j:
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}
}

func (d *Dispatcher) Close() error {
	return d.writer.Close()
}

type confirmationItem struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Tax       string `json:"tax"`
}

type confirmationAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Country string `json:"country"`
}

type confirmation struct {
	OrderID   uint64              `json:"order_id"`
	Code      string              `json:"code"`
	Email     string              `json:"email"`
	Status    string              `json:"status"`
	Total     string              `json:"total"`
	TotalTax  string              `json:"total_tax"`
	Address   confirmationAddress `json:"shipping_address"`
	Items     []confirmationItem  `json:"items"`
	CreatedAt time.Time           `json:"created_at"`
}

func newConfirmation(order *domain.Order) (kafka.Message, error) {
	tax, err := order.TotalTax()
	if err != nil {
		return kafka.Message{}, err
	}

	c := confirmation{
		OrderID:  order.ID,
		Code:     order.Code,
		Email:    order.UserEmail,
		Status:   string(order.Status),
		Total:    order.TotalPrice.String(),
		TotalTax: tax.String(),
		Address: confirmationAddress{
			Street:  order.ShippingAddress.Street,
			City:    order.ShippingAddress.City,
			Zipcode: order.ShippingAddress.Zipcode,
			Country: order.ShippingAddress.Country,
		},
		Items:     make([]confirmationItem, 0, len(order.Items)),
		CreatedAt: order.CreatedAt,
	}
	for _, item := range order.Items {
		c.Items = append(c.Items, confirmationItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.String(),
			Tax:       item.Tax.String(),
		})
	}

	value, err := json.Marshal(c)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal confirmation: %w", err)
	}

	return kafka.Message{
		Key:   []byte(order.Code),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventOrderConfirmed)},
		},
	}, nil
}
