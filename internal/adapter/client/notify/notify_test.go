package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MikeRez0/webstore/internal/adapter/config"
	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/govalues/decimal"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failures > 0 {
		w.failures--
		return errors.New("broker unavailable")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) snapshot() (int, []kafka.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls, append([]kafka.Message(nil), w.messages...)
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:        3,
		Code:      "ORD-1A2B3C4D",
		UserEmail: "alice@example.com",
		Status:    domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: 5, Quantity: 2, Price: decimal.MustParse("50.00"), Tax: decimal.MustParse("19.35")},
		},
		TotalPrice: decimal.MustParse("100.00"),
		ShippingAddress: domain.Address{
			Street: "Patission 76", City: "Athens", Zipcode: "10434", Country: "GR",
		},
	}
}

func newTestDispatcher(t *testing.T, w MessageWriter, conf config.Notify) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(&conf, w, zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestDispatcher_Publishes(t *testing.T) {
	w := &fakeWriter{}
	d := newTestDispatcher(t, w, config.Notify{QueueSize: 4, Retries: 1, RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Run(ctx, 2)

	require.NoError(t, d.SendOrderConfirmation(ctx, testOrder()))

	require.Eventually(t, func() bool {
		_, msgs := w.snapshot()
		return len(msgs) == 1
	}, time.Second, 5*time.Millisecond)

	_, msgs := w.snapshot()
	assert.Equal(t, "ORD-1A2B3C4D", string(msgs[0].Key))
	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, eventOrderConfirmed, string(msgs[0].Headers[0].Value))

	var c confirmation
	require.NoError(t, json.Unmarshal(msgs[0].Value, &c))
	assert.Equal(t, "alice@example.com", c.Email)
	assert.Equal(t, "100.00", c.Total)
	assert.Equal(t, "19.35", c.TotalTax)
	assert.Equal(t, "Athens", c.Address.City)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestDispatcher_Retries(t *testing.T) {
	w := &fakeWriter{failures: 2}
	d := newTestDispatcher(t, w, config.Notify{QueueSize: 4, Retries: 3, RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Run(ctx, 1)

	require.NoError(t, d.SendOrderConfirmation(ctx, testOrder()))

	require.Eventually(t, func() bool {
		_, msgs := w.snapshot()
		return len(msgs) == 1
	}, time.Second, 5*time.Millisecond)

	calls, _ := w.snapshot()
	assert.Equal(t, 3, calls)
}

func TestDispatcher_GivesUp(t *testing.T) {
	w := &fakeWriter{failures: 100}
	d := newTestDispatcher(t, w, config.Notify{QueueSize: 4, Retries: 2, RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Run(ctx, 1)

	require.NoError(t, d.SendOrderConfirmation(ctx, testOrder()))

	require.Eventually(t, func() bool {
		calls, _ := w.snapshot()
		return calls == 3
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	calls, msgs := w.snapshot()
	assert.Equal(t, 3, calls)
	assert.Empty(t, msgs)
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := newTestDispatcher(t, &fakeWriter{}, config.Notify{QueueSize: 1})

	// no workers are running, so the second send finds the queue full
	require.NoError(t, d.SendOrderConfirmation(context.Background(), testOrder()))
	assert.ErrorIs(t, d.SendOrderConfirmation(context.Background(), testOrder()), ErrQueueFull)
}

func TestNewDispatcher_BadQueue(t *testing.T) {
	_, err := NewDispatcher(&config.Notify{QueueSize: 0}, &fakeWriter{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter(&config.Notify{Brokers: " , "}, zap.NewNop())
	_, ok := w.(*logWriter)
	assert.True(t, ok)
	assert.NoError(t, w.WriteMessages(context.Background(), kafka.Message{Key: []byte("k")}))

	w = NewWriter(&config.Notify{Brokers: "localhost:9092, localhost:9093", Topic: "orders"}, zap.NewNop())
	kw, ok := w.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "orders", kw.Topic)
	assert.NoError(t, kw.Close())
}
