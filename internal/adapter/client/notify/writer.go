package notify

import (
	"context"
	"strings"

	"github.com/MikeRez0/webstore/internal/adapter/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewWriter returns a kafka writer for the configured brokers, or a writer
// that only logs messages when no brokers are set.
func NewWriter(cfg *config.Notify, log *zap.Logger) MessageWriter {
	brokers := make([]string, 0)
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return &logWriter{logger: log}
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

type logWriter struct {
	logger *zap.Logger
}

func (w *logWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		w.logger.Info("order confirmation",
			zap.ByteString("key", m.Key),
			zap.ByteString("value", m.Value))
	}
	return nil
}

func (w *logWriter) Close() error {
	return nil
}
