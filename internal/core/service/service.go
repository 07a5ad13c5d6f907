package service

import (
	"errors"
	"strings"

	"github.com/MikeRez0/webstore/internal/core/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const orderCodePrefix = "ORD-"

// newOrderCode returns a short human readable order reference.
func newOrderCode() string {
	return orderCodePrefix + strings.ToUpper(uuid.NewString()[:8])
}

// failure passes business errors through and hides everything else behind
// domain.ErrInternal after logging it.
func failure(logger *zap.Logger, msg string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	logger.Error(msg, zap.Error(err))
	return domain.ErrInternal
}
