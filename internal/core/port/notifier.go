package port

import (
	"context"

	"github.com/MikeRez0/webstore/internal/core/domain"
)

//go:generate mockgen -source=notifier.go -destination=mock/notifier.go -package=mock

// Notifier delivers customer notifications. Implementations must not block
// on delivery.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
}
