package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/govalues/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentMethodPaypal         PaymentMethod = "PAYPAL"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodPaypal,
		PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

const (
	CardBrandTest = "TEST_CARD"
	CardBrandNone = "N/A"
)

// sandboxCards are the only card numbers accepted for CREDIT_CARD payments.
var sandboxCards = map[string]struct{}{
	"6666000000000000": {},
	"6666000000000001": {},
	"6666000000000002": {},
}

type Payment struct {
	ID            uint64
	OrderID       uint64
	Method        PaymentMethod
	Status        PaymentStatus
	Amount        decimal.Decimal
	CardBrand     string
	CardLastFour  *string
	TransactionID string
	PaymentToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PaymentRequest struct {
	OrderID    uint64
	Method     PaymentMethod
	CardNumber string
}

// NormalizeCardNumber strips everything but digits.
func NormalizeCardNumber(number string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
}

func IsSandboxCard(normalized string) bool {
	_, ok := sandboxCards[normalized]
	return ok
}
