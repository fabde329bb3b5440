// Package payments starts checkout with an external provider and turns
// provider callbacks into outcomes the order service can apply.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foodhub/internal/models"
)

var ErrInvalidOutcome = errors.New("invalid payment outcome")

// LineItem is one charge line sent to the provider.
type LineItem struct {
	Name      string
	UnitPrice models.Money
	Quantity  int
}

type Request struct {
	OrderID string
	Lines   []LineItem
	Total   models.Money
	Phone   string
}

// Session is what a provider hands back when checkout starts. CorrelationID
// is the provider's reference and is stored on the order as paymentRef.
type Session struct {
	CorrelationID string
	RedirectURL   string
	StkPush       *models.StkPush
}

type Gateway interface {
	Method() string
	Initiate(ctx context.Context, req Request) (*Session, error)
}

// Verifier is implemented by providers that can be asked for the state of
// a payment instead of trusting the client's report.
type Verifier interface {
	Verify(ctx context.Context, correlationID string) (Outcome, error)
}

type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

func ParseOutcomeStatus(value string) (OutcomeStatus, error) {
	switch OutcomeStatus(strings.ToLower(strings.TrimSpace(value))) {
	case OutcomeSuccess:
		return OutcomeSuccess, nil
	case OutcomeFailed:
		return OutcomeFailed, nil
	case OutcomeCancelled:
		return OutcomeCancelled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, value)
}

// Outcome is the provider's final word on a payment.
type Outcome struct {
	Provider        string
	Status          OutcomeStatus
	ResultCode      int
	ResultDesc      string
	ReceiptNumber   string
	Amount          models.Money
	PhoneNumber     string
	TransactionDate string
}

// New returns the gateway for mode: "stripe", "mpesa" or "offline".
func New(mode string, stripeCfg StripeConfig, mpesaCfg MpesaConfig) (Gateway, error) {
	switch mode {
	case "stripe":
		return NewStripeGateway(stripeCfg), nil
	case "mpesa":
		return NewMpesaGateway(mpesaCfg, nil), nil
	case "offline", "":
		return OfflineGateway{}, nil
	default:
		return nil, fmt.Errorf("unknown payment mode %q", mode)
	}
}
