package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"foodhub/internal/models"
)

type StripeConfig struct {
	SecretKey   string
	Currency    string
	FrontendURL string
}

type StripeGateway struct {
	sc  *client.API
	cfg StripeConfig
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if cfg.Currency == "" {
		cfg.Currency = "kes"
	}
	return &StripeGateway{sc: client.New(cfg.SecretKey, nil), cfg: cfg}
}

func (g *StripeGateway) Method() string { return "stripe" }

// Initiate opens a hosted Checkout Session. The frontend verify page gets
// the order id and outcome in the query string.
func (g *StripeGateway) Initiate(ctx context.Context, req Request) (*Session, error) {
	params := g.sessionParams(req)
	params.Context = ctx

	sess, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &Session{CorrelationID: sess.ID, RedirectURL: sess.URL}, nil
}

func (g *StripeGateway) sessionParams(req Request) *stripe.CheckoutSessionParams {
	base := strings.TrimRight(g.cfg.FrontendURL, "/")

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.cfg.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
				UnitAmount: stripe.Int64(int64(line.UnitPrice)),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	return &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		ClientReferenceID: stripe.String(req.OrderID),
		SuccessURL:        stripe.String(fmt.Sprintf("%s/verify?success=true&orderId=%s&session_id={CHECKOUT_SESSION_ID}", base, req.OrderID)),
		CancelURL:         stripe.String(fmt.Sprintf("%s/verify?success=false&orderId=%s&session_id={CHECKOUT_SESSION_ID}", base, req.OrderID)),
	}
}

// Verify reads the Checkout Session back from Stripe. An unpaid session is
// reported as failed.
func (g *StripeGateway) Verify(ctx context.Context, correlationID string) (Outcome, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.sc.CheckoutSessions.Get(correlationID, params)
	if err != nil {
		return Outcome{}, fmt.Errorf("stripe get checkout session: %w", err)
	}

	outcome := Outcome{Provider: "stripe", ResultDesc: string(sess.PaymentStatus)}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		outcome.Status = OutcomeFailed
		return outcome, nil
	}
	outcome.Status = OutcomeSuccess
	outcome.Amount = models.Money(sess.AmountTotal)
	if sess.PaymentIntent != nil {
		outcome.ReceiptNumber = sess.PaymentIntent.ID
	}
	if sess.CustomerDetails != nil {
		outcome.PhoneNumber = sess.CustomerDetails.Phone
	}
	return outcome, nil
}
