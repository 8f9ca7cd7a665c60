package gateway

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/emontalvo/tienda-storefront/internal/config"
	"github.com/emontalvo/tienda-storefront/internal/models"
	"github.com/stripe/stripe-go/v81"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
)

type Event = stripe.Event

// CheckoutSession is the narrow slice of the gateway response the engine
// consumes: an external id and the URL the shopper is redirected to.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// Client is the payment provider boundary. The engine creates a checkout
// redirect and verifies inbound webhook signatures; nothing else crosses.
type Client interface {
	CreateCheckoutSession(ctx context.Context, payment *models.Payment, order *models.Order) (*CheckoutSession, error)
	VerifyWebhookSignature(payload []byte, signature string) (Event, error)
}

type stripeClient struct {
	cfg *config.Stripe
}

func NewStripeClient(cfg *config.Stripe) Client {
	stripe.Key = cfg.APIKey

	// Bounded wait on every gateway call; a slow provider surfaces as a
	// gateway error instead of hanging the request.
	stripe.SetHTTPClient(&http.Client{Timeout: 10 * time.Second})

	return &stripeClient{cfg: cfg}
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, payment *models.Payment, order *models.Order) (*CheckoutSession, error) {

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items))

	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(c.cfg.Currency),
				UnitAmount: stripe.Int64(toMinorUnits(item.UnitPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.ProductName),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		ClientReferenceID: stripe.String(payment.ID.String()),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, err
	}

	if sess.URL == "" {
		return nil, errors.New("gateway response is missing the redirect URL")
	}

	return &CheckoutSession{ID: sess.ID, RedirectURL: sess.URL}, nil
}

func (c *stripeClient) VerifyWebhookSignature(payload []byte, signature string) (Event, error) {
	if c.cfg.WebhookSecret == "" {
		return Event{}, errors.New("webhook secret not configured")
	}

	return webhook.ConstructEvent(payload, signature, c.cfg.WebhookSecret)
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
