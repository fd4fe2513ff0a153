package purchase

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"

	"github.com/rahmatfadhil/elearn/config"
	"github.com/rahmatfadhil/elearn/core/course"
)

// CheckoutSession is the gateway-hosted payment transaction the buyer
// is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway abstracts the payment provider so the reconciliation engine
// can be exercised against fakes and repair can re-verify sessions.
type Gateway interface {
	CreateSession(ctx context.Context, crs course.Course, userID string, purchaseID string) (CheckoutSession, error)
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
}

type StripeGateway struct {
	api *stripecl.API
	cfg config.Stripe
}

func NewStripeGateway(api *stripecl.API, cfg config.Stripe) *StripeGateway {
	return &StripeGateway{api: api, cfg: cfg}
}

func (g *StripeGateway) CreateSession(ctx context.Context, crs course.Course, userID string, purchaseID string) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(g.cfg.SuccessURL + "/" + crs.ID),
		CancelURL:  stripe.String(g.cfg.CancelURL + "/" + crs.ID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),

		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String("usd"),
				TaxBehavior: stripe.String("inclusive"),
				UnitAmount:  stripe.Int64(int64(crs.Price) * 100),

				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(crs.Title),
					Description: stripe.String(crs.Subtitle),
				},
			},
		}},

		Params: stripe.Params{
			Context: ctx,
			Metadata: map[string]string{
				"courseId":   crs.ID,
				"userId":     userID,
				"purchaseId": purchaseID,
			},
		},
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("creating stripe session: %w", err)
	}

	return CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}

	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("fetching stripe session[%s]: %w", sessionID, err)
	}

	return s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}
