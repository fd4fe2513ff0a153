package purchase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"

	"github.com/rahmatfadhil/elearn/api/web"
	"github.com/rahmatfadhil/elearn/api/weberr"
	"github.com/rahmatfadhil/elearn/core/claims"
	"github.com/rahmatfadhil/elearn/core/course"
	"github.com/rahmatfadhil/elearn/database"
	"github.com/rahmatfadhil/elearn/validate"
)

// prepare records the pending purchase bound to the gateway session.
// From here on the session id is the idempotence key the asynchronous
// completion will be reconciled against.
func prepare(ctx context.Context, db *sqlx.DB, purchaseID string, userID string, crs course.Course, provider string, sessionID string) error {
	now := time.Now().UTC()
	pur := Purchase{
		ID:        purchaseID,
		UserID:    userID,
		CourseID:  crs.ID,
		Amount:    crs.Price,
		Provider:  provider,
		SessionID: sessionID,
		Status:    Pending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := Create(ctx, db, pur); err != nil {
		return fmt.Errorf("creating the purchase bound to session[%s] for user[%s]: %w", sessionID, userID, err)
	}
	return nil
}

// checkout validates the request payload and loads the course being
// bought.
func checkout(ctx context.Context, db *sqlx.DB, w http.ResponseWriter, r *http.Request) (course.Course, error) {
	var cn CheckoutNew
	if err := web.Decode(w, r, &cn); err != nil {
		return course.Course{}, weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
	}

	if err := validate.CheckID(cn.CourseID); err != nil {
		return course.Course{}, weberr.NewError(err, err.Error(), http.StatusBadRequest)
	}

	crs, err := course.Fetch(ctx, db, cn.CourseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return course.Course{}, weberr.NotFound(err)
		}
		return course.Course{}, fmt.Errorf("fetching course[%s]: %w", cn.CourseID, err)
	}

	return crs, nil
}

func HandleStripeCheckout(db *sqlx.DB, gw Gateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		crs, err := checkout(ctx, db, w, r)
		if err != nil {
			return err
		}

		purchaseID := validate.GenerateID()
		session, err := gw.CreateSession(ctx, crs, clm.UserID, purchaseID)
		if err != nil {
			return fmt.Errorf("creating checkout session for course[%s]: %w", crs.ID, err)
		}

		if err := prepare(ctx, db, purchaseID, clm.UserID, crs, ProviderStripe, session.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, session.URL, http.StatusOK)
	}
}

// HandleStripeWebhook reacts to the gateway's asynchronous completion
// notifications. Delivery is at least once, so everything downstream
// of the signature check is idempotent. Verified events this system
// does not act on are acknowledged so the gateway stops retrying them.
func HandleStripeWebhook(db *sqlx.DB, webhookSecret string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		session, ok, err := parseCompletedSession(b, r.Header.Get("Stripe-Signature"), webhookSecret)
		if err != nil {
			return weberr.BadRequest(err)
		}
		if !ok {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		amount := int(session.AmountTotal / 100)
		if err := Complete(ctx, db, session.ID, amount); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(fmt.Errorf("no purchase bound to session[%s]", session.ID))
			}
			return fmt.Errorf("the checkout was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandlePaypalCheckout(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		crs, err := checkout(ctx, db, w, r)
		if err != nil {
			return err
		}

		units := []paypal.PurchaseUnitRequest{{
			Items: []paypal.Item{{
				Quantity:    "1",
				Name:        crs.Title,
				Description: crs.Subtitle,

				UnitAmount: &paypal.Money{
					Currency: "USD",
					Value:    strconv.Itoa(crs.Price),
				},
			}},

			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    strconv.Itoa(crs.Price),

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: "USD",
					Value:    strconv.Itoa(crs.Price),
				}},
			},
		}}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		if err := prepare(ctx, db, validate.GenerateID(), clm.UserID, crs, ProviderPaypal, ord.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		providerID := web.Param(r, "id")

		resp, err := pp.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", providerID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
		}

		if err := Complete(ctx, db, providerID, 0); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(fmt.Errorf("no purchase bound to order[%s]", providerID))
			}
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleRepair completes the caller's pending purchases whose sessions
// the gateway confirms as paid.
func HandleRepair(db *sqlx.DB, gw Gateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		fixed, err := Repair(ctx, db, gw, clm.UserID)
		if err != nil {
			return fmt.Errorf("repairing purchases of user[%s]: %w", clm.UserID, err)
		}

		resp := struct {
			Fixed int `json:"fixed"`
		}{fixed}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		status := Status(r.URL.Query().Get("status"))
		if status != "" && status != Pending && status != Completed {
			err := errors.New("status must be either 'pending' or 'completed'")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		purchases, err := FetchByUser(ctx, db, clm.UserID, status)
		if err != nil {
			return fmt.Errorf("listing purchases of user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, purchases, http.StatusOK)
	}
}

// HandleShowStatus returns the course together with whether the caller
// has a completed purchase of it.
func HandleShowStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		crs, err := course.Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", courseID, err)
		}

		purchased, err := HasCompleted(ctx, db, clm.UserID, courseID)
		if err != nil {
			return fmt.Errorf("checking purchase of course[%s]: %w", courseID, err)
		}

		resp := struct {
			Course    course.Course `json:"course"`
			Purchased bool          `json:"purchased"`
		}{crs, purchased}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleSales reports the instructor's sales summary across all owned
// courses. Zero courses or purchases yield zeroed aggregates.
func HandleSales(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		sum, err := SalesByInstructor(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("aggregating sales of instructor[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, sum, http.StatusOK)
	}
}
