package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rahmatfadhil/elearn/core/lecture"
	"github.com/rahmatfadhil/elearn/database"
)

// Complete reconciles the purchase bound to sessionID with a paid
// checkout: it flips the row to completed and applies the enrollment
// fan-out (lectures unlocked, user enrolled).
//
// The whole operation runs in one transaction keyed on a conditional
// status flip, so concurrent deliveries of the same notification, or a
// webhook racing the repair path, apply the fan-out at most once.
// Replays against an already completed purchase are no-ops. A non
// positive amount keeps the amount estimated at checkout time.
func Complete(ctx context.Context, db *sqlx.DB, sessionID string, amount int) error {
	pur, err := FetchBySessionID(ctx, db, sessionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return err
		}
		return fmt.Errorf("fetching the purchase bound to session[%s]: %w", sessionID, err)
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		flipped, err := CompleteIfPending(ctx, tx, pur.ID)
		if err != nil {
			return fmt.Errorf("completing purchase: %w", err)
		}

		if !flipped {
			return nil
		}

		if amount > 0 && amount != pur.Amount {
			if err := UpdateAmount(ctx, tx, pur.ID, amount); err != nil {
				return fmt.Errorf("recording notified amount: %w", err)
			}
		}

		if err := lecture.MarkFreeByCourse(ctx, tx, pur.CourseID); err != nil {
			return fmt.Errorf("unlocking lectures: %w", err)
		}

		if err := Enroll(ctx, tx, pur.CourseID, pur.UserID); err != nil {
			return fmt.Errorf("enrolling user: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("fulfilling the purchase[%s] bound to session[%s]: %w", pur.ID, sessionID, err)
	}
	return nil
}

// Repair compensates for completion notifications that never arrived.
// It walks the user's pending purchases and completes those whose
// session the gateway confirms as paid. Unconfirmed rows are left
// pending, and rows bound to another provider are not the gateway's
// to answer for. Returns the number of purchases fixed.
func Repair(ctx context.Context, db *sqlx.DB, gw Gateway, userID string) (int, error) {
	pending, err := FetchByUser(ctx, db, userID, Pending)
	if err != nil {
		return 0, fmt.Errorf("listing pending purchases of user[%s]: %w", userID, err)
	}

	fixed := 0
	for _, pur := range pending {
		if pur.Provider != ProviderStripe {
			continue
		}

		paid, err := gw.SessionPaid(ctx, pur.SessionID)
		if err != nil {
			return fixed, fmt.Errorf("verifying session[%s] with the gateway: %w", pur.SessionID, err)
		}

		if !paid {
			continue
		}

		if err := Complete(ctx, db, pur.SessionID, 0); err != nil {
			return fixed, fmt.Errorf("repairing purchase[%s]: %w", pur.ID, err)
		}

		fixed++
	}

	return fixed, nil
}
