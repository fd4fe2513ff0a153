package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rahmatfadhil/elearn/database"
)

func Create(ctx context.Context, db sqlx.ExtContext, pur Purchase) error {
	const q = `
	INSERT INTO purchases
		(purchase_id, user_id, course_id, amount, provider, session_id, status, created_at, updated_at)
	VALUES
		(:purchase_id, :user_id, :course_id, :amount, :provider, :session_id, :status, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, pur); err != nil {
		return fmt.Errorf("inserting purchase: %w", err)
	}

	return nil
}

func FetchBySessionID(ctx context.Context, db sqlx.ExtContext, sessionID string) (Purchase, error) {
	const q = `SELECT * FROM purchases WHERE session_id = $1`

	var pur Purchase
	if err := sqlx.GetContext(ctx, db, &pur, q, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Purchase{}, database.ErrNotFound
		}
		return Purchase{}, fmt.Errorf("selecting purchase by session: %w", err)
	}

	return pur, nil
}

// FetchByUser lists the user's purchases, optionally narrowed by
// status. The result is never nil.
func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string, status Status) ([]Purchase, error) {
	q := `SELECT * FROM purchases WHERE user_id = $1`
	args := []interface{}{userID}

	if status != "" {
		args = append(args, status)
		q += ` AND status = $2`
	}
	q += ` ORDER BY created_at`

	purchases := []Purchase{}
	if err := sqlx.SelectContext(ctx, db, &purchases, q, args...); err != nil {
		return nil, fmt.Errorf("selecting purchases by user: %w", err)
	}

	return purchases, nil
}

// HasCompleted reports whether the user has a completed purchase of
// the course.
func HasCompleted(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	const q = `
	SELECT EXISTS (
		SELECT 1 FROM purchases
		WHERE user_id = $1 AND course_id = $2 AND status = 'completed'
	)`

	var has bool
	if err := sqlx.GetContext(ctx, db, &has, q, userID, courseID); err != nil {
		return false, fmt.Errorf("checking completed purchase: %w", err)
	}

	return has, nil
}

// CompleteIfPending flips the purchase to completed only if it is
// still pending, reporting whether this call performed the transition.
// The conditional write serializes concurrent completions of the same
// purchase: exactly one caller observes true.
func CompleteIfPending(ctx context.Context, db sqlx.ExtContext, purchaseID string) (bool, error) {
	const q = `
	UPDATE purchases SET status = 'completed', updated_at = $2
	WHERE purchase_id = $1 AND status = 'pending'`

	res, err := db.ExecContext(ctx, q, purchaseID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("flipping purchase status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}

	return n == 1, nil
}

// UpdateAmount records the amount the gateway reported, which is
// authoritative over the price estimated at checkout time.
func UpdateAmount(ctx context.Context, db sqlx.ExtContext, purchaseID string, amount int) error {
	const q = `UPDATE purchases SET amount = $2, updated_at = $3 WHERE purchase_id = $1`

	if _, err := db.ExecContext(ctx, q, purchaseID, amount, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating purchase amount: %w", err)
	}

	return nil
}

// Enroll records the user-course enrollment. Set semantics: replays
// are no-ops. This is the single mutation path for the enrollment
// relation; both enrollment projections read these rows.
func Enroll(ctx context.Context, db sqlx.ExtContext, courseID string, userID string) error {
	const q = `
	INSERT INTO enrollments (course_id, user_id, created_at)
	VALUES ($1, $2, $3)
	ON CONFLICT DO NOTHING`

	if _, err := db.ExecContext(ctx, q, courseID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("inserting enrollment: %w", err)
	}

	return nil
}

// SalesByInstructor aggregates completed purchases over the
// instructor's courses, ordered by course creation.
func SalesByInstructor(ctx context.Context, db sqlx.ExtContext, instructorID string) (Summary, error) {
	const q = `
	SELECT c.course_id, c.title AS name, c.price,
		COUNT(p.purchase_id) AS sales,
		COALESCE(SUM(p.amount), 0) AS revenue
	FROM courses AS c
	LEFT JOIN purchases AS p ON p.course_id = c.course_id AND p.status = 'completed'
	WHERE c.creator_id = $1
	GROUP BY c.course_id
	ORDER BY c.created_at`

	sales := []CourseSales{}
	if err := sqlx.SelectContext(ctx, db, &sales, q, instructorID); err != nil {
		return Summary{}, fmt.Errorf("aggregating instructor sales: %w", err)
	}

	return Summarize(sales), nil
}

// Summarize folds per-course aggregates into the instructor totals.
func Summarize(sales []CourseSales) Summary {
	sum := Summary{CourseSales: sales}
	if sum.CourseSales == nil {
		sum.CourseSales = []CourseSales{}
	}

	for _, cs := range sales {
		sum.TotalSales += cs.Sales
		sum.TotalRevenue += cs.Revenue
	}

	return sum
}
