package lecture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rahmatfadhil/elearn/database"
)

func Create(ctx context.Context, db sqlx.ExtContext, lec Lecture) error {
	const q = `
	INSERT INTO lectures
		(lecture_id, course_id, index, title, video_url, video_id, free, created_at, updated_at)
	VALUES
		(:lecture_id, :course_id, :index, :title, :video_url, :video_id, :free, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, lec); err != nil {
		return fmt.Errorf("inserting lecture: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, lectureID string) (Lecture, error) {
	const q = `SELECT * FROM lectures WHERE lecture_id = $1`

	var lec Lecture
	if err := sqlx.GetContext(ctx, db, &lec, q, lectureID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lecture{}, database.ErrNotFound
		}
		return Lecture{}, fmt.Errorf("selecting lecture: %w", err)
	}

	return lec, nil
}

func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Lecture, error) {
	const q = `SELECT * FROM lectures WHERE course_id = $1 ORDER BY index, created_at`

	lectures := []Lecture{}
	if err := sqlx.SelectContext(ctx, db, &lectures, q, courseID); err != nil {
		return nil, fmt.Errorf("selecting lectures by course: %w", err)
	}

	return lectures, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, lec Lecture) error {
	const q = `
	UPDATE lectures SET
		index = :index,
		title = :title,
		video_url = :video_url,
		video_id = :video_id,
		free = :free,
		updated_at = :updated_at
	WHERE lecture_id = :lecture_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, lec); err != nil {
		return fmt.Errorf("updating lecture: %w", err)
	}

	return nil
}

// MarkFreeByCourse flips every lecture of the course to free-to-preview.
// Unconditional and idempotent, so the purchase fan-out can re-drive it.
func MarkFreeByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) error {
	const q = `UPDATE lectures SET free = TRUE, updated_at = now() WHERE course_id = $1 AND NOT free`

	if _, err := db.ExecContext(ctx, q, courseID); err != nil {
		return fmt.Errorf("marking lectures free: %w", err)
	}

	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, lectureID string) error {
	const q = `DELETE FROM lectures WHERE lecture_id = $1`

	if _, err := db.ExecContext(ctx, q, lectureID); err != nil {
		return fmt.Errorf("deleting lecture: %w", err)
	}

	return nil
}
