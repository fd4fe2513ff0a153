package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rahmatfadhil/elearn/database"
)

func FetchCourse(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (CourseProgress, error) {
	const q = `SELECT * FROM course_progress WHERE user_id = $1 AND course_id = $2`

	var cp CourseProgress
	if err := sqlx.GetContext(ctx, db, &cp, q, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CourseProgress{}, database.ErrNotFound
		}
		return CourseProgress{}, fmt.Errorf("selecting course progress: %w", err)
	}

	return cp, nil
}

func FetchLectures(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) ([]LectureProgress, error) {
	const q = `
	SELECT * FROM lecture_progress
	WHERE user_id = $1 AND course_id = $2
	ORDER BY created_at`

	lps := []LectureProgress{}
	if err := sqlx.SelectContext(ctx, db, &lps, q, userID, courseID); err != nil {
		return nil, fmt.Errorf("selecting lecture progress: %w", err)
	}

	return lps, nil
}

// UpsertLectureViewed records the lecture as viewed, creating the
// course progress row on first touch. Re-marking a viewed lecture is a
// no-op.
func UpsertLectureViewed(ctx context.Context, db sqlx.ExtContext, userID string, courseID string, lectureID string) error {
	now := time.Now().UTC()

	const qc = `
	INSERT INTO course_progress (user_id, course_id, completed, created_at, updated_at)
	VALUES ($1, $2, FALSE, $3, $3)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := db.ExecContext(ctx, qc, userID, courseID, now); err != nil {
		return fmt.Errorf("upserting course progress: %w", err)
	}

	const ql = `
	INSERT INTO lecture_progress (user_id, course_id, lecture_id, viewed, created_at, updated_at)
	VALUES ($1, $2, $3, TRUE, $4, $4)
	ON CONFLICT (user_id, course_id, lecture_id) DO UPDATE
	SET viewed = TRUE, updated_at = $4`

	if _, err := db.ExecContext(ctx, ql, userID, courseID, lectureID, now); err != nil {
		return fmt.Errorf("upserting lecture progress: %w", err)
	}

	return nil
}

// Recompute derives the completion flag by set comparison against the
// course's current lectures: complete iff the course has lectures and
// none of them lacks a viewed entry. Entries for since-removed
// lectures cannot skew the result.
func Recompute(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	const q = `
	UPDATE course_progress SET
		completed = (
			EXISTS (SELECT 1 FROM lectures AS l WHERE l.course_id = $2)
			AND NOT EXISTS (
				SELECT 1 FROM lectures AS l
				WHERE l.course_id = $2
				AND NOT EXISTS (
					SELECT 1 FROM lecture_progress AS p
					WHERE p.user_id = $1 AND p.course_id = $2
					AND p.lecture_id = l.lecture_id AND p.viewed
				)
			)
		),
		updated_at = $3
	WHERE user_id = $1 AND course_id = $2
	RETURNING completed`

	var completed bool
	err := sqlx.GetContext(ctx, db, &completed, q, userID, courseID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, database.ErrNotFound
		}
		return false, fmt.Errorf("recomputing completion: %w", err)
	}

	return completed, nil
}

// SetAllViewed bulk-sets every existing lecture entry and the course
// flag. It does not create entries for lectures never touched.
func SetAllViewed(ctx context.Context, db sqlx.ExtContext, userID string, courseID string, viewed bool) error {
	now := time.Now().UTC()

	const ql = `
	UPDATE lecture_progress SET viewed = $3, updated_at = $4
	WHERE user_id = $1 AND course_id = $2`

	if _, err := db.ExecContext(ctx, ql, userID, courseID, viewed, now); err != nil {
		return fmt.Errorf("bulk updating lecture progress: %w", err)
	}

	const qc = `
	UPDATE course_progress SET completed = $3, updated_at = $4
	WHERE user_id = $1 AND course_id = $2`

	if _, err := db.ExecContext(ctx, qc, userID, courseID, viewed, now); err != nil {
		return fmt.Errorf("bulk updating course progress: %w", err)
	}

	return nil
}
