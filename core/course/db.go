package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rahmatfadhil/elearn/database"
)

func Create(ctx context.Context, db sqlx.ExtContext, crs Course) error {
	const q = `
	INSERT INTO courses
		(course_id, title, subtitle, description, category, level, price, published,
		 creator_id, thumbnail_url, thumbnail_id, created_at, updated_at)
	VALUES
		(:course_id, :title, :subtitle, :description, :category, :level, :price, :published,
		 :creator_id, :thumbnail_url, :thumbnail_id, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crs); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, courseID string) (Course, error) {
	const q = `SELECT * FROM courses WHERE course_id = $1`

	var crs Course
	if err := sqlx.GetContext(ctx, db, &crs, q, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, database.ErrNotFound
		}
		return Course{}, fmt.Errorf("selecting course: %w", err)
	}

	return crs, nil
}

// FetchPublished lists published courses matching the filter. Search
// terms match title, subtitle and category case-insensitively.
func FetchPublished(ctx context.Context, db sqlx.ExtContext, f Filter) ([]Course, error) {
	q := `SELECT * FROM courses WHERE published`
	args := []interface{}{}

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		n := fmt.Sprintf("$%d", len(args))
		q += ` AND (title ILIKE ` + n + ` OR subtitle ILIKE ` + n + ` OR category ILIKE ` + n + `)`
	}

	if len(f.Categories) > 0 {
		args = append(args, pq.Array(f.Categories))
		q += fmt.Sprintf(` AND category = ANY($%d)`, len(args))
	}

	switch strings.ToLower(f.PriceSort) {
	case "low":
		q += ` ORDER BY price ASC`
	case "high":
		q += ` ORDER BY price DESC`
	default:
		q += ` ORDER BY created_at DESC`
	}

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, db, &courses, q, args...); err != nil {
		return nil, fmt.Errorf("selecting published courses: %w", err)
	}

	return courses, nil
}

func FetchByCreator(ctx context.Context, db sqlx.ExtContext, creatorID string) ([]Course, error) {
	const q = `SELECT * FROM courses WHERE creator_id = $1 ORDER BY created_at`

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, db, &courses, q, creatorID); err != nil {
		return nil, fmt.Errorf("selecting courses by creator: %w", err)
	}

	return courses, nil
}

// FetchEnrolled lists the courses the user is enrolled in.
func FetchEnrolled(ctx context.Context, db sqlx.ExtContext, userID string) ([]Course, error) {
	const q = `
	SELECT c.* FROM courses AS c
	JOIN enrollments AS e ON e.course_id = c.course_id
	WHERE e.user_id = $1
	ORDER BY e.created_at`

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, db, &courses, q, userID); err != nil {
		return nil, fmt.Errorf("selecting enrolled courses: %w", err)
	}

	return courses, nil
}

// IsEnrolled reports whether the user appears in the course's
// enrollment list.
func IsEnrolled(ctx context.Context, db sqlx.ExtContext, courseID string, userID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND user_id = $2)`

	var enrolled bool
	if err := sqlx.GetContext(ctx, db, &enrolled, q, courseID, userID); err != nil {
		return false, fmt.Errorf("checking enrollment: %w", err)
	}

	return enrolled, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, crs Course) error {
	const q = `
	UPDATE courses SET
		title = :title,
		subtitle = :subtitle,
		description = :description,
		category = :category,
		level = :level,
		price = :price,
		published = :published,
		thumbnail_url = :thumbnail_url,
		thumbnail_id = :thumbnail_id,
		updated_at = :updated_at
	WHERE course_id = :course_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crs); err != nil {
		return fmt.Errorf("updating course: %w", err)
	}

	return nil
}

// VideoBlobIDs collects the video blob identifiers of the course's
// lectures, for cleanup before a cascade delete.
func VideoBlobIDs(ctx context.Context, db sqlx.ExtContext, courseID string) ([]string, error) {
	const q = `SELECT video_id FROM lectures WHERE course_id = $1 AND video_id <> ''`

	ids := []string{}
	if err := sqlx.SelectContext(ctx, db, &ids, q, courseID); err != nil {
		return nil, fmt.Errorf("selecting lecture video ids: %w", err)
	}

	return ids, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, courseID string) error {
	const q = `DELETE FROM courses WHERE course_id = $1`

	if _, err := db.ExecContext(ctx, q, courseID); err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}

	return nil
}
