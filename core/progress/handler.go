package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/rahmatfadhil/elearn/api/web"
	"github.com/rahmatfadhil/elearn/api/weberr"
	"github.com/rahmatfadhil/elearn/core/claims"
	"github.com/rahmatfadhil/elearn/core/course"
	"github.com/rahmatfadhil/elearn/core/lecture"
	"github.com/rahmatfadhil/elearn/database"
	"github.com/rahmatfadhil/elearn/validate"
)

type courseView struct {
	Course    course.Course     `json:"course"`
	Lectures  []lecture.Lecture `json:"lectures"`
	Progress  []LectureProgress `json:"progress"`
	Completed bool              `json:"completed"`
}

// HandleShow returns the course, its lectures and the caller's
// progress. A user without a progress row gets an empty progress list,
// not an error.
func HandleShow(db *sqlx.DB) web.Handler {
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

		lectures, err := lecture.FetchByCourse(ctx, db, courseID)
		if err != nil {
			return fmt.Errorf("listing lectures of course[%s]: %w", courseID, err)
		}

		view := courseView{Course: crs, Lectures: lectures, Progress: []LectureProgress{}}

		cp, err := FetchCourse(ctx, db, clm.UserID, courseID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return web.Respond(ctx, w, view, http.StatusOK)
			}
			return fmt.Errorf("fetching progress of user[%s]: %w", clm.UserID, err)
		}

		lps, err := FetchLectures(ctx, db, clm.UserID, courseID)
		if err != nil {
			return fmt.Errorf("fetching lecture progress of user[%s]: %w", clm.UserID, err)
		}

		view.Progress = lps
		view.Completed = cp.Completed

		return web.Respond(ctx, w, view, http.StatusOK)
	}
}

// HandleViewLecture marks the lecture as viewed for the caller and
// recomputes course completion. Re-marking is a no-op.
func HandleViewLecture(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		lectureID := web.Param(r, "lecture_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}
		if err := validate.CheckID(lectureID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		lec, err := lecture.Fetch(ctx, db, lectureID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching lecture[%s]: %w", lectureID, err)
		}

		if lec.CourseID != courseID {
			return weberr.NotFound(errors.New("lecture does not belong to this course"))
		}

		var completed bool
		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := UpsertLectureViewed(ctx, tx, clm.UserID, courseID, lectureID); err != nil {
				return err
			}

			completed, err = Recompute(ctx, tx, clm.UserID, courseID)
			return err
		})
		if err != nil {
			return fmt.Errorf("recording view of lecture[%s] by user[%s]: %w", lectureID, clm.UserID, err)
		}

		resp := struct {
			Completed bool `json:"completed"`
		}{completed}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleMark bulk-sets the caller's progress on the course. Fails with
// NotFound when no progress row exists yet: a row is only created via
// the per-lecture path.
func HandleMark(db *sqlx.DB, viewed bool) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if _, err := FetchCourse(ctx, db, clm.UserID, courseID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(errors.New("no progress recorded for this course yet"))
			}
			return fmt.Errorf("fetching progress of user[%s]: %w", clm.UserID, err)
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			return SetAllViewed(ctx, tx, clm.UserID, courseID, viewed)
		})
		if err != nil {
			return fmt.Errorf("bulk updating progress of user[%s] on course[%s]: %w", clm.UserID, courseID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
