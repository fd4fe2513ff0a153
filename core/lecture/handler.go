package lecture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rahmatfadhil/elearn/api/background"
	"github.com/rahmatfadhil/elearn/api/web"
	"github.com/rahmatfadhil/elearn/api/weberr"
	"github.com/rahmatfadhil/elearn/blob"
	"github.com/rahmatfadhil/elearn/core/claims"
	"github.com/rahmatfadhil/elearn/core/course"
	"github.com/rahmatfadhil/elearn/database"
	"github.com/rahmatfadhil/elearn/validate"
)

// fetchOwnedCourse loads the course and enforces that the caller
// created it.
func fetchOwnedCourse(ctx context.Context, db *sqlx.DB, courseID string) (course.Course, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return course.Course{}, weberr.NotAuthorized(errors.New("user not authenticated"))
	}

	if err := validate.CheckID(courseID); err != nil {
		return course.Course{}, weberr.NewError(err, err.Error(), http.StatusBadRequest)
	}

	crs, err := course.Fetch(ctx, db, courseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return course.Course{}, weberr.NotFound(err)
		}
		return course.Course{}, fmt.Errorf("fetching course[%s]: %w", courseID, err)
	}

	if crs.CreatorID != clm.UserID {
		return course.Course{}, weberr.Forbidden(errors.New("only the course creator may manage its lectures"))
	}

	return crs, nil
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crs, err := fetchOwnedCourse(ctx, db, web.Param(r, "course_id"))
		if err != nil {
			return err
		}

		var ln LectureNew
		if err := web.Decode(w, r, &ln); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ln); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		now := time.Now().UTC()
		lec := Lecture{
			ID:        validate.GenerateID(),
			CourseID:  crs.ID,
			Index:     ln.Index,
			Title:     ln.Title,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, lec); err != nil {
			return fmt.Errorf("creating lecture in course[%s]: %w", crs.ID, err)
		}

		return web.Respond(ctx, w, lec, http.StatusCreated)
	}
}

// HandleListByCourse lists the course's lectures for the creator or an
// enrolled student. Others are rejected.
func HandleListByCourse(db *sqlx.DB) web.Handler {
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

		if crs.CreatorID != clm.UserID {
			enrolled, err := course.IsEnrolled(ctx, db, courseID, clm.UserID)
			if err != nil {
				return fmt.Errorf("checking enrollment of user[%s]: %w", clm.UserID, err)
			}
			if !enrolled {
				return weberr.Forbidden(errors.New("purchase the course to access its lectures"))
			}
		}

		lectures, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return fmt.Errorf("listing lectures of course[%s]: %w", courseID, err)
		}

		return web.Respond(ctx, w, lectures, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lectureID := web.Param(r, "id")
		if err := validate.CheckID(lectureID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		lec, err := Fetch(ctx, db, lectureID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching lecture[%s]: %w", lectureID, err)
		}

		return web.Respond(ctx, w, lec, http.StatusOK)
	}
}

// HandleShowFree serves the video of a free-to-preview lecture without
// any enrollment check.
func HandleShowFree(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lectureID := web.Param(r, "id")
		if err := validate.CheckID(lectureID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		lec, err := Fetch(ctx, db, lectureID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching lecture[%s]: %w", lectureID, err)
		}

		if !lec.Free {
			return weberr.Forbidden(errors.New("lecture is not free to preview"))
		}

		return web.Respond(ctx, w, full{Lecture: lec, VideoURL: lec.VideoURL}, http.StatusOK)
	}
}

// HandleShowFull serves the video to the course creator, an enrolled
// student, or anyone once the lecture is free to preview.
func HandleShowFull(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		lectureID := web.Param(r, "id")
		if err := validate.CheckID(lectureID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		lec, err := Fetch(ctx, db, lectureID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching lecture[%s]: %w", lectureID, err)
		}

		if !lec.Free {
			crs, err := course.Fetch(ctx, db, lec.CourseID)
			if err != nil {
				return fmt.Errorf("fetching course[%s]: %w", lec.CourseID, err)
			}

			if crs.CreatorID != clm.UserID {
				enrolled, err := course.IsEnrolled(ctx, db, lec.CourseID, clm.UserID)
				if err != nil {
					return fmt.Errorf("checking enrollment of user[%s]: %w", clm.UserID, err)
				}
				if !enrolled {
					return weberr.Forbidden(errors.New("purchase the course to access this lecture"))
				}
			}
		}

		return web.Respond(ctx, w, full{Lecture: lec, VideoURL: lec.VideoURL}, http.StatusOK)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lectureID := web.Param(r, "id")
		if err := validate.CheckID(lectureID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		lec, err := Fetch(ctx, db, lectureID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching lecture[%s]: %w", lectureID, err)
		}

		if _, err := fetchOwnedCourse(ctx, db, lec.CourseID); err != nil {
			return err
		}

		var lu LectureUp
		if err := web.Decode(w, r, &lu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(lu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if lu.Title != nil {
			lec.Title = *lu.Title
		}
		if lu.Index != nil {
			lec.Index = *lu.Index
		}
		if lu.Free != nil {
			lec.Free = *lu.Free
		}
		if lu.VideoURL != nil {
			lec.VideoURL = *lu.VideoURL
		}
		if lu.VideoID != nil {
			lec.VideoID = *lu.VideoID
		}
		lec.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, lec); err != nil {
			return fmt.Errorf("updating lecture[%s]: %w", lec.ID, err)
		}

		return web.Respond(ctx, w, lec, http.StatusOK)
	}
}

// HandleDelete removes the lecture row and best-effort removes its
// video blob in the background.
func HandleDelete(db *sqlx.DB, store blob.Store, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lectureID := web.Param(r, "id")
		if err := validate.CheckID(lectureID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		lec, err := Fetch(ctx, db, lectureID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching lecture[%s]: %w", lectureID, err)
		}

		if _, err := fetchOwnedCourse(ctx, db, lec.CourseID); err != nil {
			return err
		}

		if err := Delete(ctx, db, lec.ID); err != nil {
			return fmt.Errorf("deleting lecture[%s]: %w", lec.ID, err)
		}

		if lec.VideoID != "" {
			bg.Add(func() error {
				return store.Delete(context.Background(), blob.KindVideo, lec.VideoID)
			})
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
