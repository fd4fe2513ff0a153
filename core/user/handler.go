package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
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

const maxPhotoSize = 5 << 20

type profile struct {
	User
	EnrolledCourses []course.Course `json:"enrolledCourses"`
}

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching user[%s]: %w", clm.UserID, err)
		}

		enrolled, err := course.FetchEnrolled(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching enrolled courses of user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, profile{User: usr, EnrolledCourses: enrolled}, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		usr, err := Fetch(ctx, db, userID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching user[%s]: %w", userID, err)
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

// HandleUpdateProfile updates the caller's name and, when a photo file
// is attached, replaces the profile photo. The previous photo blob is
// removed best-effort in the background.
func HandleUpdateProfile(db *sqlx.DB, store blob.Store, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching user[%s]: %w", clm.UserID, err)
		}

		if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
			return weberr.BadRequest(fmt.Errorf("parsing multipart form: %w", err))
		}

		if name := r.FormValue("name"); name != "" {
			up := ProfileUp{Name: &name}
			if err := validate.Check(up); err != nil {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}

			if err := UpdateName(ctx, db, clm.UserID, name); err != nil {
				return fmt.Errorf("updating name of user[%s]: %w", clm.UserID, err)
			}
			usr.Name = name
		}

		file, header, err := r.FormFile("photo")
		if err == nil {
			defer file.Close()

			ct := header.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "image/") {
				return weberr.BadRequest(errors.New("profile photo must be an image file"))
			}

			key := validate.GenerateID()
			url, err := store.Upload(ctx, blob.KindImage, key, file, ct)
			if err != nil {
				return fmt.Errorf("uploading photo of user[%s]: %w", clm.UserID, err)
			}

			up := PhotoUp{
				ID:        key,
				URL:       url,
				UserID:    clm.UserID,
				UpdatedAt: time.Now().UTC(),
			}
			if err := UpdatePhoto(ctx, db, up); err != nil {
				return fmt.Errorf("updating photo of user[%s]: %w", clm.UserID, err)
			}

			if old := usr.PhotoID; old != "" {
				bg.Add(func() error {
					return store.Delete(context.Background(), blob.KindImage, old)
				})
			}

			usr.PhotoURL = url
			usr.PhotoID = key
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}
