package course

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
	"github.com/rahmatfadhil/elearn/database"
	"github.com/rahmatfadhil/elearn/validate"
)

const maxThumbnailSize = 5 << 20

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		now := time.Now().UTC()
		crs := Course{
			ID:        validate.GenerateID(),
			Title:     strings.TrimSpace(cn.Title),
			Category:  cn.Category,
			CreatorID: clm.UserID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, crs); err != nil {
			return fmt.Errorf("creating course: %w", err)
		}

		return web.Respond(ctx, w, crs, http.StatusCreated)
	}
}

// HandleList returns the published catalog, optionally filtered by a
// search query, comma-separated categories and a price sort.
func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f := Filter{
			Query:     strings.TrimSpace(r.URL.Query().Get("query")),
			PriceSort: r.URL.Query().Get("sortByPrice"),
		}

		if cats := strings.TrimSpace(r.URL.Query().Get("categories")); cats != "" {
			f.Categories = strings.Split(cats, ",")
		}

		courses, err := FetchPublished(ctx, db, f)
		if err != nil {
			return fmt.Errorf("listing published courses: %w", err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		crs, err := Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", courseID, err)
		}

		return web.Respond(ctx, w, crs, http.StatusOK)
	}
}

func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courses, err := FetchByCreator(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing courses of creator[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleListEnrolled(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courses, err := FetchEnrolled(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing enrolled courses of user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

// fetchOwned loads the course and enforces that the caller created it.
func fetchOwned(ctx context.Context, db *sqlx.DB, courseID string) (Course, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return Course{}, weberr.NotAuthorized(errors.New("user not authenticated"))
	}

	if err := validate.CheckID(courseID); err != nil {
		return Course{}, weberr.NewError(err, err.Error(), http.StatusBadRequest)
	}

	crs, err := Fetch(ctx, db, courseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return Course{}, weberr.NotFound(err)
		}
		return Course{}, fmt.Errorf("fetching course[%s]: %w", courseID, err)
	}

	if crs.CreatorID != clm.UserID {
		return Course{}, weberr.Forbidden(errors.New("only the course creator may modify it"))
	}

	return crs, nil
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crs, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if cu.Title != nil {
			crs.Title = strings.TrimSpace(*cu.Title)
		}
		if cu.Subtitle != nil {
			crs.Subtitle = *cu.Subtitle
		}
		if cu.Description != nil {
			crs.Description = *cu.Description
		}
		if cu.Category != nil {
			crs.Category = *cu.Category
		}
		if cu.Level != nil {
			crs.Level = *cu.Level
		}
		if cu.Price != nil {
			crs.Price = *cu.Price
		}
		crs.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, crs); err != nil {
			return fmt.Errorf("updating course[%s]: %w", crs.ID, err)
		}

		return web.Respond(ctx, w, crs, http.StatusOK)
	}
}

// HandleUpdateThumbnail replaces the course thumbnail blob. The old
// blob is removed best-effort in the background.
func HandleUpdateThumbnail(db *sqlx.DB, store blob.Store, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crs, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if err := r.ParseMultipartForm(maxThumbnailSize); err != nil {
			return weberr.BadRequest(fmt.Errorf("parsing multipart form: %w", err))
		}

		file, header, err := r.FormFile("thumbnail")
		if err != nil {
			return weberr.BadRequest(errors.New("no thumbnail file provided"))
		}
		defer file.Close()

		ct := header.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "image/") {
			return weberr.BadRequest(errors.New("thumbnail must be an image file"))
		}

		key := validate.GenerateID()
		url, err := store.Upload(ctx, blob.KindImage, key, file, ct)
		if err != nil {
			return fmt.Errorf("uploading thumbnail of course[%s]: %w", crs.ID, err)
		}

		old := crs.ThumbnailID
		crs.ThumbnailURL = url
		crs.ThumbnailID = key
		crs.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, crs); err != nil {
			return fmt.Errorf("updating course[%s]: %w", crs.ID, err)
		}

		if old != "" {
			bg.Add(func() error {
				return store.Delete(context.Background(), blob.KindImage, old)
			})
		}

		return web.Respond(ctx, w, crs, http.StatusOK)
	}
}

func HandlePublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crs, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		crs.Published = r.URL.Query().Get("publish") == "true"
		crs.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, crs); err != nil {
			return fmt.Errorf("updating course[%s]: %w", crs.ID, err)
		}

		return web.Respond(ctx, w, crs, http.StatusOK)
	}
}

// HandleDelete removes the course, its lectures and their blobs. Blob
// deletion is best-effort: failures are logged by the background
// runner and never block row deletion.
func HandleDelete(db *sqlx.DB, store blob.Store, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		crs, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		videoIDs, err := VideoBlobIDs(ctx, db, crs.ID)
		if err != nil {
			return fmt.Errorf("collecting video blobs of course[%s]: %w", crs.ID, err)
		}

		// Lecture rows go with the course row via the schema cascade.
		if err := Delete(ctx, db, crs.ID); err != nil {
			return fmt.Errorf("deleting course[%s]: %w", crs.ID, err)
		}

		for _, id := range videoIDs {
			id := id
			bg.Add(func() error {
				return store.Delete(context.Background(), blob.KindVideo, id)
			})
		}

		if crs.ThumbnailID != "" {
			bg.Add(func() error {
				return store.Delete(context.Background(), blob.KindImage, crs.ThumbnailID)
			})
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
