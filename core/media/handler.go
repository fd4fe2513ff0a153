package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rahmatfadhil/elearn/api/web"
	"github.com/rahmatfadhil/elearn/api/weberr"
	"github.com/rahmatfadhil/elearn/blob"
	"github.com/rahmatfadhil/elearn/validate"
)

const maxVideoSize = 500 << 20

type uploaded struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// HandleUploadVideo streams an uploaded video file to the blob store
// and returns its identifier and public URL. The caller wires the
// returned pair onto a lecture afterwards.
func HandleUploadVideo(store blob.Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		r.Body = http.MaxBytesReader(w, r.Body, maxVideoSize)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return weberr.BadRequest(fmt.Errorf("parsing multipart form: %w", err))
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return weberr.BadRequest(errors.New("no file provided"))
		}
		defer file.Close()

		ct := header.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "video/") {
			return weberr.BadRequest(errors.New("only video files are allowed"))
		}

		key := validate.GenerateID()
		url, err := store.Upload(ctx, blob.KindVideo, key, file, ct)
		if err != nil {
			return fmt.Errorf("uploading video[%s]: %w", key, err)
		}

		return web.Respond(ctx, w, uploaded{ID: key, URL: url}, http.StatusOK)
	}
}
