package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"

	"github.com/rahmatfadhil/elearn/api/background"
	"github.com/rahmatfadhil/elearn/api/middleware"
	"github.com/rahmatfadhil/elearn/api/web"
	"github.com/rahmatfadhil/elearn/blob"
	"github.com/rahmatfadhil/elearn/core/auth"
	"github.com/rahmatfadhil/elearn/core/course"
	"github.com/rahmatfadhil/elearn/core/lecture"
	"github.com/rahmatfadhil/elearn/core/media"
	"github.com/rahmatfadhil/elearn/core/progress"
	"github.com/rahmatfadhil/elearn/core/purchase"
	"github.com/rahmatfadhil/elearn/core/user"
	"github.com/rahmatfadhil/elearn/rate"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Background       *background.Background
	Blob             blob.Store
	Gateway          purchase.Gateway
	Paypal           *paypal.Client
	WebhookSecret    string
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	Limiter          *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	instructor := auth.Instructor(cfg.Session)
	limited := middleware.RateLimit(cfg.Limiter)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateProfile(cfg.DB, cfg.Blob, cfg.Background), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.DB), instructor)
	a.Handle(http.MethodGet, "/courses/enrolled", course.HandleListEnrolled(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/lectures", lecture.HandleListByCourse(cfg.DB), authen)
	a.Handle(http.MethodPost, "/courses/{course_id}/lectures", lecture.HandleCreate(cfg.DB), instructor)
	a.Handle(http.MethodGet, "/courses/{course_id}/progress", progress.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPut, "/courses/{course_id}/progress/lectures/{lecture_id}", progress.HandleViewLecture(cfg.DB), authen)
	a.Handle(http.MethodPatch, "/courses/{course_id}/progress/complete", progress.HandleMark(cfg.DB, true), authen)
	a.Handle(http.MethodPatch, "/courses/{course_id}/progress/incomplete", progress.HandleMark(cfg.DB, false), authen)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), instructor)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), instructor)
	a.Handle(http.MethodPost, "/courses/{id}/thumbnail", course.HandleUpdateThumbnail(cfg.DB, cfg.Blob, cfg.Background), instructor)
	a.Handle(http.MethodPatch, "/courses/{id}/publish", course.HandlePublish(cfg.DB), instructor)
	a.Handle(http.MethodDelete, "/courses/{id}", course.HandleDelete(cfg.DB, cfg.Blob, cfg.Background), instructor)

	a.Handle(http.MethodGet, "/lectures/{id}/full", lecture.HandleShowFull(cfg.DB), authen)
	a.Handle(http.MethodGet, "/lectures/{id}/free", lecture.HandleShowFree(cfg.DB))
	a.Handle(http.MethodGet, "/lectures/{id}", lecture.HandleShow(cfg.DB))
	a.Handle(http.MethodPut, "/lectures/{id}", lecture.HandleUpdate(cfg.DB), instructor)
	a.Handle(http.MethodDelete, "/lectures/{id}", lecture.HandleDelete(cfg.DB, cfg.Blob, cfg.Background), instructor)

	a.Handle(http.MethodPost, "/purchases/stripe", purchase.HandleStripeCheckout(cfg.DB, cfg.Gateway), authen)
	a.Handle(http.MethodPost, "/purchases/stripe/webhook", purchase.HandleStripeWebhook(cfg.DB, cfg.WebhookSecret))
	a.Handle(http.MethodPost, "/purchases/paypal", purchase.HandlePaypalCheckout(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/purchases/paypal/{id}/capture", purchase.HandlePaypalCapture(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/purchases/repair", purchase.HandleRepair(cfg.DB, cfg.Gateway), authen)
	a.Handle(http.MethodGet, "/purchases/sales", purchase.HandleSales(cfg.DB), instructor)
	a.Handle(http.MethodGet, "/purchases/course/{course_id}/status", purchase.HandleShowStatus(cfg.DB), authen)
	a.Handle(http.MethodGet, "/purchases", purchase.HandleList(cfg.DB), authen)

	a.Handle(http.MethodPost, "/media/video", media.HandleUploadVideo(cfg.Blob), instructor)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
