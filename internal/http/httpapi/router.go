package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/guybartal/momentloop-sub000/internal/http/handlers"
	"github.com/guybartal/momentloop-sub000/internal/infra"
	"github.com/guybartal/momentloop-sub000/internal/middleware"
)

func NewRouter(cfg *infra.Config, app *handlers.App, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.CORSOrigins),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/healthz", app.Health)

	r.Route("/api/jobs", func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		r.Get("/", app.JobsList)
		r.Post("/", app.JobsCreate)
		// The bulk route must register before the {job_id} routes so
		// "notifications" is not captured as an id.
		r.Delete("/notifications", app.JobsClearNotifications)
		r.Patch("/{job_id}/complete", app.JobsComplete)
		r.Patch("/{job_id}/fail", app.JobsFail)
		r.Delete("/{job_id}", app.JobsClearNotification)
	})

	r.Get("/ws/{project_id}", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		app.Hub.Serve(w, req, chi.URLParam(req, "project_id"))
	})

	return r
}
