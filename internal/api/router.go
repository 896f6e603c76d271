package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/neexbeast/trip-planner/internal/metrics"
)

// RouterConfig holds the transport settings for NewRouter.
type RouterConfig struct {
	Token       string
	CORSOrigins []string
	// RateLimit is the number of requests per minute allowed per IP.
	RateLimit int
}

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics are unauthenticated; everything else under /api/v1
// requires bearer auth.
func NewRouter(handlers *Handlers, cfg RouterConfig, db dbPinger, redisClient redisPinger, log *slog.Logger) *chi.Mux {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 120
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandlerFunc(db, redisClient, log))

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.Token))

			r.Get("/geocode", handlers.Geocode)
			r.Get("/drive", handlers.Drive)

			r.Route("/trips", func(r chi.Router) {
				r.Get("/", handlers.ListTrips)
				r.Post("/", handlers.CreateTrip)

				r.Route("/{tripID}", func(r chi.Router) {
					r.Get("/", handlers.GetTrip)
					r.Patch("/", handlers.RenameTrip)
					r.Delete("/", handlers.DeleteTrip)

					r.Put("/dates", handlers.ResizeDates)
					r.Post("/days", handlers.InsertDay)
					r.Delete("/days/{dayID}", handlers.RemoveDay)

					r.Post("/days/{dayID}/stops", handlers.AddStop)
					r.Post("/days/{dayID}/favorites", handlers.AddFavoriteStop)
					r.Put("/days/{dayID}/stops/order", handlers.ReorderStops)
					r.Patch("/days/{dayID}/stops/{stopID}", handlers.UpdateStop)
					r.Delete("/days/{dayID}/stops/{stopID}", handlers.DeleteStop)
					r.Post("/moves", handlers.MoveStop)

					r.Post("/geocode", handlers.ResolveCoordinates)
					r.Post("/suntimes", handlers.AugmentSunTimes)
					r.Get("/route", handlers.RouteGeometry)
					r.Get("/calendar.ics", handlers.Calendar)
				})
			})

			r.Route("/favorites/{scope}", func(r chi.Router) {
				r.Get("/", handlers.ListFavorites)
				r.Get("/{name}", handlers.GetFavorite)
				r.Put("/{name}", handlers.SaveFavorite)
				r.Delete("/{name}", handlers.DeleteFavorite)
			})
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
