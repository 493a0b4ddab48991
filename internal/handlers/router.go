package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"wastewatch-backend/internal/middleware"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/internal/websocket"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Identity  *services.IdentityService
	Reports   *services.ReportService
	Fleet     *services.FleetService
	Analytics *services.AnalyticsService
	Hub       *websocket.Hub

	// Geocoder backs /api/geocoding/forward. Nil leaves the route unregistered.
	Geocoder services.Geocoder

	JWTSecret      string
	AllowedOrigins []string

	// ReportLimiter throttles report creation per user. Nil disables it.
	ReportLimiter middleware.Limiter
}

func NewRouter(d Deps) http.Handler {
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// WebSocket endpoint (authentication handled in handler via query param)
	if d.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(d.Hub, d.JWTSecret, websocket.NewUpgrader(origins)))
	}

	r.Route("/api", func(r chi.Router) {
		// Authentication routes (no auth required)
		r.Post("/auth/login", Login(d.Identity, d.JWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.JWTSecret))

			// Reports
			r.With(middleware.RateLimit(d.ReportLimiter)).Post("/reports", CreateReport(d.Reports))
			r.Get("/reports", ListReports(d.Reports))
			r.Get("/reports/{id}", GetReport(d.Reports))
			r.Put("/reports/{id}/status", UpdateReportStatus(d.Reports))

			// Bins
			r.Get("/bins", GetBins(d.Fleet))
			r.Get("/bins/alerts", GetBinAlerts(d.Fleet)) // register before {id} routes
			r.Post("/bins", CreateBin(d.Fleet))
			r.Put("/bins/{id}/collect", CollectBin(d.Fleet))
			r.Put("/bins/{id}/level", UpdateBinLevel(d.Fleet))

			// Drivers
			r.Get("/drivers", GetDrivers(d.Fleet))
			r.Post("/drivers", CreateDriver(d.Fleet))
			r.Put("/drivers/{id}/assign", AssignDriver(d.Fleet))
			r.Put("/drivers/{id}/release", ReleaseDriver(d.Fleet))

			// Analytics
			r.Get("/analytics/overview", GetAnalyticsOverview(d.Analytics))

			if d.Geocoder != nil {
				r.Post("/geocoding/forward", Geocode(d.Geocoder))
			}

			// Users
			r.Post("/users", CreateUser(d.Identity))
			r.Post("/users/me/device-token", RegisterDeviceToken(d.Identity))
			r.Get("/users/{id}", GetUser(d.Identity))
		})
	})

	return r
}
