package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/go-trip-assistant/internal/api/chat"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/discovery"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/profiles"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/programs"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/suggestions"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AllowedOrigins            []string
	// DiscoverRequestsPerMinute caps /ai/discover per client IP; zero means 30.
	DiscoverRequestsPerMinute int

	ProfileHandler     *profiles.ProfileHandler
	ProgramHandler     *programs.ProgramHandler
	ChatHandler        *chat.ChatHandler
	SuggestionsHandler *suggestions.SuggestionsHandler
	DiscoveryHandler   *discovery.DiscoveryHandler
	ItineraryHandler   *itinerary.ItineraryHandler

	AuthenticateMiddleware         func(http.Handler) http.Handler
	OptionalAuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (request id, logger, recoverer) is applied in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	discoverLimit := cfg.DiscoverRequestsPerMinute
	if discoverLimit <= 0 {
		discoverLimit = 30
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Discovery is open to anonymous visitors; a valid token adds the profile.
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(discoverLimit, time.Minute))
			r.Use(cfg.OptionalAuthenticateMiddleware)
			r.Post("/ai/discover", cfg.DiscoveryHandler.Discover)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/profile", cfg.ProfileHandler.GetProfile)
			r.Put("/profile", cfg.ProfileHandler.SaveProfile)
			r.Get("/trip-config", cfg.ProfileHandler.GetTripConfig)
			r.Put("/trip-config", cfg.ProfileHandler.SaveTripConfig)

			r.Route("/programs", func(r chi.Router) {
				r.Get("/", cfg.ProgramHandler.ListPrograms)
				r.Post("/", cfg.ProgramHandler.CreateProgram)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.ProgramHandler.GetProgram)
					r.Patch("/", cfg.ProgramHandler.UpdateProgram)
					r.Delete("/", cfg.ProgramHandler.DeleteProgram)
					r.Get("/chat", cfg.ChatHandler.ProgramHistory)
					r.Delete("/chat", cfg.ChatHandler.ClearProgramHistory)
				})
			})

			r.Get("/chat", cfg.ChatHandler.GlobalHistory)
			r.Delete("/chat", cfg.ChatHandler.ClearGlobalHistory)

			r.Route("/ai", func(r chi.Router) {
				r.Post("/program-chat", cfg.ChatHandler.ProgramChat)
				r.Post("/global-chat", cfg.ChatHandler.GlobalChat)
				r.Post("/region-suggestions", cfg.SuggestionsHandler.RegionSuggestions)
				r.Post("/faq", cfg.SuggestionsHandler.FAQ)
				r.Post("/faq/explore", cfg.SuggestionsHandler.ExploreTopic)
				r.Delete("/discover/cache", cfg.DiscoveryHandler.InvalidateCache)
				r.Post("/organize", cfg.ItineraryHandler.Organize)
				r.Post("/organize/confirm", cfg.ItineraryHandler.Confirm)
				r.Post("/pdf-narrative", cfg.ItineraryHandler.Narrative)
				r.Post("/pdf", cfg.ItineraryHandler.PDF)
			})
		})
	})

	return r
}
