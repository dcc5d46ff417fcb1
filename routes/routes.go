package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/golf-arbitri/referee-system/handlers"
	"github.com/golf-arbitri/referee-system/middleware"
	"github.com/golf-arbitri/referee-system/models"
)

// Handlers собирает все HTTP-обработчики приложения.
type Handlers struct {
	Auth           *handlers.AuthHandler
	User           *handlers.UserHandler
	Zone           *handlers.ZoneHandler
	Club           *handlers.ClubHandler
	TournamentType *handlers.TournamentTypeHandler
	Tournament     *handlers.TournamentHandler
	Availability   *handlers.AvailabilityHandler
	Assignment     *handlers.AssignmentHandler
	Audit          *handlers.AuditHandler
	WebSocket      *handlers.WebSocketHandler
}

func SetupRoutes(auth *middleware.Authenticator, h Handlers) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/auth/login", h.Auth.Login)

	// Все остальные маршруты требуют аутентификации; тонкая проверка
	// видимости выполняется в сервисах.
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/me", h.User.Me)

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.AuthorizeAdmins()).Get("/", h.User.List)
			r.With(middleware.AuthorizeAdmins()).Post("/", h.User.Create)
			r.Get("/{id}", h.User.GetByID)
			r.Put("/{id}", h.User.Update)
			r.With(middleware.AuthorizeAdmins()).Patch("/{id}/active", h.User.SetActive)
			r.With(middleware.Authorize(models.TypeSuperAdmin, models.TypeNationalAdmin)).Delete("/{id}", h.User.Delete)
		})

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", h.Zone.List)
			r.Get("/{id}", h.Zone.GetByID)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authorize(models.TypeSuperAdmin, models.TypeNationalAdmin))
				r.Post("/", h.Zone.Create)
				r.Put("/{id}", h.Zone.Update)
				r.Delete("/{id}", h.Zone.Delete)
			})
		})

		r.Route("/clubs", func(r chi.Router) {
			r.Get("/", h.Club.List)
			r.Get("/{id}", h.Club.GetByID)
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthorizeAdmins())
				r.Post("/", h.Club.Create)
				r.Put("/{id}", h.Club.Update)
				r.Delete("/{id}", h.Club.Delete)
			})
		})

		r.Route("/tournament-types", func(r chi.Router) {
			r.Get("/", h.TournamentType.List)
			r.Get("/{id}", h.TournamentType.GetByID)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authorize(models.TypeSuperAdmin, models.TypeNationalAdmin))
				r.Post("/", h.TournamentType.Create)
				r.Put("/{id}", h.TournamentType.Update)
				r.Delete("/{id}", h.TournamentType.Delete)
			})
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.List)
			r.Get("/{id}", h.Tournament.GetByID)
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthorizeAdmins())
				r.Post("/", h.Tournament.Create)
				r.Put("/{id}", h.Tournament.Update)
				r.Delete("/{id}", h.Tournament.Delete)
			})
		})

		r.Route("/availabilities", func(r chi.Router) {
			r.Get("/", h.Availability.List)
			r.With(middleware.Authorize(models.TypeReferee)).Post("/", h.Availability.Submit)
			r.With(middleware.Authorize(models.TypeReferee)).Delete("/tournaments/{tournamentID}", h.Availability.Withdraw)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.Assignment.List)
			r.Get("/{id}", h.Assignment.GetByID)
			r.Post("/{id}/confirm", h.Assignment.Confirm)
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthorizeAdmins())
				r.Post("/", h.Assignment.Create)
				r.Delete("/{id}", h.Assignment.Delete)
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(middleware.AuthorizeAdmins())
			r.Get("/report", h.Audit.Report)
			r.Get("/tournaments/{tournamentID}/alternatives", h.Audit.Alternatives)
		})

		r.Get("/ws", h.WebSocket.ServeWs)
	})

	return router
}
