package routes

import (
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/handlers"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/middleware"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	authHandler *handlers.AuthHandler,
	competitionHandler *handlers.CompetitionHandler,
	teamHandler *handlers.TeamHandler,
	registrationHandler *handlers.RegistrationHandler,
	submissionHandler *handlers.SubmissionHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/users/signup", authHandler.SignUp)
	router.Post("/users/signin", authHandler.SignIn)

	router.Route("/competitions", func(r chi.Router) {
		// Публичные маршруты для просмотра соревнований
		r.Get("/", competitionHandler.ListCompetitions)
		r.Get("/{competitionID}", competitionHandler.GetCompetition)
		r.Get("/{competitionID}/teams", teamHandler.ListTeams)
		r.Get("/{competitionID}/rank", submissionHandler.GetCompetitionRank)

		// Защищенные маршруты только для организаторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin))

			r.Post("/", competitionHandler.CreateCompetition)
			r.Put("/{competitionID}", competitionHandler.UpdateCompetition)
			r.Delete("/{competitionID}", competitionHandler.DeleteCompetition)
		})

		// Маршруты, доступные любому аутентифицированному пользователю
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{competitionID}/registrations", registrationHandler.Register)
			r.Get("/{competitionID}/registrations", registrationHandler.ListForCompetition)
			r.Get("/{competitionID}/registrations/my", registrationHandler.MyStatus)
			r.Post("/{competitionID}/submissions", submissionHandler.SubmitWork)
			r.Get("/{competitionID}/submissions", submissionHandler.ListSubmissions)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", teamHandler.CreateTeam)
		r.Get("/my", teamHandler.ListMyTeams)
		r.Get("/{teamID}", teamHandler.GetTeamDetail)
		r.Put("/{teamID}", teamHandler.UpdateTeam)
		r.Delete("/{teamID}", teamHandler.DeleteTeam)
		r.Post("/{teamID}/members", teamHandler.JoinTeam)
		r.Delete("/{teamID}/members", teamHandler.QuitTeam)
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/my", registrationHandler.ListMyCompetitions)
		r.Patch("/{registrationID}/review", registrationHandler.Review)
	})

	router.Route("/submissions", func(r chi.Router) {
		r.Use(authenticate)

		r.Patch("/{submissionID}/score", submissionHandler.ScoreSubmission)
	})

	// Live-лента событий соревнования (результаты ревью, оценки работ)
	router.Get("/ws/competitions/{competitionID}", webSocketHandler.ServeWs)
}
