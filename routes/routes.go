package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/deltacrown/bracket-engine/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	bracketHandler *handlers.BracketHandler,
	rankingHandler *handlers.RankingHandler,
	dashboardHandler *handlers.DashboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments/{tournamentID}/bracket", func(r chi.Router) {
		r.Post("/", bracketHandler.GenerateBracket)
		r.Get("/", bracketHandler.GetBracket)
		r.Delete("/", bracketHandler.ResetBracket)
	})

	router.Route("/rankings", func(r chi.Router) {
		// Leaderboard reads.
		r.Get("/teams", rankingHandler.TeamLeaderboard)
		r.Get("/organizations", rankingHandler.OrganizationLeaderboard)

		// Synchronous recalculation: blocks until the summary is ready.
		r.Post("/teams/recalculate", rankingHandler.RecalculateTeams)
		r.Post("/decay", rankingHandler.ApplyDecay)
		r.Post("/cycle", rankingHandler.RunCycle)

		// Asynchronous jobs: accepted immediately, polled by id.
		r.Post("/jobs/{kind}", rankingHandler.SubmitJob)
		r.Get("/jobs/{jobID}", rankingHandler.GetJob)
	})

	router.Get("/dashboard", dashboardHandler.GetStats)

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeTournament)
	router.Get("/ws/rankings", webSocketHandler.ServeRankings)
}
