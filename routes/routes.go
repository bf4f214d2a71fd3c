package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/mbolis/uss/app"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/routes/middlewares"
)

var errNoSession = errors.New("no session in request context")

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	root.Get("/health", Health(app))
	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))
	api.Post("/users", Register(app))
	api.With(app.Sessions.Middleware).Post("/logout", Logout(app))

	api.Route("/v1", func(r chi.Router) {
		r.Use(middlewares.CookieAuth(app.TokenSecret, app.BearerServer))
		v1Routes(r, app)
	})

	return api
}

func v1Routes(r chi.Router, app app.App) {
	admin := middlewares.Admin(app.TokenSecret)
	authorized := middlewares.Authorize(app.TokenSecret)
	optional := middlewares.OptionalAuth(app.TokenSecret)

	r.Route("/categories", func(r chi.Router) {
		r.Use(admin)

		r.Get("/", ListCategories(app))
		r.Post("/", CreateCategory(app))
		r.Get(`/{id:^\d+$}`, GetCategory(app))
		r.Delete(`/{id:^\d+$}`, DeleteCategory(app))
	})

	r.Route("/questions", func(r chi.Router) {
		r.Use(admin)
		questionRoutes(r, app)
	})

	r.Route("/surveys", func(r chi.Router) {
		r.Get("/", ListSurveys(app))
		r.With(admin).Post("/", CreateSurvey(app))

		r.Route(`/{surveyID:^\d+$}`, func(r chi.Router) {
			r.Get("/", GetSurvey(app))
			r.With(admin).Patch("/", UpdateSurvey(app))
			r.With(admin).Delete("/", DeleteSurvey(app))

			r.Route("/questions", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(admin)
					questionRoutes(r, app)
				})

				r.Route(`/{questionID:^\d+$}/answers`, func(r chi.Router) {
					r.With(optional, app.Sessions.Middleware).Post("/", CreateAnswer(app))
					r.With(admin).Get("/", ListAnswers(app))
					r.With(admin).Get("/stat", AnswerStatistics(app))
					r.With(authorized).Get(`/{id:^\d+$}`, GetAnswer(app))
					r.With(authorized).Delete(`/{id:^\d+$}`, DeleteAnswer(app))
				})
			})
		})
	})
}

// questionRoutes serves both /questions and /surveys/{surveyID}/questions.
func questionRoutes(r chi.Router, app app.App) {
	r.Get("/", ListQuestions(app))
	r.Post("/", CreateQuestion(app))
	r.Get(`/{id:^\d+$}`, GetQuestion(app))
	r.Patch(`/{id:^\d+$}`, UpdateQuestion(app))
	r.Delete(`/{id:^\d+$}`, DeleteQuestion(app))
}

func Health(app app.App) http.HandlerFunc {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := app.Repo.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				httpx.LogInternalError(w, "health.db_ping", err)
				return
			}
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}
