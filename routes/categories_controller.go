package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/uss/app"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/log"
	"github.com/mbolis/uss/model"
)

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=64"`
	Slug string `json:"slug" validate:"omitempty,max=32"`
}

func ListCategories(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := app.Repo.ListCategories(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "categories.list", err)
			return
		}
		render.JSON(w, r, categories)
	}
}

func CreateCategory(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if !httpx.DecodeAndValidate(w, r, "categories.create", &req) {
			return
		}

		category := model.Category{Name: req.Name, Slug: req.Slug}
		if category.Slug == "" {
			category.Slug = slugify(category.Name)
		}
		if category.Slug == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "categories.create.slug", "cannot derive a slug from %q", req.Name)
			return
		}

		err := app.Repo.CreateCategory(r.Context(), &category)
		if err != nil {
			httpx.LogError(w, "categories.create", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, category)
	}
}

func GetCategory(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}

		category, err := app.Repo.GetCategory(r.Context(), id)
		if err != nil {
			httpx.LogError(w, "categories.get", err)
			return
		}
		render.JSON(w, r, category)
	}
}

func DeleteCategory(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}

		err := app.Repo.DeleteCategory(r.Context(), id)
		if err != nil {
			httpx.LogError(w, "categories.delete", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
