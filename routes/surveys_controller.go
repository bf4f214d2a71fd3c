package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/uss/app"
	"github.com/mbolis/uss/database"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/log"
	"github.com/mbolis/uss/model"
	"github.com/mbolis/uss/survey"
	"github.com/samber/lo"
)

// Surveys are written with the category's slug and the questions' ids, and read
// back with both nested in full.
type surveyRequest struct {
	Name        string      `json:"name" validate:"required,max=64"`
	Description string      `json:"description" validate:"max=128"`
	Category    *string     `json:"category" validate:"omitempty,min=1"`
	EndDate     *model.Date `json:"end_date"`
	Questions   []int       `json:"questions" validate:"dive,min=1"`
}

type surveyPatch struct {
	Name        *string     `json:"name" validate:"omitempty,min=1,max=64"`
	Description *string     `json:"description" validate:"omitempty,max=128"`
	Category    *string     `json:"category"`
	EndDate     *model.Date `json:"end_date"`
	Questions   *[]int      `json:"questions" validate:"omitempty,dive,min=1"`
}

// resolveCategory maps a slug to its category; an empty slug clears it.
func resolveCategory(w http.ResponseWriter, r *http.Request, app app.App, code string, slug string) (*model.Category, bool) {
	if slug == "" {
		return nil, true
	}
	category, err := app.Repo.GetCategoryBySlug(r.Context(), slug)
	if errors.Is(err, database.ErrNotFound) {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code+".category", "unknown category %q", slug)
		return nil, false
	}
	if err != nil {
		httpx.LogInternalError(w, code+".category", err)
		return nil, false
	}
	return &category, true
}

// questionsError reports unknown question ids as a bad request rather than a
// missing survey.
func questionsError(w http.ResponseWriter, code string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "unknown question in %s", err)
		return
	}
	httpx.LogError(w, code, err)
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, ok := queryBool(w, r, "active")
		if !ok {
			return
		}

		surveys, err := app.Repo.ListSurveys(r.Context(), active, model.Today())
		if err != nil {
			httpx.LogInternalError(w, "surveys.list", err)
			return
		}
		render.JSON(w, r, surveys)
	}
}

func GetSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "surveyID")
		if !ok {
			return
		}

		s, err := app.Repo.GetSurvey(r.Context(), id)
		if err != nil {
			httpx.LogError(w, "surveys.get", err)
			return
		}
		render.JSON(w, r, s)
	}
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req surveyRequest
		if !httpx.DecodeAndValidate(w, r, "surveys.create", &req) {
			return
		}

		s := model.Survey{
			Name:        req.Name,
			Description: req.Description,
			StartDate:   model.Today(),
		}
		s.EndDate = s.StartDate.AddDays(app.SurveyDuration)
		if req.EndDate != nil {
			s.EndDate = *req.EndDate
		}
		err := survey.ValidateDates(s.StartDate, s.EndDate)
		if err != nil {
			httpx.LogError(w, "surveys.create.validate", err)
			return
		}

		var ok bool
		s.Category, ok = resolveCategory(w, r, app, "surveys.create", lo.FromPtr(req.Category))
		if !ok {
			return
		}

		err = app.Repo.CreateSurvey(r.Context(), &s, lo.Uniq(req.Questions))
		if err != nil {
			questionsError(w, "surveys.create", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, s)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "surveyID")
		if !ok {
			return
		}

		s, err := app.Repo.GetSurvey(r.Context(), id)
		if err != nil {
			httpx.LogError(w, "surveys.update", err)
			return
		}

		var patch surveyPatch
		if !httpx.DecodeAndValidate(w, r, "surveys.update", &patch) {
			return
		}

		if patch.Name != nil {
			s.Name = *patch.Name
		}
		if patch.Description != nil {
			s.Description = *patch.Description
		}
		if patch.EndDate != nil {
			s.EndDate = *patch.EndDate
		}
		err = survey.ValidateDates(s.StartDate, s.EndDate)
		if err != nil {
			httpx.LogError(w, "surveys.update.validate", err)
			return
		}
		if patch.Category != nil {
			s.Category, ok = resolveCategory(w, r, app, "surveys.update", *patch.Category)
			if !ok {
				return
			}
		}

		var questionIDs []int
		if patch.Questions != nil {
			// non-nil even when empty: an empty list detaches every question
			questionIDs = lo.Uniq(*patch.Questions)
		}

		err = app.Repo.UpdateSurvey(r.Context(), &s, questionIDs)
		if err != nil {
			questionsError(w, "surveys.update", err)
			return
		}
		render.JSON(w, r, s)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "surveyID")
		if !ok {
			return
		}

		err := app.Repo.DeleteSurvey(r.Context(), id)
		if err != nil {
			httpx.LogError(w, "surveys.delete", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
