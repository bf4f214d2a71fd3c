package routes

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/uss/app"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/log"
	"github.com/mbolis/uss/model"
	"github.com/mbolis/uss/survey"
)

type questionRequest struct {
	Text        string           `json:"text" validate:"required,max=128"`
	AnswerType  model.AnswerType `json:"answer_type" validate:"required,oneof=single multiple open"`
	AnswersPool []string         `json:"answers_pool" validate:"dive,max=128"`
}

type questionPatch struct {
	Text        *string           `json:"text" validate:"omitempty,min=1,max=128"`
	AnswerType  *model.AnswerType `json:"answer_type" validate:"omitempty,oneof=single multiple open"`
	AnswersPool *[]string         `json:"answers_pool" validate:"omitempty,dive,max=128"`
}

// scopeSurvey reads the optional {surveyID} of routes nested under a survey and
// checks the survey exists. A nil id means the route is not nested.
func scopeSurvey(w http.ResponseWriter, r *http.Request, app app.App) (surveyID *int, ok bool) {
	if chi.URLParam(r, "surveyID") == "" {
		return nil, true
	}

	id, ok := urlID(w, r, "surveyID")
	if !ok {
		return nil, false
	}
	_, err := app.Repo.GetSurvey(r.Context(), id)
	if err != nil {
		httpx.LogError(w, "questions.get_survey", err)
		return nil, false
	}
	return &id, true
}

// loadQuestion fetches {id}, which must belong to the survey when the route is nested.
func loadQuestion(w http.ResponseWriter, r *http.Request, app app.App, code string) (q model.Question, ok bool) {
	surveyID, ok := scopeSurvey(w, r, app)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if surveyID != nil {
		attached, err := app.Repo.SurveyHasQuestion(r.Context(), *surveyID, id)
		if err != nil {
			httpx.LogInternalError(w, code+".survey_has_question", err)
			return q, false
		}
		if !attached {
			httpx.LogNotFound(w, code, id)
			return q, false
		}
	}

	q, err := app.Repo.GetQuestion(r.Context(), id)
	if err != nil {
		httpx.LogError(w, code, err)
		return q, false
	}
	return q, true
}

func ListQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := scopeSurvey(w, r, app)
		if !ok {
			return
		}

		var questions []model.Question
		var err error
		if surveyID != nil {
			questions, err = app.Repo.ListSurveyQuestions(r.Context(), *surveyID)
		} else {
			questions, err = app.Repo.ListQuestions(r.Context())
		}
		if err != nil {
			httpx.LogInternalError(w, "questions.list", err)
			return
		}
		render.JSON(w, r, questions)
	}
}

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, ok := scopeSurvey(w, r, app)
		if !ok {
			return
		}

		var req questionRequest
		if !httpx.DecodeAndValidate(w, r, "questions.create", &req) {
			return
		}

		err := survey.ValidateQuestion(req.AnswerType, req.AnswersPool)
		if err != nil {
			httpx.LogError(w, "questions.create.validate", err)
			return
		}

		q := model.Question{
			Text:        req.Text,
			AnswerType:  req.AnswerType,
			AnswersPool: survey.NormalizePool(req.AnswerType, req.AnswersPool),
		}
		err = app.Repo.CreateQuestion(r.Context(), &q, surveyID)
		if err != nil {
			httpx.LogError(w, "questions.create", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, q)
	}
}

func GetQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := loadQuestion(w, r, app, "questions.get")
		if !ok {
			return
		}
		render.JSON(w, r, q)
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := loadQuestion(w, r, app, "questions.update")
		if !ok {
			return
		}

		var patch questionPatch
		if !httpx.DecodeAndValidate(w, r, "questions.update", &patch) {
			return
		}

		updated := q
		if patch.Text != nil {
			updated.Text = *patch.Text
		}
		if patch.AnswerType != nil {
			updated.AnswerType = *patch.AnswerType
		}
		if patch.AnswersPool != nil {
			updated.AnswersPool = *patch.AnswersPool
		}

		err := survey.ValidateQuestion(updated.AnswerType, updated.AnswersPool)
		if err != nil {
			httpx.LogError(w, "questions.update.validate", err)
			return
		}
		updated.AnswersPool = survey.NormalizePool(updated.AnswerType, updated.AnswersPool)

		// stored answers were validated against the old definition
		if updated.AnswerType != q.AnswerType || !slices.Equal(updated.AnswersPool, q.AnswersPool) {
			n, err := app.Repo.CountQuestionAnswers(r.Context(), q.ID)
			if err != nil {
				httpx.LogInternalError(w, "questions.update.count_answers", err)
				return
			}
			if n > 0 {
				httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "questions.update",
					"question %d already has %d answers; its answer type and pool cannot change", q.ID, n)
				return
			}
		}

		err = app.Repo.UpdateQuestion(r.Context(), updated)
		if err != nil {
			httpx.LogError(w, "questions.update", err)
			return
		}
		render.JSON(w, r, updated)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := loadQuestion(w, r, app, "questions.delete")
		if !ok {
			return
		}

		err := app.Repo.DeleteQuestion(r.Context(), q.ID)
		if err != nil {
			httpx.LogError(w, "questions.delete", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
