package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/uss/app"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/log"
	"github.com/mbolis/uss/model"
	"github.com/mbolis/uss/routes/middlewares"
	"github.com/mbolis/uss/session"
	"github.com/mbolis/uss/survey"
)

type answerRequest struct {
	Text    string `json:"text"`
	Choices []int  `json:"choices"`
}

// answerTarget resolves {surveyID} and {questionID}: both must exist and the
// question must be part of the survey.
func answerTarget(w http.ResponseWriter, r *http.Request, app app.App, code string) (s model.Survey, q model.Question, ok bool) {
	surveyID, ok := urlID(w, r, "surveyID")
	if !ok {
		return
	}
	questionID, ok := urlID(w, r, "questionID")
	if !ok {
		return
	}

	s, err := app.Repo.GetSurvey(r.Context(), surveyID)
	if err != nil {
		httpx.LogError(w, code+".get_survey", err)
		return s, q, false
	}
	q, err = app.Repo.GetQuestion(r.Context(), questionID)
	if err != nil {
		httpx.LogError(w, code+".get_question", err)
		return s, q, false
	}

	attached, err := app.Repo.SurveyHasQuestion(r.Context(), surveyID, questionID)
	if err != nil {
		httpx.LogInternalError(w, code+".survey_has_question", err)
		return s, q, false
	}
	if !attached {
		httpx.LogStatusMsg(w, http.StatusNotFound, log.DebugLevel, code,
			"question %d is not part of survey %d", questionID, surveyID)
		return s, q, false
	}
	return s, q, true
}

// answerFilter reads the anonym, user and anonym_id query parameters.
func answerFilter(w http.ResponseWriter, r *http.Request) (f model.AnswerFilter, ok bool) {
	f.Anonym, ok = queryBool(w, r, "anonym")
	if !ok {
		return
	}
	if user := r.URL.Query().Get("user"); user != "" {
		f.User = &user
	}
	f.AnonymID, ok = queryInt(w, r, "anonym_id")
	return
}

func CreateAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, q, ok := answerTarget(w, r, app, "answers.create")
		if !ok {
			return
		}

		if !s.Active(model.Today()) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "answers.create",
				"survey %d is not active (%s to %s)", s.ID, s.StartDate, s.EndDate)
			return
		}

		var req answerRequest
		if !httpx.DecodeAndValidate(w, r, "answers.create", &req) {
			return
		}

		err := survey.ValidateAnswer(q.AnswerType, len(q.AnswersPool), req.Text, req.Choices)
		if err != nil {
			httpx.LogError(w, "answers.create.validate", err)
			return
		}

		answer := model.Answer{
			SurveyID:   s.ID,
			QuestionID: q.ID,
			Text:       req.Text,
			Choices:    req.Choices,
			AnonymID:   survey.AuthenticatedAnonymID,
		}

		// a session whose new identity is only kept once the answer is stored
		var pending *session.Session
		if userID, ok := middlewares.UserID(r); ok {
			answer.UserID = &userID
		} else {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				httpx.LogInternalError(w, "answers.create.session", errNoSession)
				return
			}

			id, created, err := app.Identities.Assign(r.Context(), sess)
			if err != nil {
				httpx.LogInternalError(w, "answers.create.anonym_id", err)
				return
			}
			if created {
				pending = sess
			}
			answer.AnonymID = id
		}

		err = app.Repo.CreateAnswer(r.Context(), &answer)
		if err != nil {
			httpx.LogError(w, "answers.create", err)
			return
		}

		if pending != nil {
			log.WithFields(log.Fields{"session": pending.ID, "anonym_id": answer.AnonymID}).Debug("answers.create: new anonymous respondent")
			err = app.Sessions.Save(r.Context(), w, pending)
			if err != nil {
				// the answer is stored; the client just gets a fresh identity next time
				log.Errorf("answers.create.session_save: %s", err)
			}
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, answer)
	}
}

func ListAnswers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, q, ok := answerTarget(w, r, app, "answers.list")
		if !ok {
			return
		}
		f, ok := answerFilter(w, r)
		if !ok {
			return
		}

		answers, err := app.Repo.ListAnswers(r.Context(), s.ID, q.ID, f)
		if err != nil {
			httpx.LogInternalError(w, "answers.list", err)
			return
		}
		render.JSON(w, r, answers)
	}
}

// loadOwnAnswer fetches {id}, visible only to its author and to admins.
func loadOwnAnswer(w http.ResponseWriter, r *http.Request, app app.App, code string) (a model.Answer, ok bool) {
	s, q, ok := answerTarget(w, r, app, code)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	a, err := app.Repo.GetAnswer(r.Context(), s.ID, q.ID, id)
	if err != nil {
		httpx.LogError(w, code, err)
		return a, false
	}

	if !middlewares.IsAdmin(r) {
		userID, authenticated := middlewares.UserID(r)
		if !authenticated || a.IsAnonymous() || *a.UserID != userID {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, code+".not_author")
			return a, false
		}
	}
	return a, true
}

func GetAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwnAnswer(w, r, app, "answers.get")
		if !ok {
			return
		}
		render.JSON(w, r, a)
	}
}

func DeleteAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadOwnAnswer(w, r, app, "answers.delete")
		if !ok {
			return
		}

		err := app.Repo.DeleteAnswer(r.Context(), a.ID)
		if err != nil {
			httpx.LogError(w, "answers.delete", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AnswerStatistics(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, q, ok := answerTarget(w, r, app, "answers.stat")
		if !ok {
			return
		}
		f, ok := answerFilter(w, r)
		if !ok {
			return
		}

		answers, err := app.Repo.ListAnswers(r.Context(), s.ID, q.ID, f)
		if err != nil {
			httpx.LogInternalError(w, "answers.stat", err)
			return
		}
		render.JSON(w, r, survey.Aggregate(answers))
	}
}
