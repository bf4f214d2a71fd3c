package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mbolis/uss/app"
	"github.com/mbolis/uss/config"
	"github.com/mbolis/uss/database"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/model"
	"github.com/mbolis/uss/session"
	"github.com/stretchr/testify/require"
)

const (
	adminName = "admin"
	adminPass = "admin-password"
)

type testServer struct {
	t       *testing.T
	app     app.App
	store   *database.Store
	handler http.Handler
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessionStore, err := session.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { sessionStore.Close() })

	cfg := config.Config{
		TokenSecret:    "test-token-secret",
		TokenTTL:       2 * time.Minute,
		SessionSecret:  "test-session-secret",
		SessionTTL:     time.Hour,
		SurveyDuration: 14,
	}
	a := app.New(store, session.NewManager(sessionStore, cfg.SessionSecret, cfg.SessionTTL), cfg)

	s := &testServer{t: t, app: a, store: store, handler: Wire(a)}
	s.createUser(adminName, adminPass, true)
	return s
}

func (s *testServer) createUser(username, password string, staff bool) model.User {
	s.t.Helper()

	hash, err := httpx.HashPassword(password)
	require.NoError(s.t, err)
	u := model.User{Username: username, PasswordHash: hash, IsStaff: staff}
	require.NoError(s.t, s.store.CreateUser(context.Background(), &u))
	return u
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookies(cookies []*http.Cookie) requestOption {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func (s *testServer) do(method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (s *testServer) login(username, password string) tokenResponse {
	s.t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.SetBasicAuth(username, password)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens tokenResponse
	decode(s.t, rec, &tokens)
	require.NotEmpty(s.t, tokens.AccessToken)
	return tokens
}

func (s *testServer) adminToken() string {
	return s.login(adminName, adminPass).AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// seedSurvey creates, as admin, an active survey holding one question of each type.
func (s *testServer) seedSurvey(token string) (model.Survey, map[model.AnswerType]model.Question) {
	s.t.Helper()

	questions := map[model.AnswerType]model.Question{}
	for _, req := range []map[string]any{
		{"text": "Pick one", "answer_type": "single", "answers_pool": []string{"a", "b", "c"}},
		{"text": "Pick many", "answer_type": "multiple", "answers_pool": []string{"a", "b", "c"}},
		{"text": "Say something", "answer_type": "open"},
	} {
		rec := s.do(http.MethodPost, "/api/v1/questions", req, withToken(token))
		require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
		var q model.Question
		decode(s.t, rec, &q)
		questions[q.AnswerType] = q
	}

	rec := s.do(http.MethodPost, "/api/v1/surveys", map[string]any{
		"name": "Seeded",
		"questions": []int{
			questions[model.SingleChoice].ID,
			questions[model.MultipleChoice].ID,
			questions[model.OpenAnswer].ID,
		},
	}, withToken(token))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var sv model.Survey
	decode(s.t, rec, &sv)
	return sv, questions
}
