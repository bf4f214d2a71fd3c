package routes

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/mbolis/uss/app"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/log"
	"github.com/mbolis/uss/model"
	"github.com/mbolis/uss/routes/middlewares"
	"github.com/mbolis/uss/session"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Login trades basic auth credentials for an access/refresh token pair.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		r.Body = io.NopCloser(strings.NewReader(body.Encode()))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body.Encode())))
		r.Form = nil
		r.PostForm = nil
		app.UserCredentials(w, r)
	}
}

// Refresh expects "Authorization: Refresh <refresh token>".
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}
		resp, err := httpx.RefreshGrant(r.Context(), app.BearerServer, match[1])
		if err != nil {
			httpx.LogInternalError(w, "refresh.grant", err)
			return
		}
		if resp.Status() != http.StatusOK {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.rejected")
			return
		}
		resp.Flush(w)
	}
}

// Register creates a respondent account. Staff accounts are only made at startup.
func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !httpx.DecodeAndValidate(w, r, "users.register", &req) {
			return
		}

		hash, err := httpx.HashPassword(req.Password)
		if err != nil {
			httpx.LogInternalError(w, "users.register.hash", err)
			return
		}

		user := model.User{Username: req.Username, PasswordHash: hash}
		err = app.Repo.CreateUser(r.Context(), &user)
		if err != nil {
			httpx.LogError(w, "users.register", err)
			return
		}

		log.WithField("username", user.Username).Info("users.register: account created")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, user)
	}
}

// Logout clears the token cookies and destroys the client's session, anonymous
// identity included.
func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			httpx.LogInternalError(w, "logout.session", errNoSession)
			return
		}

		if !sess.IsNew() {
			err := app.Sessions.Destroy(r.Context(), w, sess)
			if err != nil {
				httpx.LogInternalError(w, "logout.destroy", err)
				return
			}
		}
		middlewares.ClearAuthCookies(w)
		w.WriteHeader(http.StatusNoContent)
	}
}
