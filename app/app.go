package app

import (
	"github.com/go-chi/oauth"
	"github.com/mbolis/uss/config"
	"github.com/mbolis/uss/database"
	"github.com/mbolis/uss/httpx"
	"github.com/mbolis/uss/session"
	"github.com/mbolis/uss/survey"
)

// App carries the shared services every controller is built from.
type App struct {
	Repo database.Repository
	*oauth.BearerServer
	Sessions   *session.Manager
	Identities *survey.IdentityAssigner
	config.Config
}

func New(repo database.Repository, sessions *session.Manager, cfg config.Config) App {
	return App{
		Repo:         repo,
		BearerServer: httpx.NewBearerServer(repo, cfg.TokenSecret, cfg.TokenTTL),
		Sessions:     sessions,
		Identities:   survey.NewIdentityAssigner(repo),
		Config:       cfg,
	}
}
